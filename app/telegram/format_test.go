package telegram

import "testing"

func TestFormatUSDCompact(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "—"},
		{-5, "—"},
		{999.994, "$999.99"},
		{1000, "$1.00K"},
		{83250, "$83.25K"},
		{1_000_000, "$1.00M"},
		{12_345_678, "$12.35M"},
	}
	for _, tc := range cases {
		if got := FormatUSDCompact(tc.in); got != tc.want {
			t.Errorf("FormatUSDCompact(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
