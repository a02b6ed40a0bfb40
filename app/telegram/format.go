package telegram

import "fmt"

// FormatUSDCompact renders a USD figure the way the cards show it:
// $12.34M / $56.78K / $9.99, with an em dash for absent values.
func FormatUSDCompact(v float64) string {
	if v <= 0 {
		return "—"
	}
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("$%.2fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("$%.2fK", v/1_000)
	default:
		return fmt.Sprintf("$%.2f", v)
	}
}
