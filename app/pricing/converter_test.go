package pricing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

func newTestLive(t *testing.T, handler http.HandlerFunc) *Live {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewLive(srv.URL)
}

func TestLiveQuoteAppliesBufferAndRounding(t *testing.T) {
	l := newTestLive(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("ids"); got != "solana" {
			t.Errorf("ids = %s", got)
		}
		_, _ = w.Write([]byte(`{"solana":{"usd":100}}`))
	})

	q, err := l.Quote(context.Background(), "SOL", decimal.NewFromInt(2500))
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	// 2500 / 100 * 1.02 = 25.5
	if want := decimal.RequireFromString("25.5"); !q.Amount.Equal(want) {
		t.Fatalf("amount = %s, want %s", q.Amount, want)
	}
	if q.Currency != "SOL" {
		t.Fatalf("currency = %s", q.Currency)
	}
}

func TestLiveQuoteRoundsToFourPlaces(t *testing.T) {
	l := newTestLive(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ripple":{"usd":0.53}}`))
	})
	q, err := l.Quote(context.Background(), "XRP", decimal.NewFromInt(2500))
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	// 2500 / 0.53 * 1.02 = 4811.3207547... -> 4811.3208
	if want := decimal.RequireFromString("4811.3208"); !q.Amount.Equal(want) {
		t.Fatalf("amount = %s, want %s", q.Amount, want)
	}
}

func TestLiveQuoteSharedEVMAssetID(t *testing.T) {
	var asked string
	l := newTestLive(t, func(w http.ResponseWriter, r *http.Request) {
		asked = r.URL.Query().Get("ids")
		_, _ = w.Write([]byte(`{"ethereum":{"usd":2000}}`))
	})
	if _, err := l.Quote(context.Background(), "BASE", decimal.NewFromInt(2500)); err != nil {
		t.Fatalf("quote: %v", err)
	}
	if asked != "ethereum" {
		t.Fatalf("BASE must quote against ethereum, asked %s", asked)
	}
}

func TestLiveQuoteZeroSpotUnavailable(t *testing.T) {
	l := newTestLive(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"solana":{"usd":0}}`))
	})
	_, err := l.Quote(context.Background(), "SOL", decimal.NewFromInt(100))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestLiveQuoteFeedDownUnavailable(t *testing.T) {
	l := newTestLive(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := l.Quote(context.Background(), "SOL", decimal.NewFromInt(100))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestLiveQuoteMissingAssetUnavailable(t *testing.T) {
	l := newTestLive(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	_, err := l.Quote(context.Background(), "SUI", decimal.NewFromInt(100))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestLiveQuoteUnknownNetwork(t *testing.T) {
	l := NewLive("http://feed.invalid")
	_, err := l.Quote(context.Background(), "DOGECOIN", decimal.NewFromInt(100))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestFixedUSDQuote(t *testing.T) {
	q, err := FixedUSD{}.Quote(context.Background(), "ETH", decimal.NewFromInt(5500))
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !q.Amount.Equal(decimal.NewFromInt(5500)) || q.Currency != "USD" {
		t.Fatalf("unexpected quote: %s %s", q.Amount, q.Currency)
	}
}
