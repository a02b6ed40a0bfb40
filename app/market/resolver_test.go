package market

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestResolver(t *testing.T, handler http.HandlerFunc) *Resolver {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewResolver(srv.URL)
}

func TestResolveNoPairs(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"pairs":[]}`))
	})
	_, err := r.Resolve(context.Background(), "So11111111111111111111111111111111111111112")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveNullPairs(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"pairs":null}`))
	})
	_, err := r.Resolve(context.Background(), "abc")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolvePicksHighestLiquidity(t *testing.T) {
	body := `{"pairs":[
		{"url":"https://dex/p1","priceUsd":"0.01","fdv":1000,
		 "baseToken":{"name":"Alpha","symbol":"ALP"},
		 "liquidity":{"usd":5000}},
		{"url":"https://dex/p2","priceUsd":"0.011","fdv":1200,
		 "baseToken":{"name":"Alpha","symbol":"ALP"},
		 "liquidity":{"usd":90000},
		 "info":{"imageUrl":"https://img/alp.png",
		         "links":[{"type":"website","url":"https://alp.io"},
		                  {"type":"telegram","url":"https://t.me/alp"}]}},
		{"url":"https://dex/p3","priceUsd":"0.009","fdv":900,
		 "baseToken":{"name":"Alpha","symbol":"ALP"}}
	]}`
	r := newTestResolver(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	})

	md, err := r.Resolve(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if md.PairURL != "https://dex/p2" {
		t.Fatalf("expected max-liquidity pair, got %s", md.PairURL)
	}
	if md.LiquidityUSD != 90000 {
		t.Fatalf("liquidity = %v", md.LiquidityUSD)
	}
	if md.PriceUSD != "0.011" || md.MarketCapUSD != 1200 {
		t.Fatalf("unexpected snapshot: %+v", md)
	}
	if md.LogoURL != "https://img/alp.png" || md.TelegramURL != "https://t.me/alp" {
		t.Fatalf("info extraction failed: %+v", md)
	}
}

func TestResolveMissingLiquidityTreatedAsZero(t *testing.T) {
	// First pair has no liquidity object at all; second reports a value.
	body := `{"pairs":[
		{"url":"https://dex/a","priceUsd":"1","baseToken":{"name":"B","symbol":"B"}},
		{"url":"https://dex/b","priceUsd":"1","baseToken":{"name":"B","symbol":"B"},
		 "liquidity":{"usd":1}}
	]}`
	r := newTestResolver(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	})
	md, err := r.Resolve(context.Background(), "beta")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if md.PairURL != "https://dex/b" {
		t.Fatalf("expected pair with reported liquidity, got %s", md.PairURL)
	}
}

func TestResolveTieKeepsProviderOrder(t *testing.T) {
	body := `{"pairs":[
		{"url":"https://dex/first","priceUsd":"1","baseToken":{"name":"T","symbol":"T"},
		 "liquidity":{"usd":100}},
		{"url":"https://dex/second","priceUsd":"1","baseToken":{"name":"T","symbol":"T"},
		 "liquidity":{"usd":100}}
	]}`
	r := newTestResolver(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	})
	md, err := r.Resolve(context.Background(), "tie")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if md.PairURL != "https://dex/first" {
		t.Fatalf("tie must keep provider order, got %s", md.PairURL)
	}
}

func TestResolveServerErrorIsTransient(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := r.Resolve(context.Background(), "x")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestResolveMalformedPayloadIsTransient(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"pairs":`))
	})
	_, err := r.Resolve(context.Background(), "x")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected transient error, got %v", err)
	}
}
