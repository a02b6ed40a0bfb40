package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m3rciful/trendbot/app/promo"
)

func TestActivatePostsSnapshot(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/activate" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Errorf("bad body: %v", err)
		}
	}))
	t.Cleanup(srv.Close)

	a := NewActivator(srv.URL)
	err := a.Activate(context.Background(), promo.Activation{
		TokenAddress: "mint-address",
		Name:         "Alpha",
		Symbol:       "ALP",
		PriceUSD:     "0.01",
		MarketCapUSD: 1200,
		LogoURL:      "https://img/alp.png",
		PairURL:      "https://dex/p",
	})
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if got["mint"] != "mint-address" || got["name"] != "Alpha" {
		t.Fatalf("payload = %v", got)
	}
	if got["dex"] != "https://dex/p" {
		t.Fatalf("payload = %v", got)
	}
}

func TestActivateNon2xxFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	a := NewActivator(srv.URL)
	if err := a.Activate(context.Background(), promo.Activation{}); err == nil {
		t.Fatal("expected error")
	}
}
