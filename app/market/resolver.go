package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/m3rciful/trendbot/core/logger"
	"log/slog"
)

// ErrNotFound indicates the provider knows no trading pairs for the address.
// Any other resolution failure is transient: the user may simply resubmit.
var ErrNotFound = errors.New("market: token not found")

const (
	component      = "service.market"
	defaultTimeout = 15 * time.Second
)

// Metadata is a snapshot of a token's market data taken from its primary pool.
type Metadata struct {
	Name         string
	Symbol       string
	PriceUSD     string
	LiquidityUSD float64
	MarketCapUSD float64
	LogoURL      string
	PairURL      string
	TelegramURL  string
}

// Resolver fetches token market metadata from a dexscreener-style provider.
type Resolver struct {
	baseURL string
	client  *http.Client
}

// NewResolver builds a Resolver for the given provider base URL.
func NewResolver(baseURL string) *Resolver {
	return &Resolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

type pairsResponse struct {
	Pairs []pair `json:"pairs"`
}

type pair struct {
	URL       string  `json:"url"`
	PriceUSD  string  `json:"priceUsd"`
	FDV       float64 `json:"fdv"`
	BaseToken struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	} `json:"baseToken"`
	Liquidity *struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	Info *struct {
		ImageURL string `json:"imageUrl"`
		Links    []struct {
			Type string `json:"type"`
			URL  string `json:"url"`
		} `json:"links"`
	} `json:"info"`
}

func (p pair) liquidityUSD() float64 {
	if p.Liquidity == nil {
		return 0
	}
	return p.Liquidity.USD
}

// Resolve looks up all trading pairs for the address and extracts metadata
// from the one with the highest reported USD liquidity. A token with no
// pairs yields ErrNotFound; provider failures surface as wrapped errors.
func (r *Resolver) Resolve(ctx context.Context, address string) (*Metadata, error) {
	start := time.Now()
	url := fmt.Sprintf("%s/latest/dex/tokens/%s", r.baseURL, address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("market: build request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		logger.Warn(ctx, component, "resolve.fetch",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("market: fetch pairs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("market: provider status %s", resp.Status)
	}

	var payload pairsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("market: decode pairs: %w", err)
	}
	if len(payload.Pairs) == 0 {
		logger.Debug(ctx, component, "resolve.empty",
			slog.String("status", "skip"),
			slog.Duration("duration", logger.Took(start)),
		)
		return nil, ErrNotFound
	}

	best := payload.Pairs[0]
	for _, p := range payload.Pairs[1:] {
		if p.liquidityUSD() > best.liquidityUSD() {
			best = p
		}
	}

	md := &Metadata{
		Name:         best.BaseToken.Name,
		Symbol:       best.BaseToken.Symbol,
		PriceUSD:     best.PriceUSD,
		LiquidityUSD: best.liquidityUSD(),
		MarketCapUSD: best.FDV,
		PairURL:      best.URL,
	}
	if best.Info != nil {
		md.LogoURL = best.Info.ImageURL
		for _, l := range best.Info.Links {
			if l.Type == "telegram" {
				md.TelegramURL = l.URL
			}
		}
	}

	logger.Debug(ctx, component, "resolve.ok",
		slog.String("status", "ok"),
		slog.String("token", md.Symbol),
		slog.Float64("liquidity_usd", md.LiquidityUSD),
		slog.Int("pairs", len(payload.Pairs)),
		slog.Duration("duration", logger.Took(start)),
	)
	return md, nil
}
