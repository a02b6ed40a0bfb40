package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/m3rciful/trendbot/app/promo"
	"github.com/m3rciful/trendbot/core/logger"
	"log/slog"
)

const (
	component      = "service.notify"
	defaultTimeout = 10 * time.Second
)

// Activator posts approved promotions to the external activation worker.
type Activator struct {
	baseURL string
	client  *http.Client
}

// NewActivator builds an Activator for the given worker base URL.
func NewActivator(baseURL string) *Activator {
	return &Activator{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

type activatePayload struct {
	Mint  string  `json:"mint"`
	Name  string  `json:"name"`
	Price string  `json:"price"`
	Mcap  float64 `json:"mcap"`
	Logo  string  `json:"logo"`
	Dex   string  `json:"dex"`
}

// Activate delivers the activation call for a consumed approval.
func (a *Activator) Activate(ctx context.Context, act promo.Activation) error {
	start := time.Now()
	body, err := json.Marshal(activatePayload{
		Mint:  act.TokenAddress,
		Name:  act.Name,
		Price: act.PriceUSD,
		Mcap:  act.MarketCapUSD,
		Logo:  act.LogoURL,
		Dex:   act.PairURL,
	})
	if err != nil {
		return fmt.Errorf("notify: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/activate", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		logger.Error(ctx, component, "activate.post",
			slog.String("status", "fail"),
			slog.String("token", act.Symbol),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("notify: post activation: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: activation status %s", resp.Status)
	}

	logger.Info(ctx, component, "activate.ok",
		slog.String("status", "ok"),
		slog.String("token", act.Symbol),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}
