package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/trendbot/core/logger"
	"log/slog"
)

// ErrUnavailable indicates no usable spot price could be obtained. The flow
// must not request payment while the converter is unavailable.
var ErrUnavailable = errors.New("pricing: spot price unavailable")

const (
	component      = "service.pricing"
	defaultTimeout = 15 * time.Second

	// quotePrecision is the number of decimal places of a native quote.
	quotePrecision = 4
)

// slippageBuffer pads the quote by 2% to absorb price movement between
// quoting and payment.
var slippageBuffer = decimal.RequireFromString("1.02")

// feedAssetIDs maps a network symbol to its price-feed asset id. ETH and
// BASE intentionally share one id: both settle in ether.
var feedAssetIDs = map[string]string{
	"SOL":  "solana",
	"ETH":  "ethereum",
	"BSC":  "binancecoin",
	"BASE": "ethereum",
	"SUI":  "sui",
	"XRP":  "ripple",
}

// Quote is a payable amount in a concrete currency.
type Quote struct {
	Amount   decimal.Decimal
	Currency string
}

// Converter turns a USD package price into the amount the user must pay.
type Converter interface {
	Quote(ctx context.Context, network string, usd decimal.Decimal) (Quote, error)
}

// FixedUSD quotes the package price as-is; payment is a USD-equivalent
// transfer to the network wallet.
type FixedUSD struct{}

// Quote returns the USD amount unchanged.
func (FixedUSD) Quote(_ context.Context, _ string, usd decimal.Decimal) (Quote, error) {
	return Quote{Amount: usd, Currency: "USD"}, nil
}

// Live converts USD into the network's native asset using a spot price feed.
type Live struct {
	feedURL string
	client  *http.Client
}

// NewLive builds a live converter against the given price-feed base URL.
func NewLive(feedURL string) *Live {
	return &Live{
		feedURL: strings.TrimRight(feedURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// Quote fetches the spot USD price for the network's native asset and
// returns round(usd/spot*1.02, 4) in that asset. A missing or zero spot
// price yields ErrUnavailable, never a division result.
func (l *Live) Quote(ctx context.Context, network string, usd decimal.Decimal) (Quote, error) {
	assetID, ok := feedAssetIDs[strings.ToUpper(network)]
	if !ok {
		return Quote{}, fmt.Errorf("pricing: unknown network %q: %w", network, ErrUnavailable)
	}

	spot, err := l.spotUSD(ctx, assetID)
	if err != nil {
		logger.Warn(ctx, component, "quote.feed",
			slog.String("status", "fail"),
			slog.String("network", network),
			slog.String("err", err.Error()),
		)
		return Quote{}, err
	}
	if !spot.IsPositive() {
		return Quote{}, fmt.Errorf("pricing: non-positive spot for %s: %w", assetID, ErrUnavailable)
	}

	amount := usd.Div(spot).Mul(slippageBuffer).Round(quotePrecision)
	logger.Debug(ctx, component, "quote.ok",
		slog.String("status", "ok"),
		slog.String("network", network),
		slog.String("amount", amount.String()),
	)
	return Quote{Amount: amount, Currency: strings.ToUpper(network)}, nil
}

func (l *Live) spotUSD(ctx context.Context, assetID string) (decimal.Decimal, error) {
	u := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", l.feedURL, url.QueryEscape(assetID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("pricing: build request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("pricing: fetch spot: %w: %w", err, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("pricing: feed status %s: %w", resp.Status, ErrUnavailable)
	}

	var payload map[string]map[string]decimal.Decimal
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Zero, fmt.Errorf("pricing: decode spot: %w: %w", err, ErrUnavailable)
	}
	entry, ok := payload[assetID]
	if !ok {
		return decimal.Zero, fmt.Errorf("pricing: asset %s missing in feed: %w", assetID, ErrUnavailable)
	}
	spot, ok := entry["usd"]
	if !ok {
		return decimal.Zero, fmt.Errorf("pricing: usd price missing for %s: %w", assetID, ErrUnavailable)
	}
	return spot, nil
}
