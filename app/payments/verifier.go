package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/m3rciful/trendbot/core/logger"
	"log/slog"
)

// Status classifies the confirmation state of a submitted transaction.
type Status string

const (
	// StatusConfirmed means the provider reports the transaction as
	// confirmed or finalized.
	StatusConfirmed Status = "confirmed"
	// StatusPending covers every other outcome, including lookup failures.
	// The verifier never reports confirmed on error.
	StatusPending Status = "pending"
)

const (
	component      = "service.payments"
	defaultTimeout = 15 * time.Second
)

// Verifier checks transaction confirmation via a JSON-RPC endpoint.
type Verifier struct {
	rpcURL string
	client *http.Client
}

// NewVerifier builds a Verifier for the given RPC endpoint URL.
func NewVerifier(rpcURL string) *Verifier {
	return &Verifier{
		rpcURL: rpcURL,
		client: &http.Client{Timeout: defaultTimeout},
	}
}

type signatureStatusResponse struct {
	Result struct {
		Value []*struct {
			ConfirmationStatus string `json:"confirmationStatus"`
		} `json:"value"`
	} `json:"result"`
}

// CheckStatus queries getSignatureStatuses for the transaction id. The
// returned status is always valid; the error, when non-nil, carries the
// lookup failure for logging and never upgrades the classification.
func (v *Verifier) CheckStatus(ctx context.Context, txid string) (Status, error) {
	start := time.Now()

	payload := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "getSignatureStatuses",
		"params": []any{
			[]string{txid},
			map[string]bool{"searchTransactionHistory": true},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return StatusPending, fmt.Errorf("payments: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.rpcURL, bytes.NewReader(body))
	if err != nil {
		return StatusPending, fmt.Errorf("payments: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		logger.Warn(ctx, component, "verify.rpc",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return StatusPending, fmt.Errorf("payments: rpc call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return StatusPending, fmt.Errorf("payments: rpc status %s", resp.Status)
	}

	var parsed signatureStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return StatusPending, fmt.Errorf("payments: decode response: %w", err)
	}
	if len(parsed.Result.Value) == 0 || parsed.Result.Value[0] == nil {
		logger.Debug(ctx, component, "verify.unknown",
			slog.String("status", "ok"),
			slog.String("pay_status", string(StatusPending)),
			slog.Duration("duration", logger.Took(start)),
		)
		return StatusPending, nil
	}

	status := StatusPending
	switch parsed.Result.Value[0].ConfirmationStatus {
	case "confirmed", "finalized":
		status = StatusConfirmed
	}

	logger.Debug(ctx, component, "verify.ok",
		slog.String("status", "ok"),
		slog.String("pay_status", string(status)),
		slog.Duration("duration", logger.Took(start)),
	)
	return status, nil
}
