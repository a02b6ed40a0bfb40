package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/trendbot/app/promo"
	"github.com/m3rciful/trendbot/core/logger"
	"log/slog"
)

const component = "service.archive"

// Archive records approved promotions in Postgres for history. Sessions
// and the approval table stay in memory; this is a write-only journal of
// what actually went live.
type Archive struct {
	db *sqlx.DB
}

// NewArchive wraps the shared database handle.
func NewArchive(db *sqlx.DB) *Archive {
	return &Archive{db: db}
}

const insertPromotion = `
	INSERT INTO promotions (
		id, user_id, network, token_address, token_name, token_symbol,
		package, due_amount, due_currency, reference, pay_status,
		approved_by, activated_at
	) VALUES (
		:id, :user_id, :network, :token_address, :token_name, :token_symbol,
		:package, :due_amount, :due_currency, :reference, :pay_status,
		:approved_by, :activated_at
	)`

type promotionRow struct {
	ID           string    `db:"id"`
	UserID       int64     `db:"user_id"`
	Network      string    `db:"network"`
	TokenAddress string    `db:"token_address"`
	TokenName    string    `db:"token_name"`
	TokenSymbol  string    `db:"token_symbol"`
	Package      string    `db:"package"`
	DueAmount    string    `db:"due_amount"`
	DueCurrency  string    `db:"due_currency"`
	Reference    string    `db:"reference"`
	PayStatus    string    `db:"pay_status"`
	ApprovedBy   int64     `db:"approved_by"`
	ActivatedAt  time.Time `db:"activated_at"`
}

// Record inserts one approved promotion.
func (a *Archive) Record(ctx context.Context, act promo.Activation, approvedBy int64) error {
	start := time.Now()
	row := promotionRow{
		ID:           uuid.NewString(),
		UserID:       act.UserID,
		Network:      act.Network,
		TokenAddress: act.TokenAddress,
		TokenName:    act.Name,
		TokenSymbol:  act.Symbol,
		Package:      act.Package,
		DueAmount:    act.DueAmount.String(),
		DueCurrency:  act.DueCurrency,
		Reference:    promo.Reference(act.UserID, act.TxID),
		PayStatus:    string(act.PayStatus),
		ApprovedBy:   approvedBy,
		ActivatedAt:  time.Now().UTC(),
	}
	if _, err := a.db.NamedExecContext(ctx, insertPromotion, row); err != nil {
		return fmt.Errorf("storage: insert promotion: %w", err)
	}
	logger.Debug(ctx, component, "promotion.recorded",
		slog.String("status", "ok"),
		slog.String("token", act.Symbol),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}
