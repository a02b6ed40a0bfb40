package promo

import (
	"github.com/shopspring/decimal"

	"github.com/m3rciful/trendbot/app/market"
)

// Step identifies where a user is in the purchase conversation.
type Step string

const (
	// StepAwaitingNetwork means the user has started but not picked a chain.
	StepAwaitingNetwork Step = "awaiting_network"
	// StepAwaitingTokenAddress means the user must submit a contract address.
	StepAwaitingTokenAddress Step = "awaiting_token_address"
	// StepAwaitingPackageSelection means token metadata resolved and a
	// duration package must be chosen.
	StepAwaitingPackageSelection Step = "awaiting_package_selection"
	// StepAwaitingTransactionID means payment was requested and the user
	// must submit the transaction id.
	StepAwaitingTransactionID Step = "awaiting_transaction_id"
	// StepCompleted means the transaction id was accepted; the session is
	// removed right after reaching this step.
	StepCompleted Step = "completed"
)

// Session tracks one user's progress through the purchase conversation.
// Fields are set strictly in order network, token address and metadata,
// package and due amount; nothing is ever reset short of deleting the
// whole session.
type Session struct {
	UserID       int64
	Step         Step
	Network      string
	TokenAddress string
	Token        *market.Metadata
	Package      string
	DueAmount    decimal.Decimal
	DueCurrency  string
}

// clone returns an independent copy, including the metadata snapshot, so
// callers can never mutate stored state through a returned session.
func (s *Session) clone() Session {
	out := *s
	if s.Token != nil {
		token := *s.Token
		out.Token = &token
	}
	return out
}
