package promo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/trendbot/app/market"
	"github.com/m3rciful/trendbot/app/payments"
	"github.com/m3rciful/trendbot/app/pricing"
	"github.com/m3rciful/trendbot/core/logger"
	"log/slog"
)

var (
	// ErrNoSession indicates an event from a user with no active session or
	// in a step that does not accept the event. The event is dropped.
	ErrNoSession = errors.New("promo: no active session for this step")
	// ErrUnknownNetwork indicates a network symbol outside the configured set.
	ErrUnknownNetwork = errors.New("promo: unknown network")
	// ErrUnknownPackage indicates a package key outside the configured set.
	ErrUnknownPackage = errors.New("promo: unknown package")
	// ErrInvalidAddress indicates the submitted address cannot be a contract
	// address on the chosen network.
	ErrInvalidAddress = errors.New("promo: invalid token address")
	// ErrDuplicateTxID indicates the transaction id was consumed before, by
	// any user. The session is left untouched.
	ErrDuplicateTxID = errors.New("promo: transaction id already used")
)

var solanaAddressRe = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

// Package is one purchasable promotion tier.
type Package struct {
	Key string
	USD decimal.Decimal
}

// Config declares the purchasable surface of the flow.
type Config struct {
	// Networks lists supported chain symbols in display order.
	Networks []string
	// Wallets maps a network symbol to its deposit wallet address.
	Wallets map[string]string
	// Packages lists promotion tiers in display order.
	Packages []Package
}

// Resolver resolves a token address into market metadata.
type Resolver interface {
	Resolve(ctx context.Context, address string) (*market.Metadata, error)
}

// StatusChecker classifies a transaction id's confirmation state.
type StatusChecker interface {
	CheckStatus(ctx context.Context, txid string) (payments.Status, error)
}

// Activator delivers the activation call once an approval is consumed.
type Activator interface {
	Activate(ctx context.Context, act Activation) error
}

// Archiver records an approved promotion for history. Optional.
type Archiver interface {
	Record(ctx context.Context, act Activation, approvedBy int64) error
}

// Invoice is the payment request produced by a package choice.
type Invoice struct {
	Amount   decimal.Decimal
	Currency string
	Wallet   string
}

// Submission is the outcome of an accepted transaction id.
type Submission struct {
	Ref        string
	Status     payments.Status
	Activation Activation
}

// Flow drives the purchase conversation. It owns every session transition;
// the chat layer only translates updates into calls and renders results.
type Flow struct {
	cfg       Config
	store     *Store
	txids     *TxLedger
	gate      *ApprovalGate
	resolver  Resolver
	converter pricing.Converter
	checker   StatusChecker
	activator Activator
	archive   Archiver
}

// NewFlow wires a Flow from its collaborators. archive may be nil.
func NewFlow(
	cfg Config,
	store *Store,
	txids *TxLedger,
	gate *ApprovalGate,
	resolver Resolver,
	converter pricing.Converter,
	checker StatusChecker,
	activator Activator,
	archive Archiver,
) *Flow {
	return &Flow{
		cfg:       cfg,
		store:     store,
		txids:     txids,
		gate:      gate,
		resolver:  resolver,
		converter: converter,
		checker:   checker,
		activator: activator,
		archive:   archive,
	}
}

// Networks returns the supported chain symbols in display order.
func (f *Flow) Networks() []string {
	return f.cfg.Networks
}

// Packages returns the promotion tiers in display order.
func (f *Flow) Packages() []Package {
	return f.cfg.Packages
}

// FindPackage looks up a tier by key.
func (f *Flow) FindPackage(key string) (Package, bool) {
	for _, p := range f.cfg.Packages {
		if p.Key == key {
			return p, true
		}
	}
	return Package{}, false
}

// StepOf reports the user's current conversation step, "" when idle.
func (f *Flow) StepOf(userID int64) Step {
	return f.store.StepOf(userID)
}

// ApproverID exposes the designated approver identity.
func (f *Flow) ApproverID() int64 {
	return f.gate.ApproverID()
}

// ChooseNetwork starts a fresh session on the chosen network, replacing
// any prior conversation of that user.
func (f *Flow) ChooseNetwork(ctx context.Context, userID int64, symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if _, ok := f.cfg.Wallets[symbol]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNetwork, symbol)
	}
	f.store.CreateOrReplace(userID, symbol)
	logger.Info(ctx, "service.sessions", "session.start",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("network", symbol),
	)
	return nil
}

// SubmitTokenAddress resolves metadata for the address and, on success,
// advances the session to package selection. Any resolution failure
// leaves the session exactly where it was so the user can resubmit.
func (f *Flow) SubmitTokenAddress(ctx context.Context, userID int64, address string) (*market.Metadata, error) {
	sess, ok := f.store.Get(userID)
	if !ok || sess.Step != StepAwaitingTokenAddress {
		return nil, ErrNoSession
	}

	address = strings.TrimSpace(address)
	if sess.Network == "SOL" && !solanaAddressRe.MatchString(address) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, address)
	}

	md, err := f.resolver.Resolve(ctx, address)
	if err != nil {
		logger.Info(ctx, "service.sessions", "token.rejected",
			slog.String("status", "skip"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return nil, err
	}

	f.store.Update(userID, func(s *Session) {
		s.TokenAddress = address
		s.Token = md
		s.Step = StepAwaitingPackageSelection
	})
	logger.Info(ctx, "service.sessions", "token.accepted",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("token", md.Symbol),
	)
	return md, nil
}

// ChoosePackage fixes the tier and computes the payable amount. When the
// converter is unavailable no payment is requested and the session stays
// at package selection.
func (f *Flow) ChoosePackage(ctx context.Context, userID int64, key string) (Invoice, error) {
	sess, ok := f.store.Get(userID)
	if !ok || sess.Step != StepAwaitingPackageSelection {
		return Invoice{}, ErrNoSession
	}
	pkg, ok := f.FindPackage(key)
	if !ok {
		return Invoice{}, fmt.Errorf("%w: %s", ErrUnknownPackage, key)
	}

	quote, err := f.converter.Quote(ctx, sess.Network, pkg.USD)
	if err != nil {
		return Invoice{}, fmt.Errorf("quote %s for %s: %w", pkg.Key, sess.Network, err)
	}

	f.store.Update(userID, func(s *Session) {
		s.Package = pkg.Key
		s.DueAmount = quote.Amount
		s.DueCurrency = quote.Currency
		s.Step = StepAwaitingTransactionID
	})
	logger.Info(ctx, "service.sessions", "package.selected",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("package", pkg.Key),
		slog.String("network", sess.Network),
	)
	return Invoice{
		Amount:   quote.Amount,
		Currency: quote.Currency,
		Wallet:   f.cfg.Wallets[sess.Network],
	}, nil
}

// SubmitTxID consumes a fresh transaction id, stages the completed session
// for approval and removes it from the store. A duplicate id is rejected
// with no state change. The verifier's classification is advisory: it is
// surfaced to the approver, it never gates acceptance.
func (f *Flow) SubmitTxID(ctx context.Context, userID int64, txid string) (Submission, error) {
	sess, ok := f.store.Get(userID)
	if !ok || sess.Step != StepAwaitingTransactionID {
		return Submission{}, ErrNoSession
	}

	txid = strings.TrimSpace(txid)
	if !f.txids.MarkUsed(txid) {
		logger.Warn(ctx, "service.sessions", "txid.duplicate",
			slog.String("status", "skip"),
			slog.Int64("user_id", userID),
		)
		return Submission{}, ErrDuplicateTxID
	}

	status, verr := f.checker.CheckStatus(ctx, txid)
	if verr != nil {
		logger.Warn(ctx, "service.payments", "verify.degraded",
			slog.String("status", "fail"),
			slog.String("pay_status", string(status)),
			slog.String("err", verr.Error()),
		)
	}

	act := Activation{
		UserID:       userID,
		Network:      sess.Network,
		TokenAddress: sess.TokenAddress,
		Package:      sess.Package,
		DueAmount:    sess.DueAmount,
		DueCurrency:  sess.DueCurrency,
		TxID:         txid,
		PayStatus:    status,
	}
	if sess.Token != nil {
		act.Name = sess.Token.Name
		act.Symbol = sess.Token.Symbol
		act.PriceUSD = sess.Token.PriceUSD
		act.MarketCapUSD = sess.Token.MarketCapUSD
		act.LogoURL = sess.Token.LogoURL
		act.PairURL = sess.Token.PairURL
	}

	ref := Reference(userID, txid)
	if err := f.gate.Stage(ref, act); err != nil {
		// The txid stays consumed: the reference scheme cannot tell two
		// ids with the same trailing characters apart, so re-accepting
		// is not safe either.
		return Submission{}, fmt.Errorf("stage %s: %w", ref, err)
	}

	f.store.Update(userID, func(s *Session) { s.Step = StepCompleted })
	f.store.Remove(userID)

	logger.Info(ctx, "service.approvals", "submission.staged",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("ref", ref),
		slog.String("pay_status", string(status)),
	)
	return Submission{Ref: ref, Status: status, Activation: act}, nil
}

// Approve consumes the staged record and fires the activation call. Only
// the designated approver succeeds; anyone else is rejected without side
// effects. A consumed reference cannot be approved twice.
func (f *Flow) Approve(ctx context.Context, callerID int64, ref string) (Activation, error) {
	act, err := f.gate.Consume(ref, callerID)
	if err != nil {
		logger.Warn(ctx, "service.approvals", "approve.rejected",
			slog.String("status", "skip"),
			slog.Int64("user_id", callerID),
			slog.String("ref", ref),
			slog.String("err", err.Error()),
		)
		return Activation{}, err
	}

	if err := f.activator.Activate(ctx, act); err != nil {
		// Put the record back so the approver can retry once the worker
		// recovers.
		if stageErr := f.gate.Stage(ref, act); stageErr != nil {
			logger.Error(ctx, "service.approvals", "restage.failed",
				slog.String("status", "fail"),
				slog.String("ref", ref),
				slog.String("err", stageErr.Error()),
			)
		}
		return Activation{}, fmt.Errorf("activate %s: %w", ref, err)
	}

	if f.archive != nil {
		if err := f.archive.Record(ctx, act, callerID); err != nil {
			logger.Error(ctx, "service.archive", "record.failed",
				slog.String("status", "fail"),
				slog.String("ref", ref),
				slog.String("err", err.Error()),
			)
		}
	}

	logger.Info(ctx, "service.approvals", "approve.ok",
		slog.String("status", "ok"),
		slog.String("ref", ref),
		slog.String("token", act.Symbol),
	)
	return act, nil
}
