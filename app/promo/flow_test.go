package promo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/trendbot/app/market"
	"github.com/m3rciful/trendbot/app/payments"
	"github.com/m3rciful/trendbot/app/pricing"
)

type fakeResolver struct {
	md  *market.Metadata
	err error
}

func (f *fakeResolver) Resolve(context.Context, string) (*market.Metadata, error) {
	return f.md, f.err
}

type fakeChecker struct {
	status payments.Status
	err    error
}

func (f *fakeChecker) CheckStatus(context.Context, string) (payments.Status, error) {
	return f.status, f.err
}

type fakeActivator struct {
	calls []Activation
	err   error
}

func (f *fakeActivator) Activate(_ context.Context, act Activation) error {
	f.calls = append(f.calls, act)
	return f.err
}

type spotConverter struct {
	spot decimal.Decimal
}

func (c spotConverter) Quote(_ context.Context, network string, usd decimal.Decimal) (pricing.Quote, error) {
	if !c.spot.IsPositive() {
		return pricing.Quote{}, pricing.ErrUnavailable
	}
	amount := usd.Div(c.spot).Mul(decimal.RequireFromString("1.02")).Round(4)
	return pricing.Quote{Amount: amount, Currency: network}, nil
}

const (
	testUser     int64 = 7
	testApprover int64 = 100
	testAddress        = "So11111111111111111111111111111111111111112"
)

func testConfig() Config {
	return Config{
		Networks: []string{"SOL", "ETH"},
		Wallets:  map[string]string{"SOL": "sol-wallet", "ETH": "eth-wallet"},
		Packages: []Package{
			{Key: "24H", USD: decimal.NewFromInt(2500)},
			{Key: "48H", USD: decimal.NewFromInt(5500)},
		},
	}
}

func testFlow(resolver Resolver, converter pricing.Converter, checker StatusChecker, activator Activator) *Flow {
	return NewFlow(
		testConfig(),
		NewStore(),
		NewTxLedger(),
		NewApprovalGate(testApprover),
		resolver,
		converter,
		checker,
		activator,
		nil,
	)
}

func defaultFlow() (*Flow, *fakeActivator) {
	activator := &fakeActivator{}
	flow := testFlow(
		&fakeResolver{md: &market.Metadata{Name: "Alpha", Symbol: "ALP", PriceUSD: "0.01", MarketCapUSD: 1200, PairURL: "https://dex/p"}},
		spotConverter{spot: decimal.NewFromInt(100)},
		&fakeChecker{status: payments.StatusConfirmed},
		activator,
	)
	return flow, activator
}

func advanceToTxID(t *testing.T, flow *Flow) {
	t.Helper()
	ctx := context.Background()
	if err := flow.ChooseNetwork(ctx, testUser, "SOL"); err != nil {
		t.Fatalf("choose network: %v", err)
	}
	if _, err := flow.SubmitTokenAddress(ctx, testUser, testAddress); err != nil {
		t.Fatalf("submit address: %v", err)
	}
	if _, err := flow.ChoosePackage(ctx, testUser, "24H"); err != nil {
		t.Fatalf("choose package: %v", err)
	}
}

func TestFlowHappyPath(t *testing.T) {
	flow, activator := defaultFlow()
	ctx := context.Background()

	if err := flow.ChooseNetwork(ctx, testUser, "SOL"); err != nil {
		t.Fatalf("choose network: %v", err)
	}
	if got := flow.StepOf(testUser); got != StepAwaitingTokenAddress {
		t.Fatalf("step = %s", got)
	}

	md, err := flow.SubmitTokenAddress(ctx, testUser, testAddress)
	if err != nil {
		t.Fatalf("submit address: %v", err)
	}
	if md.Symbol != "ALP" {
		t.Fatalf("metadata = %+v", md)
	}
	if got := flow.StepOf(testUser); got != StepAwaitingPackageSelection {
		t.Fatalf("step = %s", got)
	}

	inv, err := flow.ChoosePackage(ctx, testUser, "24H")
	if err != nil {
		t.Fatalf("choose package: %v", err)
	}
	// 2500 / 100 * 1.02 = 25.5 on the chosen network's native asset.
	if want := decimal.RequireFromString("25.5"); !inv.Amount.Equal(want) {
		t.Fatalf("due = %s, want %s", inv.Amount, want)
	}
	if inv.Currency != "SOL" || inv.Wallet != "sol-wallet" {
		t.Fatalf("invoice = %+v", inv)
	}
	if got := flow.StepOf(testUser); got != StepAwaitingTransactionID {
		t.Fatalf("step = %s", got)
	}

	sub, err := flow.SubmitTxID(ctx, testUser, "abc123")
	if err != nil {
		t.Fatalf("submit txid: %v", err)
	}
	if sub.Ref != fmt.Sprintf("%d_abc123", testUser) {
		t.Fatalf("ref = %s", sub.Ref)
	}
	if sub.Status != payments.StatusConfirmed {
		t.Fatalf("status = %s", sub.Status)
	}
	if got := flow.StepOf(testUser); got != "" {
		t.Fatalf("session must be removed after completion, step = %s", got)
	}

	act, err := flow.Approve(ctx, testApprover, sub.Ref)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if act.Symbol != "ALP" || act.Network != "SOL" || act.Package != "24H" {
		t.Fatalf("activation = %+v", act)
	}
	if len(activator.calls) != 1 {
		t.Fatalf("activation calls = %d", len(activator.calls))
	}
}

func TestFlowTokenNotFoundKeepsStep(t *testing.T) {
	flow := testFlow(
		&fakeResolver{err: market.ErrNotFound},
		spotConverter{spot: decimal.NewFromInt(100)},
		&fakeChecker{status: payments.StatusPending},
		&fakeActivator{},
	)
	ctx := context.Background()
	if err := flow.ChooseNetwork(ctx, testUser, "SOL"); err != nil {
		t.Fatalf("choose network: %v", err)
	}

	_, err := flow.SubmitTokenAddress(ctx, testUser, testAddress)
	if !errors.Is(err, market.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := flow.StepOf(testUser); got != StepAwaitingTokenAddress {
		t.Fatalf("failed resolution must keep the step, got %s", got)
	}
}

func TestFlowTransientResolutionKeepsStep(t *testing.T) {
	flow := testFlow(
		&fakeResolver{err: errors.New("market: fetch pairs: timeout")},
		spotConverter{spot: decimal.NewFromInt(100)},
		&fakeChecker{},
		&fakeActivator{},
	)
	ctx := context.Background()
	_ = flow.ChooseNetwork(ctx, testUser, "SOL")

	if _, err := flow.SubmitTokenAddress(ctx, testUser, testAddress); err == nil {
		t.Fatal("expected error")
	}
	if got := flow.StepOf(testUser); got != StepAwaitingTokenAddress {
		t.Fatalf("step = %s", got)
	}
}

func TestFlowRejectsMalformedSolanaAddress(t *testing.T) {
	flow, _ := defaultFlow()
	ctx := context.Background()
	_ = flow.ChooseNetwork(ctx, testUser, "SOL")

	_, err := flow.SubmitTokenAddress(ctx, testUser, "0xdeadbeef")
	if !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
	if got := flow.StepOf(testUser); got != StepAwaitingTokenAddress {
		t.Fatalf("step = %s", got)
	}
}

func TestFlowEVMAddressAllowedOffSolana(t *testing.T) {
	flow, _ := defaultFlow()
	ctx := context.Background()
	_ = flow.ChooseNetwork(ctx, testUser, "ETH")

	if _, err := flow.SubmitTokenAddress(ctx, testUser, "0x1234567890abcdef1234567890abcdef12345678"); err != nil {
		t.Fatalf("submit address: %v", err)
	}
}

func TestFlowQuoteUnavailableNoAdvance(t *testing.T) {
	flow := testFlow(
		&fakeResolver{md: &market.Metadata{Symbol: "ALP"}},
		spotConverter{}, // zero spot: unavailable
		&fakeChecker{},
		&fakeActivator{},
	)
	ctx := context.Background()
	_ = flow.ChooseNetwork(ctx, testUser, "SOL")
	if _, err := flow.SubmitTokenAddress(ctx, testUser, testAddress); err != nil {
		t.Fatalf("submit address: %v", err)
	}

	_, err := flow.ChoosePackage(ctx, testUser, "24H")
	if !errors.Is(err, pricing.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if got := flow.StepOf(testUser); got != StepAwaitingPackageSelection {
		t.Fatalf("unavailable quote must not request payment, step = %s", got)
	}
}

func TestFlowDuplicateTxIDRejected(t *testing.T) {
	flow, _ := defaultFlow()
	ctx := context.Background()
	advanceToTxID(t, flow)

	if _, err := flow.SubmitTxID(ctx, testUser, "abc123"); err != nil {
		t.Fatalf("first submission: %v", err)
	}

	// A second user replaying the same txid is rejected with no new record.
	other := testUser + 1
	_ = flow.ChooseNetwork(ctx, other, "SOL")
	if _, err := flow.SubmitTokenAddress(ctx, other, testAddress); err != nil {
		t.Fatalf("submit address: %v", err)
	}
	if _, err := flow.ChoosePackage(ctx, other, "24H"); err != nil {
		t.Fatalf("choose package: %v", err)
	}
	_, err := flow.SubmitTxID(ctx, other, "abc123")
	if !errors.Is(err, ErrDuplicateTxID) {
		t.Fatalf("expected ErrDuplicateTxID, got %v", err)
	}
	if got := flow.StepOf(other); got != StepAwaitingTransactionID {
		t.Fatalf("rejected duplicate must keep the step, got %s", got)
	}
}

func TestFlowPendingVerificationStillStages(t *testing.T) {
	flow := testFlow(
		&fakeResolver{md: &market.Metadata{Symbol: "ALP"}},
		spotConverter{spot: decimal.NewFromInt(100)},
		&fakeChecker{status: payments.StatusPending, err: errors.New("rpc down")},
		&fakeActivator{},
	)
	advanceToTxID(t, flow)

	sub, err := flow.SubmitTxID(context.Background(), testUser, "abc123")
	if err != nil {
		t.Fatalf("submit txid: %v", err)
	}
	if sub.Status != payments.StatusPending {
		t.Fatalf("status = %s", sub.Status)
	}
}

func TestFlowApproveUnauthorized(t *testing.T) {
	flow, activator := defaultFlow()
	ctx := context.Background()
	advanceToTxID(t, flow)
	sub, err := flow.SubmitTxID(ctx, testUser, "abc123")
	if err != nil {
		t.Fatalf("submit txid: %v", err)
	}

	if _, err := flow.Approve(ctx, testUser, sub.Ref); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if len(activator.calls) != 0 {
		t.Fatal("rejected approval must not activate")
	}

	// The record survives for the real approver.
	if _, err := flow.Approve(ctx, testApprover, sub.Ref); err != nil {
		t.Fatalf("approve: %v", err)
	}
	// And is consumed exactly once.
	if _, err := flow.Approve(ctx, testApprover, sub.Ref); !errors.Is(err, ErrNotStaged) {
		t.Fatalf("expected ErrNotStaged, got %v", err)
	}
}

func TestFlowDropsEventsWithoutSession(t *testing.T) {
	flow, _ := defaultFlow()
	ctx := context.Background()

	if _, err := flow.SubmitTokenAddress(ctx, testUser, testAddress); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if _, err := flow.ChoosePackage(ctx, testUser, "24H"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if _, err := flow.SubmitTxID(ctx, testUser, "abc123"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestFlowOutOfOrderEventsDropped(t *testing.T) {
	flow, _ := defaultFlow()
	ctx := context.Background()
	_ = flow.ChooseNetwork(ctx, testUser, "SOL")

	// Package choice before a token resolves is dropped.
	if _, err := flow.ChoosePackage(ctx, testUser, "24H"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	// So is a txid.
	if _, err := flow.SubmitTxID(ctx, testUser, "abc123"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestFlowUnknownNetworkAndPackage(t *testing.T) {
	flow, _ := defaultFlow()
	ctx := context.Background()

	if err := flow.ChooseNetwork(ctx, testUser, "DOGE"); !errors.Is(err, ErrUnknownNetwork) {
		t.Fatalf("expected ErrUnknownNetwork, got %v", err)
	}

	_ = flow.ChooseNetwork(ctx, testUser, "SOL")
	if _, err := flow.SubmitTokenAddress(ctx, testUser, testAddress); err != nil {
		t.Fatalf("submit address: %v", err)
	}
	if _, err := flow.ChoosePackage(ctx, testUser, "999H"); !errors.Is(err, ErrUnknownPackage) {
		t.Fatalf("expected ErrUnknownPackage, got %v", err)
	}
}

func TestFlowApproveRetriesAfterActivatorFailure(t *testing.T) {
	flow, activator := defaultFlow()
	ctx := context.Background()

	advanceToTxID(t, flow)
	sub, err := flow.SubmitTxID(ctx, testUser, "abc123")
	if err != nil {
		t.Fatalf("submit txid: %v", err)
	}

	activator.err = errors.New("worker down")
	if _, err := flow.Approve(ctx, testApprover, sub.Ref); err == nil {
		t.Fatalf("expected activation failure")
	}

	// The record is staged again, so a second press succeeds once the
	// worker recovers.
	activator.err = nil
	act, err := flow.Approve(ctx, testApprover, sub.Ref)
	if err != nil {
		t.Fatalf("retry approve: %v", err)
	}
	if act.TxID != "abc123" {
		t.Fatalf("activation = %+v", act)
	}
	if len(activator.calls) != 2 {
		t.Fatalf("activation calls = %d", len(activator.calls))
	}
}
