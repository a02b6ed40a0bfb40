package promo

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/trendbot/app/payments"
)

var (
	// ErrNotStaged indicates no pending activation exists for the reference,
	// either because it never was staged or because it was already consumed.
	ErrNotStaged = errors.New("promo: reference not staged")
	// ErrUnauthorized indicates a consume attempt by someone other than the
	// designated approver. The staged record is left untouched.
	ErrUnauthorized = errors.New("promo: not the approver")
	// ErrReferenceExists indicates a staging collision: a different
	// submission already occupies the reference.
	ErrReferenceExists = errors.New("promo: reference already staged")
)

// refSuffixLen is how many trailing txid characters form the reference.
// Distinct txids sharing a suffix therefore collide; Stage refuses the
// second one instead of silently rerouting the first approval.
const refSuffixLen = 6

// Activation is the immutable snapshot of a completed session staged for
// operator approval. It is copied out of the session at submission time,
// so later store activity cannot corrupt it.
type Activation struct {
	UserID       int64
	Network      string
	TokenAddress string
	Name         string
	Symbol       string
	PriceUSD     string
	MarketCapUSD float64
	LogoURL      string
	PairURL      string
	Package      string
	DueAmount    decimal.Decimal
	DueCurrency  string
	TxID         string
	PayStatus    payments.Status
}

// ApprovalGate stages completed sessions for one designated approver.
// Records live until consumed; there is no expiry.
type ApprovalGate struct {
	approverID int64

	mu      sync.Mutex
	pending map[string]Activation
}

// NewApprovalGate constructs a gate restricted to the given approver id.
func NewApprovalGate(approverID int64) *ApprovalGate {
	return &ApprovalGate{
		approverID: approverID,
		pending:    make(map[string]Activation),
	}
}

// Reference derives the short reference token for a submission.
func Reference(userID int64, txid string) string {
	suffix := txid
	if len(suffix) > refSuffixLen {
		suffix = suffix[len(suffix)-refSuffixLen:]
	}
	return fmt.Sprintf("%d_%s", userID, suffix)
}

// ApproverID exposes the designated approver identity.
func (g *ApprovalGate) ApproverID() int64 {
	return g.approverID
}

// Stage files a pending activation under the reference. An occupied
// reference is refused rather than overwritten.
func (g *ApprovalGate) Stage(ref string, snapshot Activation) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.pending[ref]; exists {
		return fmt.Errorf("%w: %s", ErrReferenceExists, ref)
	}
	g.pending[ref] = snapshot
	return nil
}

// Consume removes and returns the staged activation. Only the designated
// approver may consume; every reference yields at most one successful
// consumption, after which further calls report ErrNotStaged.
func (g *ApprovalGate) Consume(ref string, callerID int64) (Activation, error) {
	if callerID != g.approverID {
		return Activation{}, ErrUnauthorized
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	snapshot, ok := g.pending[ref]
	if !ok {
		return Activation{}, fmt.Errorf("%w: %s", ErrNotStaged, ref)
	}
	delete(g.pending, ref)
	return snapshot, nil
}
