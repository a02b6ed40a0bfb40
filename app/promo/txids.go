package promo

import "sync"

// TxLedger is the process-wide set of transaction ids already consumed.
// It guards against double-spend replay across all sessions: once a txid
// is accepted for any user it can never be accepted again. Entries are
// never removed for the lifetime of the process.
type TxLedger struct {
	mu   sync.Mutex
	used map[string]struct{}
}

// NewTxLedger constructs an empty ledger.
func NewTxLedger() *TxLedger {
	return &TxLedger{used: make(map[string]struct{})}
}

// MarkUsed records the txid as consumed. It reports false when the txid
// was already present; check and insert happen under one lock so two
// near-simultaneous submissions of the same id cannot both succeed.
func (l *TxLedger) MarkUsed(txid string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.used[txid]; dup {
		return false
	}
	l.used[txid] = struct{}{}
	return true
}

// Used reports whether the txid was already consumed.
func (l *TxLedger) Used(txid string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.used[txid]
	return ok
}
