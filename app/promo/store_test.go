package promo

import (
	"errors"
	"sync"
	"testing"
)

func TestStoreMissIsAbsence(t *testing.T) {
	s := NewStore()
	if _, ok := s.Get(1); ok {
		t.Fatal("expected no session")
	}
	if got := s.StepOf(1); got != "" {
		t.Fatalf("step = %q", got)
	}
}

func TestStoreCreateOrReplace(t *testing.T) {
	s := NewStore()
	s.CreateOrReplace(7, "SOL")

	sess, ok := s.Get(7)
	if !ok {
		t.Fatal("session missing")
	}
	if sess.Step != StepAwaitingTokenAddress || sess.Network != "SOL" {
		t.Fatalf("unexpected session: %+v", sess)
	}

	// Replacing discards everything from the previous conversation.
	s.Update(7, func(sess *Session) { sess.TokenAddress = "abc" })
	s.CreateOrReplace(7, "ETH")
	sess, _ = s.Get(7)
	if sess.Network != "ETH" || sess.TokenAddress != "" {
		t.Fatalf("replace kept old state: %+v", sess)
	}
}

func TestStoreUpdateAbsent(t *testing.T) {
	s := NewStore()
	called := false
	if s.Update(1, func(*Session) { called = true }) {
		t.Fatal("update on absent session must report false")
	}
	if called {
		t.Fatal("mutator must not run without a session")
	}
}

func TestStoreGetReturnsCopy(t *testing.T) {
	s := NewStore()
	s.CreateOrReplace(1, "SOL")

	sess, _ := s.Get(1)
	sess.Network = "ETH"

	again, _ := s.Get(1)
	if again.Network != "SOL" {
		t.Fatal("Get must return an isolated copy")
	}
}

func TestStoreRemove(t *testing.T) {
	s := NewStore()
	s.CreateOrReplace(1, "SOL")
	s.Remove(1)
	if _, ok := s.Get(1); ok {
		t.Fatal("session should be gone")
	}
	s.Remove(1) // no-op
}

func TestTxLedgerMarkUsedOnce(t *testing.T) {
	l := NewTxLedger()
	if !l.MarkUsed("abc123") {
		t.Fatal("first mark must succeed")
	}
	if l.MarkUsed("abc123") {
		t.Fatal("second mark must fail")
	}
	if !l.Used("abc123") {
		t.Fatal("ledger lost the entry")
	}
}

func TestTxLedgerConcurrentMark(t *testing.T) {
	l := NewTxLedger()
	const workers = 32
	wins := make(chan bool, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins <- l.MarkUsed("same-txid")
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for w := range wins {
		if w {
			won++
		}
	}
	if won != 1 {
		t.Fatalf("exactly one submission may win, got %d", won)
	}
}

func TestReferenceDerivation(t *testing.T) {
	if got := Reference(42, "abcdefghij"); got != "42_efghij" {
		t.Fatalf("ref = %s", got)
	}
	// Short ids are used whole.
	if got := Reference(42, "abc"); got != "42_abc" {
		t.Fatalf("ref = %s", got)
	}
}

func TestApprovalGateConsumeOnce(t *testing.T) {
	g := NewApprovalGate(100)
	act := Activation{UserID: 7, Symbol: "ALP", TxID: "abc123"}
	if err := g.Stage("7_abc123", act); err != nil {
		t.Fatalf("stage: %v", err)
	}

	got, err := g.Consume("7_abc123", 100)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if got.Symbol != "ALP" {
		t.Fatalf("snapshot = %+v", got)
	}

	if _, err := g.Consume("7_abc123", 100); !errors.Is(err, ErrNotStaged) {
		t.Fatalf("second consume: %v", err)
	}
}

func TestApprovalGateUnauthorized(t *testing.T) {
	g := NewApprovalGate(100)
	if err := g.Stage("ref", Activation{}); err != nil {
		t.Fatalf("stage: %v", err)
	}

	if _, err := g.Consume("ref", 7); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	// The record must survive the rejected attempt.
	if _, err := g.Consume("ref", 100); err != nil {
		t.Fatalf("approver consume after rejection: %v", err)
	}
}

func TestApprovalGateStageCollision(t *testing.T) {
	g := NewApprovalGate(100)
	if err := g.Stage("ref", Activation{TxID: "a"}); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if err := g.Stage("ref", Activation{TxID: "b"}); !errors.Is(err, ErrReferenceExists) {
		t.Fatalf("expected ErrReferenceExists, got %v", err)
	}
	got, err := g.Consume("ref", 100)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if got.TxID != "a" {
		t.Fatal("collision must not overwrite the first record")
	}
}

func TestApprovalGateConsumeMissing(t *testing.T) {
	g := NewApprovalGate(100)
	if _, err := g.Consume("nope", 100); !errors.Is(err, ErrNotStaged) {
		t.Fatalf("expected ErrNotStaged, got %v", err)
	}
}
