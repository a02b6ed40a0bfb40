package payments

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestVerifier(t *testing.T, handler http.HandlerFunc) *Verifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewVerifier(srv.URL)
}

func TestCheckStatusFinalized(t *testing.T) {
	v := newTestVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var req map[string]any
		if err := json.Unmarshal(raw, &req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req["method"] != "getSignatureStatuses" {
			t.Errorf("method = %v", req["method"])
		}
		params, _ := req["params"].([]any)
		if len(params) != 2 {
			t.Fatalf("params = %v", req["params"])
		}
		opts, _ := params[1].(map[string]any)
		if opts["searchTransactionHistory"] != true {
			t.Errorf("searchTransactionHistory not set")
		}
		_, _ = w.Write([]byte(`{"result":{"value":[{"confirmationStatus":"finalized"}]}}`))
	})

	status, err := v.CheckStatus(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if status != StatusConfirmed {
		t.Fatalf("status = %s", status)
	}
}

func TestCheckStatusConfirmed(t *testing.T) {
	v := newTestVerifier(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"value":[{"confirmationStatus":"confirmed"}]}}`))
	})
	status, err := v.CheckStatus(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if status != StatusConfirmed {
		t.Fatalf("status = %s", status)
	}
}

func TestCheckStatusProcessedIsPending(t *testing.T) {
	v := newTestVerifier(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"value":[{"confirmationStatus":"processed"}]}}`))
	})
	status, err := v.CheckStatus(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if status != StatusPending {
		t.Fatalf("status = %s", status)
	}
}

func TestCheckStatusUnknownSignatureIsPending(t *testing.T) {
	v := newTestVerifier(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"value":[null]}}`))
	})
	status, err := v.CheckStatus(context.Background(), "missing")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if status != StatusPending {
		t.Fatalf("status = %s", status)
	}
}

func TestCheckStatusRPCFailureIsPendingWithError(t *testing.T) {
	v := newTestVerifier(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	status, err := v.CheckStatus(context.Background(), "abc123")
	if err == nil {
		t.Fatal("expected diagnostic error")
	}
	if status != StatusPending {
		t.Fatalf("failure must classify as pending, got %s", status)
	}
}

func TestCheckStatusMalformedBodyIsPending(t *testing.T) {
	v := newTestVerifier(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"result":`))
	})
	status, err := v.CheckStatus(context.Background(), "abc123")
	if err == nil {
		t.Fatal("expected diagnostic error")
	}
	if status != StatusPending {
		t.Fatalf("status = %s", status)
	}
}

func TestCheckStatusUnreachableIsPending(t *testing.T) {
	v := NewVerifier("http://127.0.0.1:1")
	status, err := v.CheckStatus(context.Background(), "abc123")
	if err == nil {
		t.Fatal("expected diagnostic error")
	}
	if status != StatusPending {
		t.Fatalf("status = %s", status)
	}
}
