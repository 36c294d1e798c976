package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/asdwsxzc123/jiale-mrp/pkg/logger"
)

func TestRequestIDPropagatesOrMints(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"caller supplied", "trace-abc-123", true},
		{"missing", "", false},
		{"control characters", "abc\ninjected", false},
		{"too long", strings.Repeat("a", maxRequestIDBytes+1), false},
	}
	for _, tt := range tests {
		var seen string
		handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = RequestIDFromContext(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.incoming != "" {
			req.Header.Set(requestIDHeader, tt.incoming)
		}
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)

		echoed := resp.Header().Get(requestIDHeader)
		if echoed == "" || echoed != seen {
			t.Fatalf("%s: header %q and context %q must match", tt.name, echoed, seen)
		}
		if tt.keep && echoed != tt.incoming {
			t.Fatalf("%s: expected caller id to be kept, got %q", tt.name, echoed)
		}
		if !tt.keep && echoed == tt.incoming {
			t.Fatalf("%s: expected a minted id", tt.name)
		}
	}
}

func TestRecovererAnswersInternalError(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})
	handler := Recoverer(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil balance row")
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), "nil balance row") {
		t.Fatalf("panic value leaked to client: %s", resp.Body.String())
	}
	if !strings.Contains(buf.String(), "nil balance row") {
		t.Fatalf("expected panic value in log, got %s", buf.String())
	}
}

func TestRecovererRethrowsAbort(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestLoggingRecordsStatusAndReplay(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})
	handler := Logging(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Idempotent-Replay", "true")
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales/payments", nil)
	req.Header.Set("Idempotency-Key", "pay-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, want := range []string{`"status":201`, `"idempotency_key":"pay-1"`, `"replayed":true`, "request.complete"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in log line: %s", want, out)
		}
	}
}
