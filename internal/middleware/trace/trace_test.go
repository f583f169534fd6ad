package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"trackit/internal/log"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	cfg := log.DefaultConfig()
	cfg.Output = &buf
	m := NewMiddleware(log.New(cfg), func(*http.Request) string { return "198.51.100.1" })

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("request id %q is not a uuid", seen)
	}
	if rr.Header().Get(HeaderRequestID) != seen {
		t.Fatal("request id must be echoed in the response")
	}
	out := buf.String()
	if !strings.Contains(out, "status_code=201") || !strings.Contains(out, "request_id="+seen) {
		t.Fatalf("completion log missing fields: %s", out)
	}
	if got := m.GetMetrics(); got.TotalRequests != 1 {
		t.Fatalf("TotalRequests = %d", got.TotalRequests)
	}
}

func TestMiddlewareKeepsValidIncomingID(t *testing.T) {
	m := NewMiddleware(nil, nil)
	incoming := uuid.NewString()

	tests := []struct {
		header string
		keep   bool
	}{
		{incoming, true},
		{"not-a-uuid", false},
	}
	for _, tt := range tests {
		var seen string
		h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetRequestID(r.Context())
		}))
		r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		r.Header.Set(HeaderRequestID, tt.header)
		h.ServeHTTP(httptest.NewRecorder(), r)
		if (seen == tt.header) != tt.keep {
			t.Fatalf("header %q: got id %q, keep=%v", tt.header, seen, tt.keep)
		}
	}
}
