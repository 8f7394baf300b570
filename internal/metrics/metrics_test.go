package metrics

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestObserveOperation(t *testing.T) {
	okBefore := testutil.ToFloat64(Operations.WithLabelValues("list_agents", "ok"))
	errBefore := testutil.ToFloat64(Operations.WithLabelValues("list_agents", "error"))

	ObserveOperation("list_agents", nil)
	ObserveOperation("list_agents", errors.New("boom"))
	ObserveOperation("list_agents", nil)

	if got := testutil.ToFloat64(Operations.WithLabelValues("list_agents", "ok")) - okBefore; got != 2 {
		t.Fatalf("ok delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(Operations.WithLabelValues("list_agents", "error")) - errBefore; got != 1 {
		t.Fatalf("error delta = %v, want 1", got)
	}
}

func TestHealthz(t *testing.T) {
	root := t.TempDir()
	tests := []struct {
		name   string
		root   string
		code   int
		status string
	}{
		{"healthy", root, http.StatusOK, "healthy"},
		{"missing root", filepath.Join(root, "missing"), http.StatusServiceUnavailable, "degraded"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRouter(zerolog.Nop(), tc.root, "test")
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if rec.Code != tc.code {
				t.Fatalf("code = %d, want %d", rec.Code, tc.code)
			}
			var h Health
			if err := json.Unmarshal(rec.Body.Bytes(), &h); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if h.Status != tc.status || h.Version != "test" {
				t.Fatalf("health = %+v", h)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	MessagesSent.Inc()
	r := NewRouter(zerolog.Nop(), t.TempDir(), "test")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "a2a_messages_sent_total") {
		t.Fatalf("metrics output missing a2a_messages_sent_total")
	}
}
