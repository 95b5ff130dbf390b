package adminhttp

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/efreitasn/matchd/internal/orderbook"
	"github.com/efreitasn/matchd/internal/pool"
	"github.com/efreitasn/matchd/internal/session"
)

func TestHealthzReportsOK(t *testing.T) {
	p := pool.New[orderbook.Order](0, 0)
	reg := session.NewRegistry(p)
	r := NewRouter(reg, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	p := pool.New[orderbook.Order](0, 0)
	reg := session.NewRegistry(p)
	r := NewRouter(reg, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct == "" {
		t.Fatalf("expected a content type on /metrics response")
	}
}
