package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"pumpcap/internal/domain"
	"pumpcap/internal/infra"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubProvider struct {
	snap domain.Snapshot
	err  error
	meta domain.TokenMetadata
}

func (s *stubProvider) Current() (domain.Snapshot, error) {
	return s.snap, s.err
}

func (s *stubProvider) TokenMetadata() domain.TokenMetadata {
	return s.meta
}

func newTestServer(p *stubProvider) http.Handler {
	return New(newTestLogger(), p, infra.GlobalMetrics)
}

func TestGetMarketCap_OK(t *testing.T) {
	provider := &stubProvider{
		snap: domain.Snapshot{Mcap: 15000, SolPrice: 150, Timestamp: 1700000000000, Error: ""},
	}
	srv := newTestServer(provider)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/mcap", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var got domain.Snapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if got.Mcap != 15000 || got.SolPrice != 150 || got.Timestamp != 1700000000000 {
		t.Errorf("body = %+v", got)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestGetMarketCap_DegradedStateRidesIn200(t *testing.T) {
	provider := &stubProvider{
		snap: domain.Snapshot{Mcap: 0, SolPrice: 150, Timestamp: 1700000000000, Error: domain.ErrMsgNoData},
	}
	srv := newTestServer(provider)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/mcap", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for degraded state", rr.Code)
	}

	var got domain.Snapshot
	json.Unmarshal(rr.Body.Bytes(), &got)
	if got.Error != domain.ErrMsgNoData {
		t.Errorf("error field = %q, want %q", got.Error, domain.ErrMsgNoData)
	}
}

func TestGetMarketCap_StoreFailure(t *testing.T) {
	provider := &stubProvider{
		err: fmt.Errorf("%w: db locked", domain.ErrStoreUnavailable),
	}
	srv := newTestServer(provider)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/mcap", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}

	var got map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("error response is not valid JSON: %v", err)
	}
	if got["error"] != "Database error" {
		t.Errorf("error = %q, want %q", got["error"], "Database error")
	}
}

func TestCORSHeaders(t *testing.T) {
	srv := newTestServer(&stubProvider{})

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/mcap", nil))

	if origin := rr.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", origin)
	}

	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/api/mcap", nil))
	if rr.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rr.Code)
	}
}

func TestGetMetrics(t *testing.T) {
	srv := newTestServer(&stubProvider{})

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var snap infra.MetricsSnapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
		t.Fatalf("metrics response is not valid JSON: %v", err)
	}
}

func TestGetToken(t *testing.T) {
	t.Run("no metadata yet", func(t *testing.T) {
		srv := newTestServer(&stubProvider{})

		rr := httptest.NewRecorder()
		srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/token", nil))
		if rr.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rr.Code)
		}
	})

	t.Run("with metadata", func(t *testing.T) {
		srv := newTestServer(&stubProvider{
			meta: domain.TokenMetadata{Name: "Test Token", Symbol: "TST"},
		})

		rr := httptest.NewRecorder()
		srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/token", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rr.Code)
		}

		var meta domain.TokenMetadata
		json.Unmarshal(rr.Body.Bytes(), &meta)
		if meta.Symbol != "TST" {
			t.Errorf("symbol = %q, want TST", meta.Symbol)
		}
	})
}

func TestGetTokenIcon_MissingFile(t *testing.T) {
	srv := newTestServer(&stubProvider{
		meta: domain.TokenMetadata{Name: "Test Token", IconPath: "does/not/exist.png"},
	})

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/token/icon", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}
