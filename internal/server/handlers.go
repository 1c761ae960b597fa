package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"pumpcap/internal/domain"
	"pumpcap/internal/infra"
)

// ValuationProvider is what the handlers need from the valuation
// service.
type ValuationProvider interface {
	Current() (domain.Snapshot, error)
	TokenMetadata() domain.TokenMetadata
}

// Handler serves the polled market-cap API
type Handler struct {
	svc     ValuationProvider
	metrics *infra.Metrics
	logger  *slog.Logger
}

// GetMarketCap serves the current market cap, from cache when fresh.
// Store failure is the only condition surfaced as an HTTP error; every
// other degraded state rides in the error field of a 200 response.
func (h *Handler) GetMarketCap(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Current()
	if err != nil {
		h.logger.Error("Failed to read valuation", slog.Any("error", err))
		msg := "Internal error"
		if errors.Is(err, domain.ErrStoreUnavailable) {
			msg = "Database error"
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msg})
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// GetMetrics exposes the in-process counters.
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.metrics.Snapshot())
}

// GetToken serves the last-fetched token metadata.
func (h *Handler) GetToken(w http.ResponseWriter, r *http.Request) {
	meta := h.svc.TokenMetadata()
	if meta.Name == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "No token metadata yet"})
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// GetTokenIcon serves the locally cached icon image.
func (h *Handler) GetTokenIcon(w http.ResponseWriter, r *http.Request) {
	path := h.svc.TokenMetadata().IconPath
	if path == "" {
		http.NotFound(w, r)
		return
	}
	if _, err := os.Stat(path); err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", slog.Any("error", err))
	}
}
