package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"pumpcap/internal/infra"
)

// New builds the API handler with CORS enabled on every route. The
// display client polls from a different origin.
func New(logger *slog.Logger, svc ValuationProvider, metrics *infra.Metrics) http.Handler {
	h := &Handler{svc: svc, metrics: metrics, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/mcap", h.GetMarketCap)
	mux.HandleFunc("GET /api/metrics", h.GetMetrics)
	mux.HandleFunc("GET /api/token", h.GetToken)
	mux.HandleFunc("GET /api/token/icon", h.GetTokenIcon)

	return withCORS(mux)
}

// withCORS allows the single-page display to poll from any origin.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe runs the API server until ctx is done, then shuts it
// down with a short grace period.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
