// Package web serves the operational endpoints: a liveness probe and a
// JSON snapshot of every refresh loop's state.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"

	"github.com/hlltools/server-status/internal/refresh"
)

// NewRouter builds the chi router for the operational endpoints.
func NewRouter(runner *refresh.Runner) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	c := corslib.New(corslib.Options{
		AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
	})
	r.Use(c.Handler)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		sections := runner.Snapshot()
		sort.Slice(sections, func(i, j int) bool {
			if sections[i].Server != sections[j].Server {
				return sections[i].Server < sections[j].Server
			}
			return sections[i].Section < sections[j].Section
		})
		writeJSON(w, http.StatusOK, map[string]any{"sections": sections})
	})

	return r
}

// Serve runs the operational HTTP server until ctx is cancelled.
func Serve(ctx context.Context, addr string, runner *refresh.Runner, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(runner),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("status server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
