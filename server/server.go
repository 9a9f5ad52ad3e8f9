package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"tushare-db-syncer/config"
	"tushare-db-syncer/logger"
	"tushare-db-syncer/syncer"
)

// SyncFunc runs one sync. The server never decides pipeline semantics, it
// only maps parameters in and results or errors out.
type SyncFunc func(ctx context.Context, params syncer.Params) (*syncer.Result, error)

type Server struct {
	sync SyncFunc
	http *http.Server
}

func New(sync SyncFunc, addr string) *Server {
	s := &Server{sync: sync}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Get("/health", s.handleHealth)
	router.Post("/stocks/sync", s.handleSync)

	s.http = &http.Server{Addr: addr, Handler: router}

	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		logger.Info("listening on %s", s.http.Addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	return s.http.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	params := syncer.Params{
		Exchange:   query.Get("exchange"),
		ListStatus: query.Get("list_status"),
	}

	if v := query.Get("timeout_s"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "timeout_s must be a positive integer"})
			return
		}
		params.Timeout = time.Duration(seconds) * time.Second
	}

	result, err := s.sync(r.Context(), params)
	if err != nil {
		logger.Error("sync request failed: %s", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("writing response: %s", err)
	}
}
