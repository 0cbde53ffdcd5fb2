// Package api is the HTTP surface of the configuration panel: connection
// testing, saving and resetting settings, health, metrics and reports.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilombo/crm/internal/config"
	"github.com/kilombo/crm/internal/database"
	"github.com/kilombo/crm/internal/domain"
	"github.com/kilombo/crm/internal/logger"
)

// Connections is the part of *database.Manager the API uses.
type Connections interface {
	Acquire(ctx context.Context) (*database.Conn, error)
	TestConnection(ctx context.Context, candidate config.ConnectionConfig) database.TestResult
	RefreshConfiguration()
	Info(ctx context.Context) string
	Stats() database.Stats
}

// ConfigStore persists connection settings. *config.Store implements it.
type ConfigStore interface {
	Connection() config.ConnectionConfig
	Set(cfg config.ConnectionConfig) error
	Reset() error
}

// Reports serves the BI queries. *repository.OrderRepository implements it.
type Reports interface {
	TopCustomersByGrossProfit(ctx context.Context, limit int) ([]domain.CustomerProfit, error)
}

// Server holds the handlers' dependencies.
type Server struct {
	conns   Connections
	store   ConfigStore
	reports Reports
	log     *logger.Logger
}

func New(conns Connections, store ConfigStore, reports Reports, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		conns:   conns,
		store:   store,
		reports: reports,
		log:     log.With().Str("component", "api").Logger(),
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/config", s.handleGetConfig)
		r.Put("/config", s.handlePutConfig)
		r.Post("/config/test", s.handleTestConfig)
		r.Post("/config/reset", s.handleResetConfig)
		r.Get("/reports/top-customers", s.handleTopCustomers)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.log.DebugWith("request", map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  middleware.GetReqID(r.Context()),
		})
	})
}

// ListenAndServe serves Routes on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.InfoWith("http server listening", map[string]any{"addr": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		s.log.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	}
}
