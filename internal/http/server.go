package httpserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Clark-Hu/rating-pulse/internal/config"
	"github.com/Clark-Hu/rating-pulse/internal/repository"
	"github.com/Clark-Hu/rating-pulse/internal/store"
	"github.com/Clark-Hu/rating-pulse/internal/stream"
)

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg     config.Config
	store   *store.Store
	repo    *repository.Repository
	hub     *stream.Hub
	logger  *log.Logger
	router  chi.Router
	httpSrv *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, st *store.Store, repo *repository.Repository, hub *stream.Hub, logger *log.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		cfg:    cfg,
		store:  st,
		repo:   repo,
		hub:    hub,
		logger: logger,
		router: r,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/rate", s.handleRate)
		r.Get("/ratings", s.handleGetRatings)
		r.Delete("/ratings", s.handleClearRatings)
		r.Method(http.MethodGet, "/stream", stream.NewHandler(s.hub, stream.HandlerOptions{
			Heartbeat:   time.Duration(s.cfg.StreamHeartbeatSecs) * time.Second,
			AllowOrigin: s.cfg.CORSAllowOrigin,
		}, s.logger))
	})
}

// Handler returns the fully wrapped request handler.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "ratings-api")
}

// Start boots the HTTP server and blocks until ctx ends or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}
	// Push connections never go idle on their own; end them so Shutdown can drain.
	s.httpSrv.RegisterOnShutdown(s.hub.Close)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("http: listening on %s", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.HealthCheck(ctx); err != nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
