// Package server exposes the churn predictor, the sales forecasts and the
// product recommender over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/Harley062/projeto-IA-Adega/internal/predict"
	"github.com/Harley062/projeto-IA-Adega/internal/state"
)

// Defaults for the HTTP listener.
const (
	DefaultAddr              = ":8080"
	DefaultReadHeaderTimeout = 10 * time.Second
	shutdownTimeout          = 5 * time.Second
)

// Config holds configuration for the API server.
type Config struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	// Predictor scores customers. Without one the prediction routes answer
	// 503.
	Predictor *predict.ChurnPredictor
	Sales     *predict.SalesPredictor
	Products  *predict.ProductRecommender
	// Store records served predictions and lists runs (optional).
	Store state.Store
	// WatchDir, when set together with Reload, is watched for new model
	// bundles. Reload builds the replacement predictor.
	WatchDir string
	Reload   func() (*predict.ChurnPredictor, error)
	Logger   *slog.Logger
}

// Server is the prediction API server.
type Server struct {
	cfg       Config
	logger    *slog.Logger
	metrics   *metrics
	router    chi.Router
	predictor atomic.Pointer[predict.ChurnPredictor]
}

// New creates a server and builds its routes.
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{cfg: cfg, logger: logger, metrics: newMetrics()}
	if cfg.Predictor != nil {
		s.predictor.Store(cfg.Predictor)
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		s.instrument,
	)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/predict", s.handlePredict)
		r.Post("/predict/batch", s.handlePredictBatch)
		r.Get("/customers/{id}/next-purchase", s.handleNextPurchase)
		r.Get("/customers/{id}/recommendations", s.handleRecommendations)
		r.Get("/revenue", s.handleRevenue)
		r.Get("/runs", s.handleRuns)
	})
	return r
}

// instrument logs and counts every request under its route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.observeRequest(r.Method, route, status, time.Since(start))
		s.logger.Debug("request served",
			"method", r.Method, "route", route, "status", status,
			"duration", time.Since(start), "request_id", middleware.GetReqID(r.Context()))
	})
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting API server", "addr", ln.Addr().String())

	eg, egctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Handler: s.router,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if s.cfg.WatchDir != "" && s.cfg.Reload != nil {
		eg.Go(func() error {
			return s.watchModels(egctx)
		})
	}

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down API server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
