// Package api serves temperature conversions, host sensor readings, and the
// state of the bridge over HTTP.
//
// Every response other than /metrics and /healthz is JSON. Errors are
// returned as {"error": "..."} with a 4xx or 5xx status.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lone-faerie/thermo/bridge"
	"github.com/lone-faerie/thermo/config"
	"github.com/lone-faerie/thermo/history"
	"github.com/lone-faerie/thermo/log"
	"github.com/lone-faerie/thermo/metrics"
	"github.com/lone-faerie/thermo/temperature"
)

// Server is the HTTP API.
type Server struct {
	addr    string
	scale   temperature.Scale
	bridge  *bridge.Bridge
	sensors []bridge.Sensor
	history *history.Store
	metrics bool

	router chi.Router
}

type Option func(*Server)

// WithBridge serves the routes and counters of b, and the sensors it publishes
// unless [WithSensors] is given.
func WithBridge(b *bridge.Bridge) Option {
	return func(s *Server) {
		s.bridge = b
	}
}

// WithHistory serves the readings stored in h at /history.
func WithHistory(h *history.Store) Option {
	return func(s *Server) {
		s.history = h
	}
}

// WithSensors sets the sensors served at /sensors.
func WithSensors(sensors ...bridge.Sensor) Option {
	return func(s *Server) {
		s.sensors = append(s.sensors, sensors...)
	}
}

// New returns a new Server configured by cfg.HTTP. The default scale of
// conversions and sensor readings is cfg.Scale.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		addr:    cfg.HTTP.Addr,
		scale:   cfg.Scale,
		metrics: cfg.HTTP.Metrics,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.sensors == nil && s.bridge != nil {
		s.sensors = s.bridge.Sensors()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Get("/scales", s.listScales)
	r.Get("/convert", s.convert)
	r.Post("/convert", s.convertPayload)
	r.Route("/sensors", func(r chi.Router) {
		r.Get("/", s.listSensors)
		r.Get("/{id}", s.getSensor)
	})
	if s.bridge != nil {
		r.Get("/routes", s.listRoutes)
		r.Get("/stats", s.stats)
	}
	if s.history != nil {
		r.Get("/history", s.listHistory)
	}

	if s.metrics {
		var stats func() bridge.Stats
		if s.bridge != nil {
			stats = s.bridge.Stats
		}
		reg, err := metrics.NewRegistry(metrics.NewCollector(stats, s.sensors, s.scale), s.bridge)
		if err != nil {
			return nil, err
		}
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	s.router = r
	return s, nil
}

// Handler returns the handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves the API on the configured address until ctx is done,
// then shuts the server down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("Serving HTTP API", "addr", s.addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// logRequests logs every request once it has been served.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"id", middleware.GetReqID(r.Context()),
		)
	})
}
