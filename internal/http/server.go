// Package http exposes the service's HTTP surface: search, cross-platform
// match, landing-page and preview-card payloads, plus health and metrics.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tunebridge/internal/core"
)

type Server struct {
	config  *core.ServerConfig
	logger  *zap.Logger
	server  *http.Server
	metrics *Metrics
}

type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	SearchesTotal   prometheus.Counter
	MatchesTotal    *prometheus.CounterVec
	CatalogErrors   prometheus.Counter
}

func NewServer(config *core.ServerConfig, logger *zap.Logger, catalog core.CatalogClient, links core.LinkResolver) *Server {
	metrics := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tunebridge_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tunebridge_request_duration_seconds",
				Help:    "Time spent serving HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		SearchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tunebridge_searches_total",
				Help: "Total number of mixed search requests",
			},
		),
		MatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tunebridge_matches_total",
				Help: "Total number of cross-platform match requests",
			},
			[]string{"content_type"},
		),
		CatalogErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tunebridge_catalog_errors_total",
				Help: "Total number of catalog provider failures",
			},
		),
	}

	prometheus.MustRegister(
		metrics.RequestsTotal,
		metrics.RequestDuration,
		metrics.SearchesTotal,
		metrics.MatchesTotal,
		metrics.CatalogErrors,
	)

	mux := setupRoutes(logger, catalog, links, metrics)

	server := createHTTPServer(config, withCORS(withTiming(logger, metrics, mux)))

	return &Server{
		config:  config,
		logger:  logger,
		server:  server,
		metrics: metrics,
	}
}

func createHTTPServer(config *core.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
}

func setupRoutes(logger *zap.Logger, catalog core.CatalogClient, links core.LinkResolver, metrics *Metrics) *http.ServeMux {
	h := &handler{
		logger:  logger,
		catalog: catalog,
		links:   links,
		metrics: metrics,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("POST /search", h.handleSearch)
	mux.HandleFunc("POST /match/{id}", h.handleMatch)
	mux.HandleFunc("GET /landing/{id}", h.handleLanding)
	mux.HandleFunc("GET /preview-card/{id}", h.handlePreviewCard)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>tunebridge</title></head>
<body>
    <h1>tunebridge</h1>
    <p>Search music and get cross-platform streaming links.</p>
    <ul>
        <li>POST /search</li>
        <li>POST /match/{id}?content_type=track|album</li>
        <li>GET /landing/{id}</li>
        <li>GET /preview-card/{id}</li>
        <li><a href="/health">GET /health</a></li>
        <li><a href="/metrics">GET /metrics</a></li>
    </ul>
</body>
</html>`))
	})

	return mux
}

// withTiming logs every request, records metrics, and mirrors the measured
// duration into an X-Process-Time header.
func withTiming(logger *zap.Logger, metrics *Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK, start: start}

		next.ServeHTTP(recorder, r)

		elapsed := time.Since(start)
		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = r.URL.Path
		}

		if metrics != nil {
			metrics.RequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", recorder.status)).Inc()
			metrics.RequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
		}

		logger.Info("Request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", recorder.status),
			zap.Duration("duration", elapsed))
	})
}

// statusRecorder captures the response status and stamps X-Process-Time just
// before the headers flush.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	start       time.Time
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.Header().Set("X-Process-Time", fmt.Sprintf("%.3f", time.Since(r.start).Seconds()))
		r.wroteHeader = true
	}
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.ResponseWriter.Write(b)
}

// withCORS applies the permissive CORS policy the original frontend relies
// on.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

func (s *Server) GetMetrics() *Metrics {
	return s.metrics
}
