// Package metrics exposes Prometheus metrics and a /health endpoint for the
// central, lobby, and room servers, following the registry-per-process
// pattern used throughout this stack.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServiceMetrics are the metrics every process exposes regardless of role.
type ServiceMetrics struct {
	BuildInfo *prometheus.GaugeVec
	StartTime prometheus.Gauge
}

// NewServiceMetrics registers the common metrics under namespace.
func NewServiceMetrics(namespace string) *ServiceMetrics {
	m := &ServiceMetrics{
		BuildInfo: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information",
		}, []string{"version"}),
		StartTime: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "start_time_seconds",
			Help:      "Unix timestamp of process start time",
		}),
	}
	m.BuildInfo.WithLabelValues("dev").Set(1)
	m.StartTime.SetToCurrentTime()
	return m
}

// Registry is a metrics registry for one process, exposing /metrics and
// /health on its own small HTTP server.
type Registry struct {
	serviceName string
	logger      *slog.Logger
	Service     *ServiceMetrics
	server      *http.Server
}

// NewRegistry creates a registry for serviceName.
func NewRegistry(serviceName string, logger *slog.Logger) *Registry {
	return &Registry{
		serviceName: serviceName,
		logger:      logger,
		Service:     NewServiceMetrics("gamehost"),
	}
}

// Start launches the /metrics and /health HTTP server. It blocks until the
// server stops; call it in its own goroutine.
func (r *Registry) Start(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","service":"%s"}`, r.serviceName)
	})

	r.server = &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	r.logger.Info("starting metrics server", "port", port)
	err := r.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts the metrics server down.
func (r *Registry) Stop(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	return r.server.Shutdown(ctx)
}
