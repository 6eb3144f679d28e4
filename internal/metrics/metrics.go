// Package metrics exposes delaycore's run-time counters and gauges over
// Prometheus' client_golang, the way an operator dashboard would scrape
// the routing search while it runs.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder collects delay-propagation metrics for export.
type Recorder struct {
	registry *prometheus.Registry

	riskinessBound prometheus.Gauge
	branchFailures *prometheus.CounterVec
	pathsUpdated   prometheus.Counter
	propagateSecs  prometheus.Histogram
}

// NewRecorder builds a Recorder with its own registry, separate from the
// global default so a demo run never collides with another process's
// metrics in the same binary.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()

	r := &Recorder{
		registry: reg,
		riskinessBound: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "delaycore",
			Name:      "riskiness_index_min",
			Help:      "Current lower bound of the shared riskiness_index objective variable.",
		}),
		branchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "delaycore",
			Name:      "branch_failures_total",
			Help:      "Branch failures raised by delay constraints, labelled by constraint name.",
		}, []string{"constraint"}),
		pathsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "delaycore",
			Name:      "paths_updated_total",
			Help:      "Number of vehicle paths that have had UpdatePath or UpdateAllPaths applied.",
		}),
		propagateSecs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "delaycore",
			Name:      "propagate_seconds",
			Help:      "Wall-clock time spent inside a single propagation call.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(r.riskinessBound, r.branchFailures, r.pathsUpdated, r.propagateSecs)
	return r
}

// SetRiskinessBound records the current riskiness_index lower bound.
func (r *Recorder) SetRiskinessBound(v int64) {
	r.riskinessBound.Set(float64(v))
}

// RecordBranchFailure increments the failure counter for constraint.
func (r *Recorder) RecordBranchFailure(constraint string) {
	r.branchFailures.WithLabelValues(constraint).Inc()
}

// RecordPathUpdate increments the paths-updated counter.
func (r *Recorder) RecordPathUpdate() {
	r.pathsUpdated.Inc()
}

// ObservePropagation records how long a propagation call took.
func (r *Recorder) ObservePropagation(d time.Duration) {
	r.propagateSecs.Observe(d.Seconds())
}

// Server exposes the Recorder's registry over HTTP at /metrics.
type Server struct {
	httpServer *http.Server
}

// NewServer builds a metrics HTTP server bound to addr, not yet listening.
func NewServer(addr string, r *Recorder) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	return &Server{httpServer: &http.Server{Addr: addr, Handler: mux}}
}

// Start begins serving until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics: serve: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
