// Package metrics exposes the monitor's Prometheus metrics on a dedicated
// listener, separate from the public API.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MetricsServer struct {
	registry *prometheus.Registry
	srv      *http.Server

	refreshCycles   prometheus.Counter
	refreshFailures prometheus.Counter
	refreshDuration prometheus.Histogram
	openStreams     *prometheus.GaugeVec
}

// New creates the metric set under namespace. addr may be empty when the
// metrics are only collected, not served.
func New(namespace, addr string) (*MetricsServer, error) {
	if namespace == "" {
		return nil, errors.New("metrics namespace is required")
	}

	m := &MetricsServer{
		registry: prometheus.NewRegistry(),
		refreshCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_cycles_total",
			Help:      "Completed check cache refresh cycles.",
		}),
		refreshFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_failures_total",
			Help:      "Refresh cycles in which at least one probe failed.",
		}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Time taken to compute a check cache snapshot.",
			Buckets:   prometheus.DefBuckets,
		}),
		openStreams: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_event_streams",
			Help:      "Currently connected event stream clients.",
		}, []string{"endpoint"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.refreshCycles,
		m.refreshFailures,
		m.refreshDuration,
		m.openStreams,
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	m.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return m, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *MetricsServer) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}

// ObserveRefresh records one refresh cycle.
func (m *MetricsServer) ObserveRefresh(duration time.Duration, failed bool) {
	m.refreshCycles.Inc()
	m.refreshDuration.Observe(duration.Seconds())
	if failed {
		m.refreshFailures.Inc()
	}
}

func (m *MetricsServer) StreamOpened(endpoint string) {
	m.openStreams.WithLabelValues(endpoint).Inc()
}

func (m *MetricsServer) StreamClosed(endpoint string) {
	m.openStreams.WithLabelValues(endpoint).Dec()
}
