// Package metrics exposes batch and keyword counters for Prometheus.
package metrics

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ReviewPublisher/internal/domain"
	"ReviewPublisher/internal/ports"
	"ReviewPublisher/internal/usecase"
)

const namespace = "review_publisher"

// Metrics holds the collectors registered on a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	KeywordsTotal   *prometheus.CounterVec
	KeywordDuration *prometheus.HistogramVec
	RunActive       prometheus.Gauge
	RunsTotal       *prometheus.CounterVec
}

var _ ports.ResultSink = (*Metrics)(nil)

// New creates the collectors plus the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		KeywordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "keywords_total",
				Help:      "Keywords that reached a terminal state, by status",
			},
			[]string{"status"},
		),
		KeywordDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "keyword_duration_seconds",
				Help:      "Wall time from keyword start to terminal state",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
			},
			[]string{"model"},
		),
		RunActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "run_active",
				Help:      "1 while a keyword batch is running",
			},
		),
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Finished keyword batches, by final status",
			},
			[]string{"status"},
		),
	}
}

// Registry exposes the underlying registry for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// KeywordFinished counts a terminal keyword and records its duration.
func (m *Metrics) KeywordFinished(_ context.Context, model domain.AIModel, result domain.KeywordResult) error {
	if !result.Status.Terminal() {
		return nil
	}
	m.KeywordsTotal.WithLabelValues(string(result.Status)).Inc()
	if d := result.Duration(); d > 0 {
		m.KeywordDuration.WithLabelValues(string(model)).Observe(d.Seconds())
	}
	return nil
}

// ObserveRun tracks the run gauge from runner snapshots. A run counts once,
// on the first snapshot after it stops running.
func (m *Metrics) ObserveRun() func(usecase.RunSnapshot) {
	var (
		mu         sync.Mutex
		lastID     string
		wasRunning bool
	)
	return func(snap usecase.RunSnapshot) {
		mu.Lock()
		defer mu.Unlock()

		running := snap.Running()
		if running {
			m.RunActive.Set(1)
		} else {
			m.RunActive.Set(0)
		}
		if wasRunning && !running && snap.ID == lastID {
			m.RunsTotal.WithLabelValues(string(snap.State.Status)).Inc()
		}
		lastID, wasRunning = snap.ID, running
	}
}
