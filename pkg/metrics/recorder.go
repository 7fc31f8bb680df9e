// Package metrics records ranking builds as Prometheus metrics.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/mchmarny/top1m/pkg/rank"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "top1m"

// Recorder holds the collectors of one registry.
type Recorder struct {
	registry *prometheus.Registry

	records        *prometheus.CounterVec
	sourceFailures *prometheus.CounterVec
	domains        prometheus.Gauge
	entries        prometheus.Gauge
	buildDuration  prometheus.Histogram
	lastBuild      prometheus.Gauge
	requests       *prometheus.CounterVec
}

// NewRecorder creates a Recorder on its own registry. When withRuntime is set
// the Go runtime and process collectors are registered too.
func NewRecorder(withRuntime bool) *Recorder {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		records: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_records_total",
				Help:      "Records read from each source by outcome.",
			},
			[]string{"source", "outcome"},
		),
		sourceFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_failures_total",
				Help:      "Sources that could not be loaded.",
			},
			[]string{"source"},
		),
		domains: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "domains",
			Help:      "Distinct valid domains seen by the last build.",
		}),
		entries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ranking_entries",
			Help:      "Entries in the last ranking.",
		}),
		buildDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Time to load, aggregate and persist a ranking.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		lastBuild: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_build_timestamp_seconds",
			Help:      "Unix time of the last completed build.",
		}),
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "API requests by handler, method and status code.",
			},
			[]string{"handler", "method", "code"},
		),
	}
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordResult adds the per-source accounting of a result and sets the gauges.
func (r *Recorder) RecordResult(res *rank.Result) {
	if res == nil {
		return
	}
	for _, s := range res.Sources {
		r.records.WithLabelValues(s.Name, "accepted").Add(float64(s.Accepted))
		r.records.WithLabelValues(s.Name, "skipped").Add(float64(s.Skipped))
	}
	r.domains.Set(float64(res.Domains))
	r.entries.Set(float64(len(res.Entries)))
}

// SetLastRun sets the gauges from a stored run.
func (r *Recorder) SetLastRun(domains, entries int, at time.Time) {
	r.domains.Set(float64(domains))
	r.entries.Set(float64(entries))
	r.lastBuild.Set(float64(at.Unix()))
}

// RecordSourceFailure counts a source that failed to load.
func (r *Recorder) RecordSourceFailure(name string) {
	r.sourceFailures.WithLabelValues(name).Inc()
}

// RecordBuild observes the duration of a completed build finished at.
func (r *Recorder) RecordBuild(d time.Duration, at time.Time) {
	r.buildDuration.Observe(d.Seconds())
	r.lastBuild.Set(float64(at.Unix()))
}

// WriteTextfile writes the registry in the text exposition format, suitable
// for the node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("error writing metrics to %s: %w", path, err)
	}
	return nil
}

// Instrument counts the requests served by h under the given handler name.
func (r *Recorder) Instrument(name string, h http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(
		r.requests.MustCurryWith(prometheus.Labels{"handler": name}), h)
}

// Handler serves the registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
