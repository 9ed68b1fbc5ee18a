package cuvs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector implements MetricsCollector on a Prometheus
// registry. All metrics carry the cuvs_ prefix.
type PrometheusCollector struct {
	builds         *prometheus.CounterVec
	buildSeconds   prometheus.Histogram
	searches       *prometheus.CounterVec
	searchSeconds  prometheus.Histogram
	outcomes       *prometheus.CounterVec
	measuredRecall prometheus.Histogram
}

// NewPrometheusCollector registers the harness metrics with reg.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)
	return &PrometheusCollector{
		builds: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cuvs_index_builds_total",
			Help: "Total number of index builds by result",
		}, []string{"result"}),
		buildSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cuvs_index_build_seconds",
			Help:    "Index build latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		searches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cuvs_index_searches_total",
			Help: "Total number of batch searches by result",
		}, []string{"result"}),
		searchSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cuvs_index_search_seconds",
			Help:    "Batch search latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cuvs_config_outcomes_total",
			Help: "Finished configurations by final status",
		}, []string{"status"}),
		measuredRecall: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cuvs_measured_recall",
			Help:    "Measured recall per configuration",
			Buckets: prometheus.LinearBuckets(0.5, 0.05, 11),
		}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (c *PrometheusCollector) RecordBuild(d time.Duration, err error) {
	c.builds.WithLabelValues(result(err)).Inc()
	c.buildSeconds.Observe(d.Seconds())
}

func (c *PrometheusCollector) RecordSearch(_ int, d time.Duration, err error) {
	c.searches.WithLabelValues(result(err)).Inc()
	c.searchSeconds.Observe(d.Seconds())
}

func (c *PrometheusCollector) RecordOutcome(status Status, recall float64, _ time.Duration) {
	c.outcomes.WithLabelValues(status.String()).Inc()
	if recall > 0 {
		c.measuredRecall.Observe(recall)
	}
}
