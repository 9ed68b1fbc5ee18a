package cuvs

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting harness metrics.
// Implement this interface to integrate with monitoring systems; a
// Prometheus implementation is provided in prometheus.go.
type MetricsCollector interface {
	// RecordBuild is called after each index build.
	RecordBuild(duration time.Duration, err error)

	// RecordSearch is called after each search, with the requested k.
	RecordSearch(k int, duration time.Duration, err error)

	// RecordOutcome is called once per finished configuration with the
	// final status and the measured recall (0 when none was measured).
	RecordOutcome(status Status, recall float64, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBuild(time.Duration, error) {}

func (NoopMetricsCollector) RecordSearch(int, time.Duration, error) {}

func (NoopMetricsCollector) RecordOutcome(Status, float64, time.Duration) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for tests and debugging without external dependencies.
type BasicMetricsCollector struct {
	BuildCount   atomic.Int64
	BuildErrors  atomic.Int64
	SearchCount  atomic.Int64
	SearchErrors atomic.Int64
	Passed       atomic.Int64
	Failed       atomic.Int64
}

func (c *BasicMetricsCollector) RecordBuild(_ time.Duration, err error) {
	c.BuildCount.Add(1)
	if err != nil {
		c.BuildErrors.Add(1)
	}
}

func (c *BasicMetricsCollector) RecordSearch(_ int, _ time.Duration, err error) {
	c.SearchCount.Add(1)
	if err != nil {
		c.SearchErrors.Add(1)
	}
}

func (c *BasicMetricsCollector) RecordOutcome(status Status, _ float64, _ time.Duration) {
	if status == StatusPass {
		c.Passed.Add(1)
	} else {
		c.Failed.Add(1)
	}
}
