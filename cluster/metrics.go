package cluster

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement it to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordClusterPass is called after each clustering pass with the input
	// feature count, the number of clusters produced and the pass duration.
	RecordClusterPass(features, clusters int, duration time.Duration)

	// RecordRefresh is called after each full refresh.
	RecordRefresh(duration time.Duration)

	// RecordLoad is called after each base-store load request.
	RecordLoad(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordClusterPass(int, int, time.Duration) {}
func (NoopMetricsCollector) RecordRefresh(time.Duration)               {}
func (NoopMetricsCollector) RecordLoad(time.Duration, error)           {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	PassCount         atomic.Int64
	PassFeatures      atomic.Int64
	PassClusters      atomic.Int64
	PassTotalNanos    atomic.Int64
	RefreshCount      atomic.Int64
	RefreshTotalNanos atomic.Int64
	LoadCount         atomic.Int64
	LoadErrors        atomic.Int64
	LoadTotalNanos    atomic.Int64
}

// NewBasicMetricsCollector creates a new basic metrics collector.
func NewBasicMetricsCollector() *BasicMetricsCollector {
	return &BasicMetricsCollector{}
}

// RecordClusterPass implements MetricsCollector.
func (b *BasicMetricsCollector) RecordClusterPass(features, clusters int, duration time.Duration) {
	b.PassCount.Add(1)
	b.PassFeatures.Add(int64(features))
	b.PassClusters.Add(int64(clusters))
	b.PassTotalNanos.Add(duration.Nanoseconds())
}

// RecordRefresh implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRefresh(duration time.Duration) {
	b.RefreshCount.Add(1)
	b.RefreshTotalNanos.Add(duration.Nanoseconds())
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(duration time.Duration, err error) {
	b.LoadCount.Add(1)
	b.LoadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// Stats is a snapshot of BasicMetricsCollector state.
type Stats struct {
	PassCount       int64
	PassFeatures    int64
	PassClusters    int64
	PassAvgNanos    int64
	RefreshCount    int64
	RefreshAvgNanos int64
	LoadCount       int64
	LoadErrors      int64
	LoadAvgNanos    int64
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() Stats {
	s := Stats{
		PassCount:    b.PassCount.Load(),
		PassFeatures: b.PassFeatures.Load(),
		PassClusters: b.PassClusters.Load(),
		RefreshCount: b.RefreshCount.Load(),
		LoadCount:    b.LoadCount.Load(),
		LoadErrors:   b.LoadErrors.Load(),
	}
	if s.PassCount > 0 {
		s.PassAvgNanos = b.PassTotalNanos.Load() / s.PassCount
	}
	if s.RefreshCount > 0 {
		s.RefreshAvgNanos = b.RefreshTotalNanos.Load() / s.RefreshCount
	}
	if s.LoadCount > 0 {
		s.LoadAvgNanos = b.LoadTotalNanos.Load() / s.LoadCount
	}
	return s
}
