package ffshm

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// promcollector package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordWrite is called after each variable write.
	// bytes is the encoded size, err is nil if successful.
	RecordWrite(kind Kind, bytes int, duration time.Duration, err error)

	// RecordRead is called after each variable read.
	RecordRead(kind Kind, duration time.Duration, err error)

	// RecordWait is called when Wait or AttachWait returns.
	RecordWait(duration time.Duration, err error)

	// RecordAllocation is called when a write claims a new slot.
	RecordAllocation(bytes int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordWrite(Kind, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordRead(Kind, time.Duration, error)       {}
func (NoopMetricsCollector) RecordWait(time.Duration, error)             {}
func (NoopMetricsCollector) RecordAllocation(int)                        {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	WriteCount      atomic.Int64
	WriteErrors     atomic.Int64
	WriteBytes      atomic.Int64
	WriteTotalNanos atomic.Int64
	ReadCount       atomic.Int64
	ReadErrors      atomic.Int64
	ReadTotalNanos  atomic.Int64
	WaitCount       atomic.Int64
	WaitTimeouts    atomic.Int64
	WaitTotalNanos  atomic.Int64
	Allocations     atomic.Int64
	AllocatedBytes  atomic.Int64
}

// RecordWrite implements MetricsCollector.
func (b *BasicMetricsCollector) RecordWrite(_ Kind, bytes int, duration time.Duration, err error) {
	b.WriteCount.Add(1)
	b.WriteTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.WriteErrors.Add(1)
		return
	}
	b.WriteBytes.Add(int64(bytes))
}

// RecordRead implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRead(_ Kind, duration time.Duration, err error) {
	b.ReadCount.Add(1)
	b.ReadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ReadErrors.Add(1)
	}
}

// RecordWait implements MetricsCollector.
func (b *BasicMetricsCollector) RecordWait(duration time.Duration, err error) {
	b.WaitCount.Add(1)
	b.WaitTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.WaitTimeouts.Add(1)
	}
}

// RecordAllocation implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAllocation(bytes int) {
	b.Allocations.Add(1)
	b.AllocatedBytes.Add(int64(bytes))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		WriteCount:     b.WriteCount.Load(),
		WriteErrors:    b.WriteErrors.Load(),
		WriteBytes:     b.WriteBytes.Load(),
		WriteAvgNanos:  avg(b.WriteTotalNanos.Load(), b.WriteCount.Load()),
		ReadCount:      b.ReadCount.Load(),
		ReadErrors:     b.ReadErrors.Load(),
		ReadAvgNanos:   avg(b.ReadTotalNanos.Load(), b.ReadCount.Load()),
		WaitCount:      b.WaitCount.Load(),
		WaitTimeouts:   b.WaitTimeouts.Load(),
		WaitAvgNanos:   avg(b.WaitTotalNanos.Load(), b.WaitCount.Load()),
		Allocations:    b.Allocations.Load(),
		AllocatedBytes: b.AllocatedBytes.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	WriteCount     int64
	WriteErrors    int64
	WriteBytes     int64
	WriteAvgNanos  int64
	ReadCount      int64
	ReadErrors     int64
	ReadAvgNanos   int64
	WaitCount      int64
	WaitTimeouts   int64
	WaitAvgNanos   int64
	Allocations    int64
	AllocatedBytes int64
}
