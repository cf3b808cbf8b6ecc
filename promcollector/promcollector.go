// Package promcollector exports ffshm operation metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	mc, err := promcollector.New(reg, "solver")
//	m, err := ffshm.Create(ctx, cfg, ffshm.WithMetricsCollector(mc))
package promcollector

import (
	"time"

	"github.com/hupe1980/ffshm"
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "ffshm"

// Collector implements ffshm.MetricsCollector with Prometheus counters and
// histograms.
type Collector struct {
	opLatency      *prometheus.HistogramVec
	ops            *prometheus.CounterVec
	writtenBytes   *prometheus.CounterVec
	allocations    prometheus.Counter
	allocatedBytes prometheus.Counter
}

var _ ffshm.MetricsCollector = (*Collector)(nil)

// New builds a Collector and registers it with reg. A nil reg selects
// prometheus.DefaultRegisterer. session is attached as a constant label
// and may be empty.
func New(reg prometheus.Registerer, session string) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	var constLabels prometheus.Labels
	if session != "" {
		constLabels = prometheus.Labels{"session": session}
	}

	c := &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   Namespace,
			Name:        "operation_latency_seconds",
			Help:        "Latency of segment operations",
			Buckets:     []float64{1e-6, 1e-5, 1e-4, 1e-3, 1e-2, 0.1, 0.5, 1, 5, 30},
			ConstLabels: constLabels,
		}, []string{"op", "status"}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   Namespace,
			Name:        "operations_total",
			Help:        "Segment operations by kind of value",
			ConstLabels: constLabels,
		}, []string{"op", "type", "status"}),
		writtenBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   Namespace,
			Name:        "written_bytes_total",
			Help:        "Encoded bytes written into the segment",
			ConstLabels: constLabels,
		}, []string{"type"}),
		allocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   Namespace,
			Name:        "allocations_total",
			Help:        "Slots claimed from the bump allocator",
			ConstLabels: constLabels,
		}),
		allocatedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   Namespace,
			Name:        "allocated_bytes_total",
			Help:        "Bytes claimed from the bump allocator",
			ConstLabels: constLabels,
		}),
	}

	for _, col := range []prometheus.Collector{c.opLatency, c.ops, c.writtenBytes, c.allocations, c.allocatedBytes} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordWrite implements ffshm.MetricsCollector.
func (c *Collector) RecordWrite(kind ffshm.Kind, bytes int, d time.Duration, err error) {
	s := status(err)
	c.opLatency.WithLabelValues("write", s).Observe(d.Seconds())
	c.ops.WithLabelValues("write", kind.String(), s).Inc()
	if err == nil {
		c.writtenBytes.WithLabelValues(kind.String()).Add(float64(bytes))
	}
}

// RecordRead implements ffshm.MetricsCollector.
func (c *Collector) RecordRead(kind ffshm.Kind, d time.Duration, err error) {
	s := status(err)
	c.opLatency.WithLabelValues("read", s).Observe(d.Seconds())
	c.ops.WithLabelValues("read", kind.String(), s).Inc()
}

// RecordWait implements ffshm.MetricsCollector.
func (c *Collector) RecordWait(d time.Duration, err error) {
	s := status(err)
	c.opLatency.WithLabelValues("wait", s).Observe(d.Seconds())
	c.ops.WithLabelValues("wait", "", s).Inc()
}

// RecordAllocation implements ffshm.MetricsCollector.
func (c *Collector) RecordAllocation(bytes int) {
	c.allocations.Inc()
	c.allocatedBytes.Add(float64(bytes))
}
