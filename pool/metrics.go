package pool

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricAcquireTotal       = "connection_acquire_total"
	MetricAcquireErrorsTotal = "connection_acquire_errors_total"
	MetricReleaseTotal       = "connection_release_total"
	MetricAcquireDuration    = "connection_acquire_duration_seconds"
	MetricInUse              = "connections_in_use"
)

// InstrumentedProvider records acquisition and release metrics for a Provider.
type InstrumentedProvider struct {
	Provider

	acquired *prometheus.CounterVec
	failed   prometheus.Counter
	released prometheus.Counter
	latency  prometheus.Histogram
	inUse    prometheus.Gauge
}

// Instrument wraps p and registers its collectors with reg under namespace.
func Instrument(p Provider, reg prometheus.Registerer, namespace string) (*InstrumentedProvider, error) {
	ip := &InstrumentedProvider{
		Provider: p,
		acquired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricAcquireTotal,
			Help:      "Connections acquired from the pool.",
		}, []string{"mode"}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricAcquireErrorsTotal,
			Help:      "Failed connection acquisitions.",
		}),
		released: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricReleaseTotal,
			Help:      "Connections returned to the pool.",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      MetricAcquireDuration,
			Help:      "Time spent waiting for a connection.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		inUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      MetricInUse,
			Help:      "Connections acquired through this provider and not yet released.",
		}),
	}

	for _, c := range []prometheus.Collector{ip.acquired, ip.failed, ip.released, ip.latency, ip.inUse} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return ip, nil
}

func (p *InstrumentedProvider) Acquire(ctx context.Context, readOnly bool) (*Conn, error) {
	start := time.Now()
	c, err := p.Provider.Acquire(ctx, readOnly)
	p.latency.Observe(time.Since(start).Seconds())
	if err != nil {
		p.failed.Inc()
		return nil, err
	}

	mode := "read_write"
	if readOnly {
		mode = "read_only"
	}
	p.acquired.WithLabelValues(mode).Inc()
	p.inUse.Inc()
	return c, nil
}

func (p *InstrumentedProvider) Release(c *Conn) error {
	if c == nil || c.IsClosed() {
		return p.Provider.Release(c)
	}
	p.released.Inc()
	p.inUse.Dec()
	return p.Provider.Release(c)
}
