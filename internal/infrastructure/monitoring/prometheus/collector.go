package prometheus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/turtacn/scholar-etl/internal/infrastructure/monitoring/logging"
)

// MetricsCollector registers run metrics on a private registry and pushes
// them to a Pushgateway once the run is over.
type MetricsCollector interface {
	RegisterCounter(name, help string, labels ...string) CounterVec
	RegisterGauge(name, help string, labels ...string) GaugeVec
	RegisterHistogram(name, help string, buckets []float64, labels ...string) HistogramVec
	Gatherer() prometheus.Gatherer
	Push(ctx context.Context, url, job string) error
}

type CounterVec interface {
	WithLabelValues(lvs ...string) Counter
}

type Counter interface {
	Inc()
	Add(delta float64)
}

type GaugeVec interface {
	WithLabelValues(lvs ...string) Gauge
}

type Gauge interface {
	Set(value float64)
}

type HistogramVec interface {
	WithLabelValues(lvs ...string) Histogram
}

type Histogram interface {
	Observe(value float64)
}

// CollectorConfig names the metrics of one collector. Every metric is
// registered as <Namespace>_<Subsystem>_<name>.
type CollectorConfig struct {
	Namespace string
	Subsystem string
}

type prometheusCollector struct {
	registry *prometheus.Registry
	config   CollectorConfig
	byName   map[string]prometheus.Collector
	mu       sync.Mutex
	logger   logging.Logger
}

// NewMetricsCollector returns a MetricsCollector over a fresh registry.
func NewMetricsCollector(cfg CollectorConfig, logger logging.Logger) (MetricsCollector, error) {
	if cfg.Namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &prometheusCollector{
		registry: prometheus.NewRegistry(),
		config:   cfg,
		byName:   make(map[string]prometheus.Collector),
		logger:   logger,
	}, nil
}

func (c *prometheusCollector) Gatherer() prometheus.Gatherer {
	return c.registry
}

// Push sends every registered metric to the Pushgateway at url under job,
// replacing the metrics previously pushed for that job.
func (c *prometheusCollector) Push(ctx context.Context, url, job string) error {
	start := time.Now()
	if err := push.New(url, job).Gatherer(c.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	c.logger.Debug("metrics pushed",
		logging.String("url", url),
		logging.String("job", job),
		logging.Duration(logging.FieldElapsed, time.Since(start)),
	)
	return nil
}

// register returns the collector already registered under name, if any.
func (c *prometheusCollector) register(name string, fresh prometheus.Collector) (prometheus.Collector, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fqName := prometheus.BuildFQName(c.config.Namespace, c.config.Subsystem, name)
	if existing, ok := c.byName[fqName]; ok {
		return existing, nil
	}
	if err := c.registry.Register(fresh); err != nil {
		return nil, err
	}
	c.byName[fqName] = fresh
	return fresh, nil
}

func (c *prometheusCollector) RegisterCounter(name, help string, labels ...string) CounterVec {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      name,
		Help:      help,
	}, labels)

	registered, err := c.register(name, vec)
	if v, ok := registered.(*prometheus.CounterVec); err == nil && ok {
		return counterVec{v}
	}
	c.discard(name, "counter", err)
	return noopCounterVec{}
}

func (c *prometheusCollector) RegisterGauge(name, help string, labels ...string) GaugeVec {
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      name,
		Help:      help,
	}, labels)

	registered, err := c.register(name, vec)
	if v, ok := registered.(*prometheus.GaugeVec); err == nil && ok {
		return gaugeVec{v}
	}
	c.discard(name, "gauge", err)
	return noopGaugeVec{}
}

// RegisterHistogram uses prometheus.DefBuckets when buckets is nil.
func (c *prometheusCollector) RegisterHistogram(name, help string, buckets []float64, labels ...string) HistogramVec {
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)

	registered, err := c.register(name, vec)
	if v, ok := registered.(*prometheus.HistogramVec); err == nil && ok {
		return histogramVec{v}
	}
	c.discard(name, "histogram", err)
	return noopHistogramVec{}
}

// discard logs a metric that could not be registered. Its observations are
// dropped.
func (c *prometheusCollector) discard(name, kind string, err error) {
	if err != nil {
		c.logger.Error("failed to register metric", logging.String("name", name), logging.String("type", kind), logging.Err(err))
		return
	}
	c.logger.Warn("metric type mismatch", logging.String("name", name), logging.String("type", kind))
}

type counterVec struct{ vec *prometheus.CounterVec }

func (v counterVec) WithLabelValues(lvs ...string) Counter { return v.vec.WithLabelValues(lvs...) }

type gaugeVec struct{ vec *prometheus.GaugeVec }

func (v gaugeVec) WithLabelValues(lvs ...string) Gauge { return v.vec.WithLabelValues(lvs...) }

type histogramVec struct{ vec *prometheus.HistogramVec }

func (v histogramVec) WithLabelValues(lvs ...string) Histogram { return v.vec.WithLabelValues(lvs...) }

// The noop types stand in for metrics that failed to register.
type noopCounterVec struct{}

func (noopCounterVec) WithLabelValues(...string) Counter { return noopMetric{} }

type noopGaugeVec struct{}

func (noopGaugeVec) WithLabelValues(...string) Gauge { return noopMetric{} }

type noopHistogramVec struct{}

func (noopHistogramVec) WithLabelValues(...string) Histogram { return noopMetric{} }

type noopMetric struct{}

func (noopMetric) Inc()            {}
func (noopMetric) Add(float64)     {}
func (noopMetric) Set(float64)     {}
func (noopMetric) Observe(float64) {}

//Personal.AI order the ending
