package metric

import (
	"fmt"
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics creates vectors on first use, the label set of the first call wins.
// Observations that do not match the registered label set are dropped.
type PrometheusMetrics struct {
	labels  Labels
	vectors *vectors
}

type vectors struct {
	mutex      sync.Mutex
	namespace  string
	registry   *prometheus.Registry
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &PrometheusMetrics{
		labels: nil,
		vectors: &vectors{
			namespace:  namespace,
			registry:   registry,
			counters:   make(map[string]*prometheus.CounterVec),
			gauges:     make(map[string]*prometheus.GaugeVec),
			histograms: make(map[string]*prometheus.HistogramVec),
		},
	}
}

func (m *PrometheusMetrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.vectors.registry, promhttp.HandlerOpts{})
}

func (m *PrometheusMetrics) Gatherer() prometheus.Gatherer {
	return m.vectors.registry
}

func (m *PrometheusMetrics) With(labels Labels) Metrics {
	if len(labels) == 0 {
		return m
	}

	merged := make(Labels, len(m.labels)+len(labels))
	maps.Copy(merged, m.labels)
	maps.Copy(merged, labels)
	return &PrometheusMetrics{labels: merged, vectors: m.vectors}
}

func (m *PrometheusMetrics) WithLabel(key string, value any) Metrics {
	return m.With(Labels{key: value})
}

func (m *PrometheusMetrics) Increment(key string) {
	m.Count(key, 1)
}

func (m *PrometheusMetrics) Count(key string, value int) {
	if value < 0 {
		return
	}

	counter, err := m.vectors.counter(key, m.promLabels())
	if err != nil {
		return
	}
	counter.Add(float64(value))
}

func (m *PrometheusMetrics) Gauge(key string, value int) {
	gauge, err := m.vectors.gauge(key, m.promLabels())
	if err != nil {
		return
	}
	gauge.Set(float64(value))
}

func (m *PrometheusMetrics) Duration(key string, duration time.Duration) {
	histogram, err := m.vectors.histogram(key, m.promLabels())
	if err != nil {
		return
	}
	histogram.Observe(duration.Seconds())
}

func (m *PrometheusMetrics) promLabels() prometheus.Labels {
	result := make(prometheus.Labels, len(m.labels))
	for key, value := range m.labels {
		result[key] = fmt.Sprint(value)
	}

	return result
}

func (v *vectors) counter(name string, labels prometheus.Labels) (prometheus.Counter, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	vec, ok := v.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: v.namespace,
			Name:      name,
			Help:      name,
		}, labelNames(labels))
		if err := v.registry.Register(vec); err != nil {
			return nil, fmt.Errorf("register counter %s: %w", name, err)
		}
		v.counters[name] = vec
	}

	return vec.GetMetricWith(labels)
}

func (v *vectors) gauge(name string, labels prometheus.Labels) (prometheus.Gauge, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	vec, ok := v.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: v.namespace,
			Name:      name,
			Help:      name,
		}, labelNames(labels))
		if err := v.registry.Register(vec); err != nil {
			return nil, fmt.Errorf("register gauge %s: %w", name, err)
		}
		v.gauges[name] = vec
	}

	return vec.GetMetricWith(labels)
}

func (v *vectors) histogram(name string, labels prometheus.Labels) (prometheus.Observer, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	vec, ok := v.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: v.namespace,
			Name:      name,
			Help:      name,
			Buckets:   prometheus.DefBuckets,
		}, labelNames(labels))
		if err := v.registry.Register(vec); err != nil {
			return nil, fmt.Errorf("register histogram %s: %w", name, err)
		}
		v.histograms[name] = vec
	}

	return vec.GetMetricWith(labels)
}

func labelNames(labels prometheus.Labels) []string {
	return slices.Sorted(maps.Keys(labels))
}
