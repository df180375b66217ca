package jwt

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for token validation.
type Metrics struct {
	validationTotal *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	cacheSweeps     prometheus.Counter
	registry        *prometheus.Registry
}

var (
	sharedMetrics     *Metrics
	sharedMetricsOnce sync.Once
)

// GetSharedMetrics returns the singleton Metrics instance.
func GetSharedMetrics() *Metrics {
	sharedMetricsOnce.Do(func() {
		sharedMetrics = NewMetrics("gateway")
	})
	return sharedMetrics
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "gateway"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.validationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "validation_total",
			Help:      "Total number of token validation attempts by result",
		},
		[]string{"result"},
	)

	m.cacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "cache_hits_total",
			Help:      "Total number of token cache hits",
		},
	)

	m.cacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "cache_misses_total",
			Help:      "Total number of token cache misses",
		},
	)

	m.cacheSweeps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "cache_sweeps_total",
			Help:      "Total number of token cache sweeps",
		},
	)

	m.registry.MustRegister(
		m.validationTotal,
		m.cacheHits,
		m.cacheMisses,
		m.cacheSweeps,
	)

	return m
}

// Init pre-initializes the result label combinations with zero values so the
// series appear in /metrics output immediately after startup.
func (m *Metrics) Init() {
	results := []string{
		"success", "empty_token", "malformed", "bad_signature",
		"unsupported_format", "expired", "claim_mismatch", "revoked",
		"invalid_token_type", "invalid_claims", "revocation_error",
	}
	for _, result := range results {
		m.validationTotal.WithLabelValues(result)
	}
}

// RecordValidation records a validation attempt with its result kind.
func (m *Metrics) RecordValidation(result string) {
	m.validationTotal.WithLabelValues(result).Inc()
}

// RecordCacheHit records a token cache hit.
func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Inc()
}

// RecordCacheMiss records a token cache miss.
func (m *Metrics) RecordCacheMiss() {
	m.cacheMisses.Inc()
}

// RecordCacheSweep records a token cache sweep.
func (m *Metrics) RecordCacheSweep() {
	m.cacheSweeps.Inc()
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MustRegister registers the metrics with the given registry. Duplicate
// registration is ignored so that recreated validators can share a registry.
func (m *Metrics) MustRegister(registry *prometheus.Registry) {
	for _, c := range []prometheus.Collector{
		m.validationTotal,
		m.cacheHits,
		m.cacheMisses,
		m.cacheSweeps,
	} {
		if err := registry.Register(c); err != nil {
			if !isAlreadyRegistered(err) {
				panic(err)
			}
		}
	}
}

func isAlreadyRegistered(err error) bool {
	var are prometheus.AlreadyRegisteredError
	return errors.As(err, &are)
}
