// Package fallback produces the degraded responses returned while a
// downstream circuit is open, with a stepped retry-after escalation per
// service.
package fallback

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultRetryAfterBase is the retry hint used before any escalation.
const DefaultRetryAfterBase = 30 * time.Second

// Controller tracks per-service fallback trip counts and computes the
// escalating retry-after hint. Counters live for the process lifetime and are
// cleared only by an explicit Reset.
type Controller struct {
	counters sync.Map // service name -> *atomic.Int64
	base     time.Duration
	logger   *zap.Logger
	metrics  *Metrics
}

// NewController creates a controller with the given retry-after base.
func NewController(base time.Duration, logger *zap.Logger) *Controller {
	if base <= 0 {
		base = DefaultRetryAfterBase
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		base:    base,
		logger:  logger,
		metrics: GetSharedMetrics(),
	}
}

// Trigger records a fallback activation for the service and returns the
// retry-after hint for the new count.
func (c *Controller) Trigger(service string) time.Duration {
	v, _ := c.counters.LoadOrStore(service, new(atomic.Int64))
	count := v.(*atomic.Int64).Add(1)
	c.metrics.RecordTrigger(service)

	retryAfter := c.retryAfterFor(count)
	c.logger.Warn("fallback activated",
		zap.String("service", service),
		zap.Int64("count", count),
		zap.Duration("retryAfter", retryAfter),
	)
	return retryAfter
}

// RetryAfter returns the current retry-after hint for a service without
// recording an activation.
func (c *Controller) RetryAfter(service string) time.Duration {
	v, ok := c.counters.Load(service)
	if !ok {
		return c.base
	}
	return c.retryAfterFor(v.(*atomic.Int64).Load())
}

func (c *Controller) retryAfterFor(count int64) time.Duration {
	switch {
	case count <= 5:
		return c.base
	case count <= 10:
		return 2 * c.base
	case count <= 20:
		return 4 * c.base
	default:
		return 8 * c.base
	}
}

// Stats returns a snapshot of the trip count per service.
func (c *Controller) Stats() map[string]int64 {
	stats := make(map[string]int64)
	c.counters.Range(func(key, value interface{}) bool {
		stats[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})
	return stats
}

// Reset clears every counter.
func (c *Controller) Reset() {
	c.counters.Clear()
	c.logger.Info("fallback counters reset")
}
