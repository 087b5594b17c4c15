// Package compute runs pure analytics calls with memoisation and metrics.
package compute

import (
	"time"

	"github.com/oncostat/oncostat/internal/platform/cache"
	"github.com/oncostat/oncostat/internal/platform/metrics"
)

// Runner is shared by every handler. Both dependencies are optional.
type Runner struct {
	cache   *cache.Cache
	metrics *metrics.Metrics
}

func NewRunner(c *cache.Cache, m *metrics.Metrics) *Runner {
	return &Runner{cache: c, metrics: m}
}

// Do returns the cached result of operation for request, or runs fn and
// caches its result. Errors are never cached. The request must be the full
// input of fn: two requests with equal JSON encodings share a result.
func Do[T any](r *Runner, operation string, request any, fn func() (T, error)) (T, error) {
	if r == nil {
		return fn()
	}

	key, keyErr := cache.Key(operation, request)
	if keyErr == nil {
		if v, ok := r.cache.Get(key); ok {
			if res, ok := v.(T); ok {
				r.cacheResult(operation, "hit")
				return res, nil
			}
		}
		r.cacheResult(operation, "miss")
	}

	start := time.Now()
	res, err := fn()
	r.observe(operation, time.Since(start), err)
	if err == nil && keyErr == nil {
		r.cache.Add(key, res)
	}
	return res, err
}

type versioned struct {
	Version string `json:"version"`
	Request any    `json:"request"`
}

// Versioned keys request together with the configuration version it is
// evaluated against.
func Versioned(version string, request any) any {
	return versioned{Version: version, Request: request}
}

func (r *Runner) cacheResult(operation, result string) {
	if r.metrics == nil || r.cache == nil {
		return
	}
	r.metrics.CacheRequests.WithLabelValues(operation, result).Inc()
}

func (r *Runner) observe(operation string, d time.Duration, err error) {
	if r.metrics == nil {
		return
	}
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeError
	}
	r.metrics.Computations.WithLabelValues(operation, outcome).Inc()
	r.metrics.Duration.WithLabelValues(operation).Observe(d.Seconds())
}
