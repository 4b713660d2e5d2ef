package valuation

import (
	"context"
	"time"

	"credit-acceleration/internal/domain/valuation"
	"credit-acceleration/internal/infrastructure/metrics"

	"go.uber.org/zap"
)

// ReportCache is satisfied by cache.ComparablesCache.
type ReportCache interface {
	Get(ctx context.Context, address string) (*valuation.Report, bool, error)
	Set(ctx context.Context, address string, r *valuation.Report) error
}

// Cached serves reports from cache and fills it from next on a miss. Cache
// errors are logged and bypassed.
type Cached struct {
	next    valuation.Provider
	cache   ReportCache
	log     *zap.Logger
	metrics metrics.Collector
}

func NewCached(next valuation.Provider, c ReportCache, log *zap.Logger, m metrics.Collector) *Cached {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cached{next: next, cache: c, log: log.Named("valuation_cache"), metrics: metrics.OrNoOp(m)}
}

func (c *Cached) Comparables(ctx context.Context, address string) (*valuation.Report, error) {
	start := time.Now()
	r, ok, err := c.cache.Get(ctx, address)
	if err != nil {
		c.log.Warn("comparables cache read failed", zap.String("address", address), zap.Error(err))
	}
	if ok {
		c.metrics.RecordValuationCall("cache_hit", 0, time.Since(start))
		return r, nil
	}

	r, err = c.next.Comparables(ctx, address)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, address, r); err != nil {
		c.log.Warn("comparables cache write failed", zap.String("address", address), zap.Error(err))
	}
	return r, nil
}
