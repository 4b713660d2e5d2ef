package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"credit-acceleration/internal/domain/valuation"

	"github.com/redis/go-redis/v9"
)

const comparablesPrefix = "valuation:comparables:"

// ComparablesCache stores valuation reports keyed by normalised address.
type ComparablesCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewComparablesCache(rdb *redis.Client, ttl time.Duration) *ComparablesCache {
	return &ComparablesCache{rdb: rdb, ttl: ttl}
}

// NormalizeAddress lowercases and collapses whitespace so equivalent spellings
// share a cache entry.
func NormalizeAddress(address string) string {
	return strings.Join(strings.Fields(strings.ToLower(address)), " ")
}

func (c *ComparablesCache) key(address string) string {
	return comparablesPrefix + NormalizeAddress(address)
}

// Get returns (nil, false, nil) on a miss.
func (c *ComparablesCache) Get(ctx context.Context, address string) (*valuation.Report, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(address)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var r valuation.Report
	if err := json.Unmarshal(raw, &r); err != nil {
		// corrupt entry: drop it and treat as a miss
		_ = c.rdb.Del(ctx, c.key(address)).Err()
		return nil, false, nil
	}
	return &r, true, nil
}

func (c *ComparablesCache) Set(ctx context.Context, address string, r *valuation.Report) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(address), raw, c.ttl).Err()
}
