// Package cache keeps a host's external busy time for a day in Redis so
// repeated slot listings do not hit Google on every request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"booking-scheduler/internal/availability"
	"booking-scheduler/internal/logger"
	"booking-scheduler/internal/models"
)

const DefaultTTL = 5 * time.Minute

type BusyCache struct {
	rdb redis.Cmdable
	ttl time.Duration
	loc *time.Location
}

func NewBusyCache(rdb redis.Cmdable, ttl time.Duration, loc *time.Location) *BusyCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &BusyCache{rdb: rdb, ttl: ttl, loc: loc}
}

func (c *BusyCache) key(hostID int64, day time.Time) string {
	return fmt.Sprintf("busy:%d:%s", hostID, day.In(c.loc).Format(availability.DateFormat))
}

// Get returns the cached intervals and whether the key was present.
func (c *BusyCache) Get(ctx context.Context, hostID int64, day time.Time) ([]availability.Interval, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(hostID, day)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var busy []availability.Interval
	if err := json.Unmarshal([]byte(raw), &busy); err != nil {
		return nil, false, fmt.Errorf("decode cached busy time: %w", err)
	}
	return busy, true, nil
}

func (c *BusyCache) Set(ctx context.Context, hostID int64, day time.Time, busy []availability.Interval) error {
	if busy == nil {
		busy = []availability.Interval{}
	}
	payload, err := json.Marshal(busy)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(hostID, day), string(payload), c.ttl).Err()
}

// Invalidate drops the entry for the host and the calendar date of day.
func (c *BusyCache) Invalidate(ctx context.Context, hostID int64, day time.Time) error {
	return c.rdb.Del(ctx, c.key(hostID, day)).Err()
}

// Resolver is the busy-time source the cache sits in front of.
type Resolver interface {
	BusyIntervals(ctx context.Context, host models.User, from, to time.Time) ([]availability.Interval, error)
}

// CachedResolver serves whole-day lookups from the cache and falls through
// to next for anything else. Redis failures are logged and bypassed.
type CachedResolver struct {
	next  Resolver
	cache *BusyCache
}

func NewCachedResolver(next Resolver, cache *BusyCache) *CachedResolver {
	return &CachedResolver{next: next, cache: cache}
}

func (r *CachedResolver) BusyIntervals(ctx context.Context, host models.User, from, to time.Time) ([]availability.Interval, error) {
	day := availability.DayBounds(from, r.cache.loc)
	if !day.Equal(availability.Interval{Start: from, End: to}) {
		return r.next.BusyIntervals(ctx, host, from, to)
	}

	busy, ok, err := r.cache.Get(ctx, host.ID, from)
	if err != nil {
		logger.Warn("busy cache read failed", "host_id", host.ID, "error", err)
	} else if ok {
		return busy, nil
	}

	busy, err = r.next.BusyIntervals(ctx, host, from, to)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, host.ID, from, busy); err != nil {
		logger.Warn("busy cache write failed", "host_id", host.ID, "error", err)
	}
	return busy, nil
}

func (r *CachedResolver) Invalidate(ctx context.Context, hostID int64, day time.Time) error {
	return r.cache.Invalidate(ctx, hostID, day)
}
