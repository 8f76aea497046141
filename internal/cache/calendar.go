// Package cache holds a Redis-backed cache for the public free-range calendar.
//
// Entries are keyed by a generation counter; Invalidate bumps the counter so
// every older entry becomes unreachable and expires on its own TTL. Conflict
// checks never read from this cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anonymous-error404/FarmHouse-Website-Backend/internal/model"
	"github.com/go-redis/redis/v8"
)

const generationKey = "calendar:generation"

// CalendarCache caches FreeRanges results.
type CalendarCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisClient builds a client and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}

// NewCalendarCache constructs a CalendarCache.
func NewCalendarCache(rdb *redis.Client, ttl time.Duration) *CalendarCache {
	return &CalendarCache{rdb: rdb, ttl: ttl}
}

// Generation returns the current cache generation. Callers read it once
// before computing a calendar and pass it to both Get and Set, so a result
// computed across an Invalidate lands under a generation nobody reads.
func (c *CalendarCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("redis get %s: %w", generationKey, err)
	}
	return gen, nil
}

// Get returns the cached free ranges for [start, end] in generation gen.
func (c *CalendarCache) Get(ctx context.Context, gen int64, start, end model.Date) ([]model.Period, bool, error) {
	key := calendarKey(gen, start, end)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var periods []model.Period
	if err := json.Unmarshal(raw, &periods); err != nil {
		return nil, false, fmt.Errorf("decode cached calendar: %w", err)
	}
	return periods, true, nil
}

// Set stores free ranges for [start, end] under generation gen.
func (c *CalendarCache) Set(ctx context.Context, gen int64, start, end model.Date, periods []model.Period) error {
	key := calendarKey(gen, start, end)
	raw, err := json.Marshal(periods)
	if err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Invalidate drops every cached calendar.
func (c *CalendarCache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("redis incr %s: %w", generationKey, err)
	}
	return nil
}

func calendarKey(gen int64, start, end model.Date) string {
	return fmt.Sprintf("calendar:%d:%s:%s", gen, start, end)
}
