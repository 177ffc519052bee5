package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"lms-service/internal/app"
	"lms-service/internal/domain"
)

const (
	leaderboardKey  = "lms:leaderboard:global"
	courseKeyPrefix = "lms:leaderboard:course:"
	statsKey        = "lms:stats"
	courseAggsKey   = "lms:course_aggregates"
)

// AggregateCache decorates an AggregateRepository with Redis-cached
// snapshots. Views are stored as JSON blobs with a jittered TTL, and
// singleflight collapses concurrent misses into one upstream query. Writes
// invalidate through InvalidateAggregates, so snapshots are at most one TTL
// stale across instances.
type AggregateCache struct {
	client *redis.Client
	next   app.AggregateRepository
	ttl    time.Duration
	sf     singleflight.Group
}

func NewAggregateCache(client *redis.Client, next app.AggregateRepository, ttl time.Duration) *AggregateCache {
	return &AggregateCache{
		client: client,
		next:   next,
		ttl:    ttl,
	}
}

func (c *AggregateCache) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	var entries []domain.LeaderboardEntry
	err := c.cached(ctx, leaderboardKey, &entries, func() (interface{}, error) {
		return c.next.Leaderboard(ctx, limit)
	})
	return entries, err
}

func (c *AggregateCache) CourseLeaderboard(ctx context.Context, courseID string) ([]domain.LeaderboardEntry, error) {
	var entries []domain.LeaderboardEntry
	err := c.cached(ctx, courseKeyPrefix+courseID, &entries, func() (interface{}, error) {
		return c.next.CourseLeaderboard(ctx, courseID)
	})
	return entries, err
}

func (c *AggregateCache) Stats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	err := c.cached(ctx, statsKey, &stats, func() (interface{}, error) {
		return c.next.Stats(ctx)
	})
	return stats, err
}

func (c *AggregateCache) CourseAggregates(ctx context.Context) ([]domain.CourseAggregate, error) {
	var aggregates []domain.CourseAggregate
	err := c.cached(ctx, courseAggsKey, &aggregates, func() (interface{}, error) {
		return c.next.CourseAggregates(ctx)
	})
	return aggregates, err
}

// InvalidateAggregates drops every cached snapshot, including all per-course
// leaderboards.
func (c *AggregateCache) InvalidateAggregates(ctx context.Context) error {
	keys := []string{leaderboardKey, statsKey, courseAggsKey}
	iter := c.client.Scan(ctx, 0, courseKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return c.client.Del(ctx, keys...).Err()
}

// cached reads the snapshot for key into dst, consulting the upstream
// repository on a miss and filling the cache best effort.
func (c *AggregateCache) cached(ctx context.Context, key string, dst interface{}, load func() (interface{}, error)) error {
	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		return json.Unmarshal(raw, dst)
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
			return raw, nil
		}
		value, err := load()
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
		return raw, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(result.([]byte), dst)
}

func (c *AggregateCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
