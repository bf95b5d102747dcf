// Package redis provides the Redis-backed quiz cache.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/victornm/quizassign/internal/domain"
	"github.com/victornm/quizassign/internal/quiz"
)

// QuizCache is a cache-aside quiz.Store. Quiz definitions are immutable, so
// cached entries never need invalidation and only expire to bound memory.
// Redis failures are logged and fall through to the backing store.
type QuizCache struct {
	client redis.UniversalClient
	store  quiz.Store
	prefix string
	ttl    time.Duration
	sf     singleflight.Group
}

type QuizCacheConfig struct {
	Client redis.UniversalClient
	Store  quiz.Store
	Prefix string
	TTL    time.Duration
}

func NewQuizCache(c QuizCacheConfig) *QuizCache {
	return &QuizCache{
		client: c.Client,
		store:  c.Store,
		prefix: c.Prefix,
		ttl:    c.TTL,
	}
}

func (c *QuizCache) Create(ctx context.Context, q domain.QuizDefinition) error {
	if err := c.store.Create(ctx, q); err != nil {
		return err
	}

	c.set(ctx, q)
	return nil
}

func (c *QuizCache) Get(ctx context.Context, id string) (domain.QuizDefinition, error) {
	if q, ok := c.get(ctx, id); ok {
		return q, nil
	}

	v, err, _ := c.sf.Do(id, func() (any, error) {
		if q, ok := c.get(ctx, id); ok {
			return q, nil
		}

		q, err := c.store.Get(ctx, id)
		if err != nil {
			return domain.QuizDefinition{}, err
		}

		c.set(ctx, q)
		return q, nil
	})
	if err != nil {
		return domain.QuizDefinition{}, err
	}

	return v.(domain.QuizDefinition), nil
}

func (c *QuizCache) get(ctx context.Context, id string) (domain.QuizDefinition, bool) {
	b, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.WarnContext(ctx, "quiz cache: get failed", "quiz_id", id, "error", err)
		}
		return domain.QuizDefinition{}, false
	}

	var q domain.QuizDefinition
	if err := json.Unmarshal(b, &q); err != nil {
		slog.WarnContext(ctx, "quiz cache: decode failed", "quiz_id", id, "error", err)
		return domain.QuizDefinition{}, false
	}

	return q, true
}

func (c *QuizCache) set(ctx context.Context, q domain.QuizDefinition) {
	b, err := json.Marshal(q)
	if err != nil {
		slog.WarnContext(ctx, "quiz cache: encode failed", "quiz_id", q.ID, "error", err)
		return
	}

	if err := c.client.Set(ctx, c.key(q.ID), b, c.ttlWithJitter()).Err(); err != nil {
		slog.WarnContext(ctx, "quiz cache: set failed", "quiz_id", q.ID, "error", err)
	}
}

func (c *QuizCache) key(id string) string {
	return fmt.Sprintf("%s:quiz:%s", c.prefix, id)
}

// ttlWithJitter spreads expiry by up to a tenth of the TTL. A zero TTL keeps
// entries until evicted.
func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	return c.ttl + rand.N(c.ttl/10+1)
}
