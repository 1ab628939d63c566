// Package cache keeps users' current reference embeddings close to the
// meeting gate.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "faceguard/pkg/domain"
	"faceguard/pkg/platform/sentinel"
)

const embeddingKeyPrefix = "meeting:embedding:"

const defaultTTL = 10 * time.Minute

// Reference is the cached form of a current embedding.
type Reference struct {
	EmbeddingID id.EmbeddingID `json:"embedding_id"`
	Vector      []float64      `json:"vector"`
}

// RedisEmbeddingCache is a TTL-bounded cache of current embeddings. Writers of
// a new reference call Invalidate; readers compare EmbeddingID against the
// user's status before trusting an entry.
type RedisEmbeddingCache struct {
	client *redis.Client
	ttl    time.Duration
}

type Option func(*RedisEmbeddingCache)

func WithTTL(ttl time.Duration) Option {
	return func(c *RedisEmbeddingCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func NewRedis(client *redis.Client, opts ...Option) *RedisEmbeddingCache {
	c := &RedisEmbeddingCache{client: client, ttl: defaultTTL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns sentinel.ErrNotFound on a miss.
func (c *RedisEmbeddingCache) Get(ctx context.Context, userID id.UserID) (*Reference, error) {
	raw, err := c.client.Get(ctx, embeddingKeyPrefix+userID.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get cached embedding: %w", err)
	}
	var ref Reference
	if err := json.Unmarshal(raw, &ref); err != nil {
		return nil, fmt.Errorf("decode cached embedding: %w", err)
	}
	return &ref, nil
}

func (c *RedisEmbeddingCache) Set(ctx context.Context, userID id.UserID, ref *Reference) error {
	raw, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("encode cached embedding: %w", err)
	}
	return c.client.Set(ctx, embeddingKeyPrefix+userID.String(), raw, c.ttl).Err()
}

func (c *RedisEmbeddingCache) Invalidate(ctx context.Context, userID id.UserID) error {
	return c.client.Del(ctx, embeddingKeyPrefix+userID.String()).Err()
}
