//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"faceguard/internal/meeting/cache"
	id "faceguard/pkg/domain"
	"faceguard/pkg/platform/sentinel"
	"faceguard/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) TestReadThrough() {
	ctx := context.Background()
	c := cache.NewRedis(s.redis.Client)
	userID := id.UserID(uuid.New())

	_, err := c.Get(ctx, userID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	ref := &cache.Reference{EmbeddingID: id.NewEmbeddingID(), Vector: []float64{0.6, 0.8, 0}}
	s.Require().NoError(c.Set(ctx, userID, ref))

	got, err := c.Get(ctx, userID)
	s.Require().NoError(err)
	s.Equal(ref.EmbeddingID, got.EmbeddingID)
	s.Equal(ref.Vector, got.Vector)

	n, err := s.redis.CountKeys(ctx, "meeting:embedding:*")
	s.Require().NoError(err)
	s.Equal(1, n)

	s.Require().NoError(c.Invalidate(ctx, userID))
	_, err = c.Get(ctx, userID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisCacheSuite) TestEntriesExpire() {
	ctx := context.Background()
	c := cache.NewRedis(s.redis.Client, cache.WithTTL(time.Second))
	userID := id.UserID(uuid.New())

	s.Require().NoError(c.Set(ctx, userID, &cache.Reference{Vector: []float64{1}}))
	ttl, err := s.redis.Client.TTL(ctx, "meeting:embedding:"+userID.String()).Result()
	s.Require().NoError(err)
	s.LessOrEqual(ttl, time.Second)
	s.Greater(ttl, time.Duration(0))
}
