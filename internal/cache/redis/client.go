// Package redis caches embeddings and finished match responses.
// Both caches are best effort; every method degrades to a miss on
// connection failure. Match entries are invalidated whenever the
// index mutates, embeddings are content-addressed and never stale.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/talentmatch/backend/internal/metrics"
	"github.com/talentmatch/backend/pkg/logger"
	"github.com/talentmatch/backend/pkg/utils"
)

const (
	embeddingKeyPrefix = "embedding:"
	matchKeyPrefix     = "match:"
)

type Client struct {
	client       *redis.Client
	embeddingTTL time.Duration
	matchTTL     time.Duration
}

func NewClient(host string, port int, password string, db int, embeddingTTL, matchTTL time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{
		client:       client,
		embeddingTTL: embeddingTTL,
		matchTTL:     matchTTL,
	}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// GetEmbedding implements the embedding cache consulted by the LLM
// client. Keys are content hashes of the input text.
func (c *Client) GetEmbedding(ctx context.Context, text string) ([]float32, bool) {
	key := embeddingKeyPrefix + utils.HashString(text)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		metrics.CacheMisses.WithLabelValues("embedding").Inc()
		return nil, false
	}
	if err != nil {
		logger.Warn("Embedding cache read failed", zap.Error(err))
		return nil, false
	}

	var embedding []float32
	if err := json.Unmarshal(data, &embedding); err != nil {
		logger.Warn("Corrupt embedding cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	metrics.CacheHits.WithLabelValues("embedding").Inc()
	return embedding, true
}

func (c *Client) SetEmbedding(ctx context.Context, text string, embedding []float32) {
	key := embeddingKeyPrefix + utils.HashString(text)

	data, err := json.Marshal(embedding)
	if err != nil {
		logger.Warn("Failed to marshal embedding", zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, key, data, c.embeddingTTL).Err(); err != nil {
		logger.Warn("Embedding cache write failed", zap.Error(err))
	}
}

// GetMatches reads a cached match response into dest. The key is
// derived from the job description and requested k.
func (c *Client) GetMatches(ctx context.Context, jobDescription string, k int, dest any) bool {
	key := matchKey(jobDescription, k)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		metrics.CacheMisses.WithLabelValues("match").Inc()
		return false
	}
	if err != nil {
		logger.Warn("Match cache read failed", zap.Error(err))
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		logger.Warn("Corrupt match cache entry", zap.String("key", key), zap.Error(err))
		return false
	}

	metrics.CacheHits.WithLabelValues("match").Inc()
	logger.Debug("Match cache hit", zap.String("key", key))
	return true
}

func (c *Client) SetMatches(ctx context.Context, jobDescription string, k int, response any) {
	data, err := json.Marshal(response)
	if err != nil {
		logger.Warn("Failed to marshal match response", zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, matchKey(jobDescription, k), data, c.matchTTL).Err(); err != nil {
		logger.Warn("Match cache write failed", zap.Error(err))
	}
}

// InvalidateMatches drops every cached match response. Called after
// any index mutation so stale rankings are never served.
func (c *Client) InvalidateMatches(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, matchKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
		}
	}

	if err := iter.Err(); err != nil {
		logger.Warn("Match cache invalidation failed", zap.Error(err))
		return
	}

	logger.Info("Match cache invalidated")
}

func matchKey(jobDescription string, k int) string {
	return matchKeyPrefix + utils.HashString(fmt.Sprintf("%s|%d", jobDescription, k))
}
