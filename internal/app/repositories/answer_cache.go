package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"weread-agent/internal/app/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// AnswerCache 按问题摘要缓存最终回答
type AnswerCache interface {
	Get(ctx context.Context, key string) (*models.CachedAnswer, bool, error)
	Set(ctx context.Context, key string, answer *models.CachedAnswer) error
}

// RedisAnswerCache 多实例共享的缓存
type RedisAnswerCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ AnswerCache = (*RedisAnswerCache)(nil)

func NewRedisAnswerCache(client *redis.Client, ttl time.Duration) *RedisAnswerCache {
	return &RedisAnswerCache{client: client, prefix: "weread:answer:", ttl: ttl}
}

func (c *RedisAnswerCache) Get(ctx context.Context, key string) (*models.CachedAnswer, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var answer models.CachedAnswer
	if err := json.Unmarshal(raw, &answer); err != nil {
		return nil, false, fmt.Errorf("decode cached answer: %w", err)
	}
	return &answer, true, nil
}

func (c *RedisAnswerCache) Set(ctx context.Context, key string, answer *models.CachedAnswer) error {
	raw, err := json.Marshal(answer)
	if err != nil {
		return fmt.Errorf("encode cached answer: %w", err)
	}
	return c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err()
}

// MemoryAnswerCache 单进程缓存，未启用 redis 时使用
type MemoryAnswerCache struct {
	cache *gocache.Cache
}

var _ AnswerCache = (*MemoryAnswerCache)(nil)

func NewMemoryAnswerCache(ttl time.Duration) *MemoryAnswerCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &MemoryAnswerCache{cache: gocache.New(ttl, 2*ttl)}
}

func (c *MemoryAnswerCache) Get(_ context.Context, key string) (*models.CachedAnswer, bool, error) {
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	answer := *v.(*models.CachedAnswer)
	answer.View.Citations = append([]models.Citation{}, answer.View.Citations...)
	return &answer, true, nil
}

func (c *MemoryAnswerCache) Set(_ context.Context, key string, answer *models.CachedAnswer) error {
	stored := *answer
	stored.View.Citations = append([]models.Citation{}, answer.View.Citations...)
	c.cache.SetDefault(key, &stored)
	return nil
}
