package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/redis/go-redis/v9"
)

// CredentialsProvider 提供每次请求附带的登录态请求头。
// 登录态如何获取不在这里处理。
type CredentialsProvider interface {
	Headers(ctx context.Context) (map[string]string, error)
}

// StaticCredentials 使用配置中固定的 cookie
type StaticCredentials struct {
	Cookie string
}

func (c StaticCredentials) Headers(context.Context) (map[string]string, error) {
	if c.Cookie == "" {
		return map[string]string{}, nil
	}
	return map[string]string{"Cookie": c.Cookie}, nil
}

// RedisCredentials 从 redis 读取多个实例共享的 cookie，每次调用都重新读取
type RedisCredentials struct {
	client *redis.Client
	key    string
}

func NewRedisCredentials(client *redis.Client, key string) *RedisCredentials {
	return &RedisCredentials{client: client, key: key}
}

func (c *RedisCredentials) Headers(ctx context.Context) (map[string]string, error) {
	cookie, err := c.client.Get(ctx, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cookie from redis: %w", err)
	}
	return map[string]string{"Cookie": cookie}, nil
}

// ProbeLocker 串行化探活请求，返回的 unlock 必须调用
type ProbeLocker interface {
	Lock(ctx context.Context) (unlock func(), err error)
}

type NoopProbeLocker struct{}

func (NoopProbeLocker) Lock(context.Context) (func(), error) {
	return func() {}, nil
}

// RedisProbeLocker 基于 redsync 的分布式锁，共享同一账号的多个实例同一时间只有一个在刷新登录态
type RedisProbeLocker struct {
	rs     *redsync.Redsync
	name   string
	expiry time.Duration
}

func NewRedisProbeLocker(rs *redsync.Redsync, name string, expiry time.Duration) *RedisProbeLocker {
	return &RedisProbeLocker{rs: rs, name: name, expiry: expiry}
}

func (l *RedisProbeLocker) Lock(ctx context.Context) (func(), error) {
	mutex := l.rs.NewMutex(l.name, redsync.WithExpiry(l.expiry))
	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("acquire probe lock: %w", err)
	}
	return func() {
		// 锁过期后解锁失败无需处理
		_, _ = mutex.Unlock()
	}, nil
}
