package callback

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Deduplicator 网关超时会重复推送同一条回调，在窗口期内只处理一次
type Deduplicator interface {
	// Mark 第一次出现时返回 true
	Mark(ctx context.Context, key string) (bool, error)
	// Forget 处理失败时删除标记，让网关的重试可以进来
	Forget(ctx context.Context, key string) error
}

type LocalDeduplicator struct {
	c   *cache.Cache
	ttl time.Duration
}

func NewLocalDeduplicator(ttl time.Duration) *LocalDeduplicator {
	return &LocalDeduplicator{
		c:   cache.New(ttl, ttl),
		ttl: ttl,
	}
}

func (d *LocalDeduplicator) Mark(_ context.Context, key string) (bool, error) {
	// Add 在 key 已存在且未过期时返回 error
	return d.c.Add(key, struct{}{}, d.ttl) == nil, nil
}

func (d *LocalDeduplicator) Forget(_ context.Context, key string) error {
	d.c.Delete(key)
	return nil
}

// RedisDeduplicator 多个实例共享去重窗口
type RedisDeduplicator struct {
	cmd       redis.Cmdable
	ttl       time.Duration
	keyPrefix string
}

func NewRedisDeduplicator(cmd redis.Cmdable, ttl time.Duration) *RedisDeduplicator {
	return &RedisDeduplicator{
		cmd:       cmd,
		ttl:       ttl,
		keyPrefix: "opengewe:callback:dedup:",
	}
}

func (d *RedisDeduplicator) Mark(ctx context.Context, key string) (bool, error) {
	return d.cmd.SetNX(ctx, d.keyPrefix+key, 1, d.ttl).Result()
}

func (d *RedisDeduplicator) Forget(ctx context.Context, key string) error {
	return d.cmd.Del(ctx, d.keyPrefix+key).Err()
}
