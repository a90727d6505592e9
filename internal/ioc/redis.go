package ioc

import (
	"time"

	"github.com/johnqing-424/WeChat-Gewe/internal/callback"
	"github.com/johnqing-424/WeChat-Gewe/internal/config"
	"github.com/johnqing-424/WeChat-Gewe/internal/queue"
	"github.com/redis/go-redis/v9"
)

// dedupWindow 网关重推同一条回调的去重窗口
const dedupWindow = 10 * time.Minute

// InitRedis enable_redis 关闭时返回 nil
func InitRedis(cfg config.BackendConfig) (*redis.Client, error) {
	if !cfg.EnableRedis {
		return nil, nil
	}
	return queue.NewRedisClient(cfg.RedisURL)
}

// InitDeduplicator 有 redis 时多实例共享去重窗口
func InitDeduplicator(client *redis.Client) callback.Deduplicator {
	if client == nil {
		return callback.NewLocalDeduplicator(dedupWindow)
	}
	return callback.NewRedisDeduplicator(client, dedupWindow)
}
