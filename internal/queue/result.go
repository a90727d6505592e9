package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/johnqing-424/WeChat-Gewe/internal/domain"
	"github.com/johnqing-424/WeChat-Gewe/internal/errs"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// ResultStore 保存任务执行结果
type ResultStore interface {
	Save(ctx context.Context, res domain.TaskResult) error
	Get(ctx context.Context, taskID string) (domain.TaskResult, error)
}

// LocalResultStore 进程内的结果存储，过期自动清理
type LocalResultStore struct {
	c *cache.Cache
}

func NewLocalResultStore(ttl time.Duration) *LocalResultStore {
	return &LocalResultStore{
		c: cache.New(ttl, ttl/2),
	}
}

func (s *LocalResultStore) Save(_ context.Context, res domain.TaskResult) error {
	s.c.SetDefault(res.TaskID, res)
	return nil
}

func (s *LocalResultStore) Get(_ context.Context, taskID string) (domain.TaskResult, error) {
	val, ok := s.c.Get(taskID)
	if !ok {
		return domain.TaskResult{}, fmt.Errorf("%w: %s", errs.ErrTaskNotFound, taskID)
	}
	return val.(domain.TaskResult), nil
}

// RedisResultStore 结果保存在 redis，多个实例共享
type RedisResultStore struct {
	cmd       redis.Cmdable
	ttl       time.Duration
	keyPrefix string
}

func NewRedisResultStore(cmd redis.Cmdable, ttl time.Duration, queueName string) *RedisResultStore {
	return &RedisResultStore{
		cmd:       cmd,
		ttl:       ttl,
		keyPrefix: fmt.Sprintf("%s:result:", queueName),
	}
}

func (s *RedisResultStore) Save(ctx context.Context, res domain.TaskResult) error {
	val, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return s.cmd.Set(ctx, s.key(res.TaskID), val, s.ttl).Err()
}

func (s *RedisResultStore) Get(ctx context.Context, taskID string) (domain.TaskResult, error) {
	val, err := s.cmd.Get(ctx, s.key(taskID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.TaskResult{}, fmt.Errorf("%w: %s", errs.ErrTaskNotFound, taskID)
		}
		return domain.TaskResult{}, err
	}
	var res domain.TaskResult
	err = json.Unmarshal(val, &res)
	return res, err
}

func (s *RedisResultStore) key(taskID string) string {
	return s.keyPrefix + taskID
}
