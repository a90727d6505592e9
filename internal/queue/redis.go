package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/ecodeclub/ekit/retry"
	"github.com/gotomicro/ego/core/elog"
	"github.com/johnqing-424/WeChat-Gewe/internal/config"
	"github.com/johnqing-424/WeChat-Gewe/internal/domain"
	"github.com/johnqing-424/WeChat-Gewe/internal/errs"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	// pollTimeout BRPOP 的阻塞时间，决定 worker 响应退出的速度
	pollTimeout = time.Second

	brokerBackoffInitial = 100 * time.Millisecond
	brokerBackoffMax     = 10 * time.Second
	brokerBackoffRetries = 1 << 20
)

var _ Dispatcher = (*RedisDispatcher)(nil)

// RedisDispatcher 使用 redis list 作为消息代理，任务结果写入 backend
type RedisDispatcher struct {
	*executor
	broker      redis.Cmdable
	key         string
	concurrency int
	closers     []func() error
	closed      atomic.Bool
}

// NewRedisDispatcher 根据 broker/backend 地址创建 redis 客户端
func NewRedisDispatcher(cfg config.QueueConfig, logger *elog.Component) (*RedisDispatcher, error) {
	broker, err := NewRedisClient(cfg.Broker)
	if err != nil {
		return nil, err
	}
	backend, err := NewRedisClient(cfg.Backend)
	if err != nil {
		_ = broker.Close()
		return nil, err
	}
	d := NewRedisDispatcherWithClient(broker, backend, cfg, logger)
	d.closers = append(d.closers, broker.Close, backend.Close)
	return d, nil
}

// NewRedisDispatcherWithClient 使用已有的客户端，调用方负责关闭客户端
func NewRedisDispatcherWithClient(broker, backend redis.Cmdable, cfg config.QueueConfig, logger *elog.Component) *RedisDispatcher {
	ttl := time.Duration(cfg.ResultTTL) * time.Second
	d := &RedisDispatcher{
		executor:    newExecutor(config.QueueTypeAdvanced, NewRedisResultStore(backend, ttl, cfg.QueueName), cfg.MaxRetries, logger),
		broker:      broker,
		key:         fmt.Sprintf("%s:queue", cfg.QueueName),
		concurrency: max(cfg.Concurrency, 1),
	}
	d.requeue = d.push
	return d
}

// NewRedisClient 只支持 redis:// 和 rediss:// 地址
func NewRedisClient(rawURL string) (*redis.Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedBroker, rawURL)
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedBroker, u.Scheme)
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrUnsupportedBroker, err)
	}
	return redis.NewClient(opts), nil
}

func (d *RedisDispatcher) Enqueue(ctx context.Context, task domain.Task) (string, error) {
	if d.closed.Load() {
		return "", errs.ErrDispatcherClosed
	}
	task, err := d.prepare(ctx, task)
	if err != nil {
		return "", err
	}
	if err = d.push(ctx, task); err != nil {
		return "", err
	}
	return task.ID, nil
}

func (d *RedisDispatcher) push(ctx context.Context, task domain.Task) error {
	val, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("序列化任务失败: %w", err)
	}
	return d.broker.LPush(ctx, d.key, val).Err()
}

func (d *RedisDispatcher) Start(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	for i := 0; i < d.concurrency; i++ {
		eg.Go(func() error {
			return d.work(ctx)
		})
	}
	return eg.Wait()
}

func (d *RedisDispatcher) work(ctx context.Context) error {
	var strategy *retry.ExponentialBackoffRetryStrategy
	for {
		if ctx.Err() != nil || d.closed.Load() {
			return nil
		}
		res, err := d.broker.BRPop(ctx, pollTimeout, d.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil || d.closed.Load() {
				return nil
			}
			if strategy == nil {
				strategy, err = retry.NewExponentialBackoffRetryStrategy(brokerBackoffInitial, brokerBackoffMax, brokerBackoffRetries)
				if err != nil {
					return err
				}
			}
			next, ok := strategy.Next()
			if !ok {
				return fmt.Errorf("消息代理持续不可用: %w", err)
			}
			d.logger.Error("从消息代理获取任务失败", elog.FieldErr(err), elog.Any("backoff", next.String()))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(next):
			}
			continue
		}
		strategy = nil

		// BRPOP 返回 [key, value]
		const valueIdx = 1
		var task domain.Task
		if err = json.Unmarshal([]byte(res[valueIdx]), &task); err != nil {
			d.logger.Warn("解析任务失败", elog.FieldErr(err), elog.Any("msg", res[valueIdx]))
			continue
		}
		d.execute(ctx, task)
	}
}

func (d *RedisDispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	var err error
	for _, c := range d.closers {
		err = errors.Join(err, c())
	}
	return err
}
