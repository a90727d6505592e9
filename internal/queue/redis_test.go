//go:build e2e

package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/johnqing-424/WeChat-Gewe/internal/config"
	"github.com/johnqing-424/WeChat-Gewe/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestRedisDispatcherSuite(t *testing.T) {
	suite.Run(t, new(RedisDispatcherTestSuite))
}

type RedisDispatcherTestSuite struct {
	suite.Suite
	rdb *redis.Client
	cfg config.QueueConfig
}

func (s *RedisDispatcherTestSuite) SetupSuite() {
	rdb, err := NewRedisClient("redis://localhost:6379/15")
	s.Require().NoError(err)
	s.Require().NoError(rdb.Ping(context.Background()).Err())
	s.rdb = rdb
}

func (s *RedisDispatcherTestSuite) TearDownSuite() {
	s.NoError(s.rdb.Close())
}

func (s *RedisDispatcherTestSuite) SetupTest() {
	s.cfg = config.Default().Queue
	s.cfg.Type = config.QueueTypeAdvanced
	s.cfg.MaxRetries = 1
	s.cfg.QueueName = fmt.Sprintf("opengewe_test_%d", time.Now().UnixNano())
}

func (s *RedisDispatcherTestSuite) TearDownTest() {
	keys, err := s.rdb.Keys(context.Background(), s.cfg.QueueName+":*").Result()
	s.Require().NoError(err)
	if len(keys) > 0 {
		s.NoError(s.rdb.Del(context.Background(), keys...).Err())
	}
}

func (s *RedisDispatcherTestSuite) TestEnqueueAndRetry() {
	t := s.T()
	d := NewRedisDispatcherWithClient(s.rdb, s.rdb, s.cfg, nil)
	calls := 0
	d.Register("flaky", func(ctx context.Context, task domain.Task) error {
		calls++
		if calls == 1 {
			return errors.New("first attempt fails")
		}
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- d.Start(ctx)
	}()

	id, err := d.Enqueue(context.Background(), domain.Task{Name: "flaky", DeviceID: "default"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		res, err := d.Status(context.Background(), id)
		return err == nil && res.Status == domain.TaskStatusSucceeded && res.Attempts == 2
	}, 5*time.Second, 20*time.Millisecond)

	ttl, err := s.rdb.TTL(context.Background(), s.cfg.QueueName+":result:"+id).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, d.Close())
}
