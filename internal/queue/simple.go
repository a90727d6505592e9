package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ecodeclub/mq-api"
	"github.com/ecodeclub/mq-api/memory"
	"github.com/gotomicro/ego/core/elog"
	"github.com/johnqing-424/WeChat-Gewe/internal/config"
	"github.com/johnqing-424/WeChat-Gewe/internal/domain"
	"github.com/johnqing-424/WeChat-Gewe/internal/errs"
	"golang.org/x/sync/errgroup"
)

const (
	consumerGroup = "opengewe_worker"
)

var _ Dispatcher = (*SimpleDispatcher)(nil)

// SimpleDispatcher 进程内队列，基于内存实现的 MQ，多个 worker 共享一个消费者
type SimpleDispatcher struct {
	*executor
	q           mq.MQ
	topic       string
	producer    mq.Producer
	consumer    mq.Consumer
	concurrency int
	closed      atomic.Bool
}

func NewSimpleDispatcher(cfg config.QueueConfig, logger *elog.Component) (*SimpleDispatcher, error) {
	q := memory.NewMQ()
	// 只用一个分区，消息按投递顺序被取出
	if err := q.CreateTopic(context.Background(), cfg.QueueName, 1); err != nil {
		return nil, fmt.Errorf("创建队列 %s 失败: %w", cfg.QueueName, err)
	}
	producer, err := q.Producer(cfg.QueueName)
	if err != nil {
		return nil, fmt.Errorf("创建生产者失败: %w", err)
	}
	// 消费者要在投递前创建，否则会丢掉之前的消息
	consumer, err := q.Consumer(cfg.QueueName, consumerGroup)
	if err != nil {
		return nil, fmt.Errorf("创建消费者失败: %w", err)
	}

	ttl := time.Duration(cfg.ResultTTL) * time.Second
	d := &SimpleDispatcher{
		executor:    newExecutor(config.QueueTypeSimple, NewLocalResultStore(ttl), cfg.MaxRetries, logger),
		q:           q,
		topic:       cfg.QueueName,
		producer:    producer,
		consumer:    consumer,
		concurrency: max(cfg.Concurrency, 1),
	}
	d.requeue = d.produce
	return d, nil
}

func (d *SimpleDispatcher) Enqueue(ctx context.Context, task domain.Task) (string, error) {
	if d.closed.Load() {
		return "", errs.ErrDispatcherClosed
	}
	task, err := d.prepare(ctx, task)
	if err != nil {
		return "", err
	}
	if err = d.produce(ctx, task); err != nil {
		return "", err
	}
	return task.ID, nil
}

func (d *SimpleDispatcher) produce(ctx context.Context, task domain.Task) error {
	val, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("序列化任务失败: %w", err)
	}
	_, err = d.producer.Produce(ctx, &mq.Message{
		Topic: d.topic,
		Key:   []byte(task.DeviceID),
		Value: val,
	})
	return err
}

func (d *SimpleDispatcher) Start(ctx context.Context) error {
	msgCh, err := d.consumer.ConsumeChan(ctx)
	if err != nil {
		return fmt.Errorf("获取消息失败: %w", err)
	}
	eg, ctx := errgroup.WithContext(ctx)
	for i := 0; i < d.concurrency; i++ {
		eg.Go(func() error {
			d.work(ctx, msgCh)
			return nil
		})
	}
	return eg.Wait()
}

func (d *SimpleDispatcher) work(ctx context.Context, msgCh <-chan *mq.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgCh:
			// 通道关闭说明队列已经关闭
			if !ok {
				return
			}
			var task domain.Task
			if err := json.Unmarshal(msg.Value, &task); err != nil {
				d.logger.Warn("解析任务失败", elog.FieldErr(err), elog.Any("msg", string(msg.Value)))
				continue
			}
			d.execute(ctx, task)
		}
	}
}

func (d *SimpleDispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	return d.q.Close()
}
