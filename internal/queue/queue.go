package queue

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/gotomicro/ego/core/elog"
	"github.com/johnqing-424/WeChat-Gewe/internal/config"
	"github.com/johnqing-424/WeChat-Gewe/internal/domain"
	"github.com/johnqing-424/WeChat-Gewe/internal/errs"
)

// Handler 处理一个任务，返回 error 时任务会被重试
type Handler func(ctx context.Context, task domain.Task) error

// Dispatcher 任务分发器。
// simple 模式在进程内执行，advanced 模式通过消息代理分发
//
//go:generate mockgen -source=./queue.go -package=queuemocks -destination=./mocks/queue.mock.go
type Dispatcher interface {
	// Register 注册任务处理器，需要在 Start 之前调用
	Register(name string, h Handler)
	// Enqueue 投递任务，返回任务 ID
	Enqueue(ctx context.Context, task domain.Task) (string, error)
	// Status 查询任务执行结果
	Status(ctx context.Context, taskID string) (domain.TaskResult, error)
	// Start 启动 worker，阻塞直到 ctx 结束
	Start(ctx context.Context) error
	Close() error
	Mode() string
}

// New 按配置创建分发器
func New(cfg config.QueueConfig, logger *elog.Component) (Dispatcher, error) {
	switch cfg.Type {
	case config.QueueTypeSimple, "":
		return NewSimpleDispatcher(cfg, logger)
	case config.QueueTypeAdvanced:
		return NewRedisDispatcher(cfg, logger)
	default:
		return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedQueue, cfg.Type)
	}
}

// NewTaskID 生成任务 ID，调用方需要提前知道任务 ID 时使用
func NewTaskID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("%w: %w", errs.ErrIDGenerateFailed, err)
	}
	return id.String(), nil
}
