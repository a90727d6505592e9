package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/ecodeclub/ekit/syncx"
	"github.com/gotomicro/ego/core/elog"
	"github.com/johnqing-424/WeChat-Gewe/internal/domain"
	"github.com/johnqing-424/WeChat-Gewe/internal/errs"
	"github.com/johnqing-424/WeChat-Gewe/internal/metrics"
)

// executor 两种模式共用的任务执行逻辑
type executor struct {
	mode       string
	handlers   syncx.Map[string, Handler]
	results    ResultStore
	maxRetries int
	logger     *elog.Component
	// requeue 把失败的任务重新放回队列
	requeue func(ctx context.Context, task domain.Task) error
}

func newExecutor(mode string, results ResultStore, maxRetries int, logger *elog.Component) *executor {
	if logger == nil {
		logger = elog.DefaultLogger
	}
	return &executor{
		mode:       mode,
		results:    results,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

func (e *executor) Register(name string, h Handler) {
	e.handlers.Store(name, h)
}

func (e *executor) Mode() string {
	return e.mode
}

func (e *executor) Status(ctx context.Context, taskID string) (domain.TaskResult, error) {
	return e.results.Get(ctx, taskID)
}

// prepare 补全任务 ID 并记录 pending 状态
func (e *executor) prepare(ctx context.Context, task domain.Task) (domain.Task, error) {
	if task.ID == "" {
		id, err := NewTaskID()
		if err != nil {
			return task, err
		}
		task.ID = id
	}
	if task.EnqueuedAt == 0 {
		task.EnqueuedAt = time.Now().UnixMilli()
	}
	err := e.results.Save(ctx, domain.TaskResult{
		TaskID:    task.ID,
		Name:      task.Name,
		Status:    domain.TaskStatusPending,
		UpdatedAt: time.Now().UnixMilli(),
	})
	return task, err
}

func (e *executor) execute(ctx context.Context, task domain.Task) {
	attempts := task.Retries + 1
	h, ok := e.handlers.Load(task.Name)
	if !ok {
		e.logger.Error("未注册的任务处理器", elog.String("task", task.Name), elog.String("taskID", task.ID))
		e.finish(ctx, task, attempts, domain.TaskStatusFailed, fmt.Errorf("%w: %s", errs.ErrHandlerNotFound, task.Name))
		return
	}

	e.save(ctx, task, attempts, domain.TaskStatusRunning, nil)
	start := time.Now()
	err := e.call(ctx, h, task)
	metrics.TaskDuration.WithLabelValues(e.mode, task.Name).Observe(time.Since(start).Seconds())
	if err == nil {
		e.finish(ctx, task, attempts, domain.TaskStatusSucceeded, nil)
		return
	}

	if task.Retries < e.maxRetries {
		e.logger.Warn("任务执行失败，准备重试",
			elog.FieldErr(err),
			elog.String("taskID", task.ID),
			elog.Int("attempts", attempts))
		task.Retries++
		e.save(ctx, task, attempts, domain.TaskStatusPending, err)
		metrics.TasksTotal.WithLabelValues(e.mode, task.Name, "retried").Inc()
		if rqErr := e.requeue(ctx, task); rqErr != nil {
			e.logger.Error("任务重新入队失败", elog.FieldErr(rqErr), elog.String("taskID", task.ID))
			e.finish(ctx, task, attempts, domain.TaskStatusFailed, rqErr)
		}
		return
	}
	e.logger.Error("任务执行失败", elog.FieldErr(err), elog.String("taskID", task.ID), elog.Int("attempts", attempts))
	e.finish(ctx, task, attempts, domain.TaskStatusFailed, err)
}

// call 处理器 panic 时按执行失败处理
func (e *executor) call(ctx context.Context, h Handler, task domain.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("任务处理器 panic: %v", r)
		}
	}()
	return h(ctx, task)
}

func (e *executor) finish(ctx context.Context, task domain.Task, attempts int, status domain.TaskStatus, err error) {
	metrics.TasksTotal.WithLabelValues(e.mode, task.Name, string(status)).Inc()
	e.save(ctx, task, attempts, status, err)
}

func (e *executor) save(ctx context.Context, task domain.Task, attempts int, status domain.TaskStatus, err error) {
	res := domain.TaskResult{
		TaskID:    task.ID,
		Name:      task.Name,
		Status:    status,
		Attempts:  attempts,
		UpdatedAt: time.Now().UnixMilli(),
	}
	if err != nil {
		res.Error = err.Error()
	}
	// worker 退出时 ctx 可能已经取消，结果仍然要写入
	if saveErr := e.results.Save(context.WithoutCancel(ctx), res); saveErr != nil {
		e.logger.Error("保存任务结果失败", elog.FieldErr(saveErr), elog.String("taskID", task.ID))
	}
}
