package callback

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gotomicro/ego/core/elog"
	"github.com/johnqing-424/WeChat-Gewe/internal/device"
	"github.com/johnqing-424/WeChat-Gewe/internal/domain"
	"github.com/johnqing-424/WeChat-Gewe/internal/errs"
	"github.com/johnqing-424/WeChat-Gewe/internal/metrics"
	"github.com/johnqing-424/WeChat-Gewe/internal/queue"
	"github.com/johnqing-424/WeChat-Gewe/internal/repository"
)

// Receipt 接收回调的结果
type Receipt struct {
	TaskID    string `json:"task_id,omitempty"`
	LogID     uint64 `json:"log_id,omitempty,string"`
	Duplicate bool   `json:"duplicate"`
}

// taskPayload callback 任务在队列中的内容
type taskPayload struct {
	LogID uint64          `json:"log_id"`
	Body  json.RawMessage `json:"body"`
}

// Service 接收网关回调：去重、记录、投递到任务队列
type Service struct {
	registry   *device.Registry
	dedup      Deduplicator
	repo       repository.CallbackLogRepository
	dispatcher queue.Dispatcher
	logger     *elog.Component
}

func NewService(registry *device.Registry, dedup Deduplicator, repo repository.CallbackLogRepository,
	dispatcher queue.Dispatcher, logger *elog.Component,
) *Service {
	if logger == nil {
		logger = elog.DefaultLogger
	}
	return &Service{
		registry:   registry,
		dedup:      dedup,
		repo:       repo,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Receive 处理设备 deviceID 收到的一次回调，body 只要求是合法 JSON
func (s *Service) Receive(ctx context.Context, deviceID string, body []byte) (Receipt, error) {
	if _, err := s.registry.Get(deviceID); err != nil {
		metrics.CallbacksTotal.WithLabelValues(deviceID, "unknown_device").Inc()
		return Receipt{}, err
	}
	if len(body) == 0 || !json.Valid(body) {
		metrics.CallbacksTotal.WithLabelValues(deviceID, "invalid").Inc()
		return Receipt{}, fmt.Errorf("%w: 不是合法的 JSON", errs.ErrInvalidCallback)
	}

	digest := Digest(body)
	key := deviceID + ":" + digest
	first, err := s.dedup.Mark(ctx, key)
	if err != nil {
		// 去重失败不影响接收，最多重复处理一次
		s.logger.Warn("回调去重失败", elog.FieldErr(err), elog.String("device", deviceID))
		first = true
	}
	if !first {
		metrics.CallbacksTotal.WithLabelValues(deviceID, "duplicate").Inc()
		s.logger.Debug("忽略重复回调", elog.String("device", deviceID), elog.String("digest", digest))
		return Receipt{Duplicate: true}, nil
	}

	receipt, err := s.accept(ctx, deviceID, digest, body)
	if err != nil {
		metrics.CallbacksTotal.WithLabelValues(deviceID, "error").Inc()
		if fErr := s.dedup.Forget(ctx, key); fErr != nil {
			s.logger.Warn("清除回调去重标记失败", elog.FieldErr(fErr), elog.String("device", deviceID))
		}
		return Receipt{}, err
	}
	metrics.CallbacksTotal.WithLabelValues(deviceID, "accepted").Inc()
	return receipt, nil
}

func (s *Service) accept(ctx context.Context, deviceID, digest string, body []byte) (Receipt, error) {
	taskID, err := queue.NewTaskID()
	if err != nil {
		return Receipt{}, err
	}
	log, err := s.repo.Create(ctx, domain.CallbackLog{
		DeviceID: deviceID,
		Digest:   digest,
		Payload:  body,
		TaskID:   taskID,
		Status:   domain.CallbackLogStatusReceived,
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("保存回调记录失败: %w", err)
	}

	payload, err := json.Marshal(taskPayload{LogID: log.ID, Body: body})
	if err != nil {
		return Receipt{}, err
	}
	_, err = s.dispatcher.Enqueue(ctx, domain.Task{
		ID:       taskID,
		Name:     domain.TaskNameCallback,
		DeviceID: deviceID,
		Payload:  payload,
	})
	if err != nil {
		if uErr := s.repo.UpdateStatus(ctx, log.ID, domain.CallbackLogStatusFailed); uErr != nil {
			s.logger.Error("更新回调记录状态失败", elog.FieldErr(uErr), elog.Any("logID", log.ID))
		}
		return Receipt{}, fmt.Errorf("投递回调任务失败: %w", err)
	}
	return Receipt{TaskID: taskID, LogID: log.ID}, nil
}

// Process callback 任务的处理器
func (s *Service) Process(ctx context.Context, task domain.Task) error {
	var p taskPayload
	if err := json.Unmarshal(task.Payload, &p); err != nil {
		// 内容损坏，重试也没有意义
		s.logger.Error("解析回调任务失败", elog.FieldErr(err), elog.String("taskID", task.ID))
		return nil
	}
	dev, err := s.registry.Get(task.DeviceID)
	if err != nil {
		s.logger.Error("回调任务对应的设备不存在", elog.FieldErr(err), elog.String("taskID", task.ID))
		return s.markFailed(ctx, p.LogID)
	}
	s.logger.Info("处理网关回调",
		elog.String("device", dev.ID),
		elog.String("name", dev.Name),
		elog.String("mode", dev.Mode.String()),
		elog.String("taskID", task.ID),
		elog.Int("size", len(p.Body)))

	err = s.repo.UpdateStatus(ctx, p.LogID, domain.CallbackLogStatusProcessed)
	if errors.Is(err, errs.ErrCallbackLogNotFound) {
		// 内存中的记录可能已经过期
		s.logger.Warn("回调记录不存在", elog.Any("logID", p.LogID))
		return nil
	}
	return err
}

func (s *Service) markFailed(ctx context.Context, logID uint64) error {
	err := s.repo.UpdateStatus(ctx, logID, domain.CallbackLogStatusFailed)
	if errors.Is(err, errs.ErrCallbackLogNotFound) {
		return nil
	}
	return err
}

// Digest 回调内容的 sha1
func Digest(body []byte) string {
	sum := sha1.Sum(body)
	return hex.EncodeToString(sum[:])
}
