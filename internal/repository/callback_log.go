package repository

import (
	"context"
	"fmt"

	"github.com/johnqing-424/WeChat-Gewe/internal/domain"
	"github.com/johnqing-424/WeChat-Gewe/internal/errs"
	"github.com/johnqing-424/WeChat-Gewe/internal/repository/dao"
)

// IDGenerator 生成回调记录ID，*sonyflake.Sonyflake 满足该接口
type IDGenerator interface {
	NextID() (uint64, error)
}

// CallbackLogRepository 回调记录仓储接口
type CallbackLogRepository interface {
	// Create 保存回调记录，返回带ID的记录
	Create(ctx context.Context, log domain.CallbackLog) (domain.CallbackLog, error)
	UpdateStatus(ctx context.Context, id uint64, status domain.CallbackLogStatus) error
	FindByID(ctx context.Context, id uint64) (domain.CallbackLog, error)
}

type callbackLogRepository struct {
	d     dao.CallbackLogDAO
	idGen IDGenerator
}

func NewCallbackLogRepository(d dao.CallbackLogDAO, idGen IDGenerator) CallbackLogRepository {
	return &callbackLogRepository{
		d:     d,
		idGen: idGen,
	}
}

func (c *callbackLogRepository) Create(ctx context.Context, log domain.CallbackLog) (domain.CallbackLog, error) {
	id, err := c.idGen.NextID()
	if err != nil {
		return domain.CallbackLog{}, fmt.Errorf("%w: %w", errs.ErrIDGenerateFailed, err)
	}
	log.ID = id
	if log.Status == "" {
		log.Status = domain.CallbackLogStatusReceived
	}
	if err = c.d.Insert(ctx, c.toDAO(log)); err != nil {
		return domain.CallbackLog{}, err
	}
	return log, nil
}

func (c *callbackLogRepository) UpdateStatus(ctx context.Context, id uint64, status domain.CallbackLogStatus) error {
	return c.d.UpdateStatus(ctx, id, status.String())
}

func (c *callbackLogRepository) FindByID(ctx context.Context, id uint64) (domain.CallbackLog, error) {
	log, err := c.d.FindByID(ctx, id)
	if err != nil {
		return domain.CallbackLog{}, err
	}
	return c.toDomain(log), nil
}

func (c *callbackLogRepository) toDomain(log dao.CallbackLog) domain.CallbackLog {
	return domain.CallbackLog{
		ID:       log.ID,
		DeviceID: log.DeviceID,
		Digest:   log.Digest,
		Payload:  log.Payload,
		TaskID:   log.TaskID,
		Status:   domain.CallbackLogStatus(log.Status),
		Ctime:    log.Ctime,
		Utime:    log.Utime,
	}
}

func (c *callbackLogRepository) toDAO(log domain.CallbackLog) dao.CallbackLog {
	return dao.CallbackLog{
		ID:       log.ID,
		DeviceID: log.DeviceID,
		Digest:   log.Digest,
		Payload:  log.Payload,
		TaskID:   log.TaskID,
		Status:   log.Status.String(),
	}
}
