package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/johnqing-424/WeChat-Gewe/internal/errs"
	"gorm.io/gorm"
)

// CallbackLog 回调记录表
type CallbackLog struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement:false;comment:'回调记录ID'"`
	DeviceID string `gorm:"type:VARCHAR(64);NOT NULL;index:idx_device_ctime,priority:1;comment:'设备标识'"`
	Digest   string `gorm:"type:CHAR(40);NOT NULL;index:idx_digest;comment:'回调内容sha1'"`
	Payload  []byte `gorm:"type:MEDIUMBLOB;comment:'回调原文'"`
	TaskID   string `gorm:"type:VARCHAR(64);comment:'处理任务ID'"`
	Status   string `gorm:"type:ENUM('received','processed','failed');NOT NULL;DEFAULT:'received';comment:'处理状态'"`
	Ctime    int64  `gorm:"index:idx_device_ctime,priority:2"`
	Utime    int64
}

// TableName 重命名表
func (CallbackLog) TableName() string {
	return "callback_logs"
}

//go:generate mockgen -source=./callback_log.go -package=daomocks -destination=./mocks/callback_log.mock.go
type CallbackLogDAO interface {
	Insert(ctx context.Context, log CallbackLog) error
	UpdateStatus(ctx context.Context, id uint64, status string) error
	FindByID(ctx context.Context, id uint64) (CallbackLog, error)
}

type callbackLogDAO struct {
	db *gorm.DB
}

func NewCallbackLogDAO(db *gorm.DB) CallbackLogDAO {
	return &callbackLogDAO{
		db: db,
	}
}

func (d *callbackLogDAO) Insert(ctx context.Context, log CallbackLog) error {
	now := time.Now().UnixMilli()
	log.Ctime, log.Utime = now, now
	return d.db.WithContext(ctx).Create(&log).Error
}

func (d *callbackLogDAO) UpdateStatus(ctx context.Context, id uint64, status string) error {
	res := d.db.WithContext(ctx).Model(&CallbackLog{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status": status,
			"utime":  time.Now().UnixMilli(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", errs.ErrCallbackLogNotFound, id)
	}
	return nil
}

func (d *callbackLogDAO) FindByID(ctx context.Context, id uint64) (CallbackLog, error) {
	var log CallbackLog
	err := d.db.WithContext(ctx).Where("id = ?", id).First(&log).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return CallbackLog{}, fmt.Errorf("%w: %d", errs.ErrCallbackLogNotFound, id)
	}
	return log, err
}
