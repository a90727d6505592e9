package dao

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/johnqing-424/WeChat-Gewe/internal/errs"
	"github.com/patrickmn/go-cache"
)

// memoryCallbackLogDAO 未配置数据库时使用，记录只在内存中保留 ttl
type memoryCallbackLogDAO struct {
	c *cache.Cache
}

func NewMemoryCallbackLogDAO(ttl time.Duration) CallbackLogDAO {
	return &memoryCallbackLogDAO{
		c: cache.New(ttl, ttl),
	}
}

func (d *memoryCallbackLogDAO) Insert(_ context.Context, log CallbackLog) error {
	now := time.Now().UnixMilli()
	log.Ctime, log.Utime = now, now
	if err := d.c.Add(d.key(log.ID), log, cache.DefaultExpiration); err != nil {
		return fmt.Errorf("回调记录 %d 已存在: %w", log.ID, err)
	}
	return nil
}

func (d *memoryCallbackLogDAO) UpdateStatus(_ context.Context, id uint64, status string) error {
	val, ok := d.c.Get(d.key(id))
	if !ok {
		return fmt.Errorf("%w: %d", errs.ErrCallbackLogNotFound, id)
	}
	log := val.(CallbackLog)
	log.Status = status
	log.Utime = time.Now().UnixMilli()
	d.c.SetDefault(d.key(id), log)
	return nil
}

func (d *memoryCallbackLogDAO) FindByID(_ context.Context, id uint64) (CallbackLog, error) {
	val, ok := d.c.Get(d.key(id))
	if !ok {
		return CallbackLog{}, fmt.Errorf("%w: %d", errs.ErrCallbackLogNotFound, id)
	}
	return val.(CallbackLog), nil
}

func (d *memoryCallbackLogDAO) key(id uint64) string {
	return strconv.FormatUint(id, 10)
}
