package ioc

import (
	"fmt"
	"strings"
	"time"

	"github.com/gotomicro/ego/core/elog"
	"github.com/johnqing-424/WeChat-Gewe/internal/config"
	"github.com/johnqing-424/WeChat-Gewe/internal/errs"
	"github.com/johnqing-424/WeChat-Gewe/internal/repository"
	"github.com/johnqing-424/WeChat-Gewe/internal/repository/dao"
	"github.com/sony/sonyflake"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

const (
	mysqlScheme = "mysql://"

	// callbackLogTTL 不落库时回调记录在内存中的保留时间
	callbackLogTTL = 24 * time.Hour
)

// InitDB url 为空时返回 nil，表示不落库
func InitDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	dsn, ok := strings.CutPrefix(cfg.URL, mysqlScheme)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedDatabase, cfg.URL)
	}

	level := glogger.Warn
	if cfg.Echo {
		level = glogger.Info
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: glogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)

	if err = dao.InitTables(db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("初始化表结构失败: %w", err)
	}
	return db, nil
}

// idEpoch 回调记录ID的起始时间，上线后不能修改
var idEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// fallbackMachineID 取不到私有 IP 时使用，只适合单实例
const fallbackMachineID = 1

// InitIDGenerator 多实例共用一张表时，machine_id 必须各不相同。
// machine_id 为 0 时使用私有 IP 的低 16 位
func InitIDGenerator(cfg config.DatabaseConfig, logger *elog.Component) (*sonyflake.Sonyflake, error) {
	if logger == nil {
		logger = elog.DefaultLogger
	}
	st := sonyflake.Settings{StartTime: idEpoch}
	if cfg.MachineID > 0 {
		id := uint16(cfg.MachineID)
		st.MachineID = func() (uint16, error) {
			return id, nil
		}
	}
	gen := sonyflake.NewSonyflake(st)
	if gen != nil {
		return gen, nil
	}
	if cfg.MachineID > 0 {
		return nil, errs.ErrIDGenerateFailed
	}

	logger.Warn("获取本机私有 IP 失败，使用固定机器号，多实例部署时请配置 database.machine_id",
		elog.Int("machineID", fallbackMachineID))
	st.MachineID = func() (uint16, error) {
		return fallbackMachineID, nil
	}
	gen = sonyflake.NewSonyflake(st)
	if gen == nil {
		return nil, errs.ErrIDGenerateFailed
	}
	return gen, nil
}

// InitCallbackLogRepository db 为 nil 时使用内存存储
func InitCallbackLogRepository(db *gorm.DB, idGen repository.IDGenerator) repository.CallbackLogRepository {
	var d dao.CallbackLogDAO
	if db == nil {
		d = dao.NewMemoryCallbackLogDAO(callbackLogTTL)
	} else {
		d = dao.NewCallbackLogDAO(db)
	}
	return repository.NewCallbackLogRepository(d, idGen)
}
