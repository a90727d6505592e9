package ioc

import (
	"github.com/gotomicro/ego/core/elog"
	"github.com/johnqing-424/WeChat-Gewe/internal/config"
)

// InitLogger 根据 [logging] 创建日志组件，同时替换 elog.DefaultLogger
func InitLogger(cfg config.LoggingConfig) *elog.Component {
	opts := []elog.Option{
		elog.WithLevel(cfg.ElogLevel()),
		elog.WithDebug(cfg.Stdout),
	}
	if cfg.File != "" {
		opts = append(opts, elog.WithFileName(cfg.File))
	}
	logger := elog.DefaultContainer().Build(opts...)
	elog.DefaultLogger = logger
	return logger
}
