package ioc

import (
	"context"
	"errors"

	"github.com/gotomicro/ego/core/elog"
	"github.com/hashicorp/go-multierror"
	"github.com/johnqing-424/WeChat-Gewe/internal/callback"
	"github.com/johnqing-424/WeChat-Gewe/internal/config"
	"github.com/johnqing-424/WeChat-Gewe/internal/device"
	"github.com/johnqing-424/WeChat-Gewe/internal/domain"
	"github.com/johnqing-424/WeChat-Gewe/internal/metrics"
	"github.com/johnqing-424/WeChat-Gewe/internal/queue"
	"github.com/johnqing-424/WeChat-Gewe/internal/repository"
	"github.com/johnqing-424/WeChat-Gewe/internal/server"
	"golang.org/x/sync/errgroup"
)

type App struct {
	Config          config.Config
	Logger          *elog.Component
	Registry        *device.Registry
	Dispatcher      queue.Dispatcher
	CallbackLogRepo repository.CallbackLogRepository
	CallbackSvc     *callback.Service
	Server          *server.Server

	closers []func() error
}

// InitApp 按配置组装所有组件，出错时已创建的资源会被释放
func InitApp(cfg config.Config, logger *elog.Component) (app *App, err error) {
	if logger == nil {
		logger = elog.DefaultLogger
	}
	app = &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = app.Close()
			app = nil
		}
	}()

	app.Registry, err = device.NewRegistry(cfg.Devices)
	if err != nil {
		return app, err
	}

	db, err := InitDB(cfg.Database)
	if err != nil {
		return app, err
	}
	if db != nil {
		sqlDB, er := db.DB()
		if er != nil {
			return app, er
		}
		app.closers = append(app.closers, sqlDB.Close)
	}
	idGen, err := InitIDGenerator(cfg.Database, logger)
	if err != nil {
		return app, err
	}
	app.CallbackLogRepo = InitCallbackLogRepository(db, idGen)

	rdb, err := InitRedis(cfg.Backend)
	if err != nil {
		return app, err
	}
	if rdb != nil {
		app.closers = append(app.closers, rdb.Close)
	}

	app.Dispatcher, err = queue.New(cfg.Queue, logger)
	if err != nil {
		return app, err
	}
	app.closers = append(app.closers, app.Dispatcher.Close)

	app.CallbackSvc = callback.NewService(app.Registry, InitDeduplicator(rdb), app.CallbackLogRepo, app.Dispatcher, logger)
	app.Dispatcher.Register(domain.TaskNameCallback, app.CallbackSvc.Process)

	app.Server, err = server.New(cfg.Backend, app.Registry, app.Dispatcher, callback.NewHandler(app.CallbackSvc, logger), logger)
	if err != nil {
		return app, err
	}
	return app, nil
}

// Run 同时运行 HTTP 服务和任务 worker，任意一个退出都会结束
func (a *App) Run(ctx context.Context) error {
	metrics.Register()
	a.Logger.Info("服务启动",
		elog.String("queue", a.Dispatcher.Mode()),
		elog.Int("devices", a.Registry.Len()),
		elog.String("addr", a.Server.Addr()),
	)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return a.Dispatcher.Start(ctx)
	})
	eg.Go(func() error {
		err := a.Server.Run(ctx)
		if err != nil {
			return err
		}
		// 服务正常退出时也要让 worker 停下来
		return context.Canceled
	})
	err := eg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close 按创建的逆序释放资源
func (a *App) Close() error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if er := a.closers[i](); er != nil {
			err = multierror.Append(err, er)
		}
	}
	a.closers = nil
	return err
}
