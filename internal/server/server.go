package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gotomicro/ego/core/elog"
	"github.com/johnqing-424/WeChat-Gewe/internal/callback"
	"github.com/johnqing-424/WeChat-Gewe/internal/config"
	"github.com/johnqing-424/WeChat-Gewe/internal/device"
	"github.com/johnqing-424/WeChat-Gewe/internal/errs"
	"github.com/johnqing-424/WeChat-Gewe/internal/queue"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	readTimeout     = 30 * time.Second
	writeTimeout    = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Server 后台 HTTP 服务：网关回调、健康检查、指标、接口文档和管理接口
type Server struct {
	cfg        config.BackendConfig
	engine     *gin.Engine
	registry   *device.Registry
	dispatcher queue.Dispatcher
	logger     *elog.Component
	startTime  time.Time
}

func New(cfg config.BackendConfig, registry *device.Registry, dispatcher queue.Dispatcher,
	callbackHdl *callback.Handler, logger *elog.Component,
) (*Server, error) {
	if logger == nil {
		logger = elog.DefaultLogger
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), accessLog(logger))
	if len(cfg.CORSOrigins) > 0 {
		cc := corsConfig(cfg.CORSOrigins)
		// cors.New 遇到非法配置会 panic
		if err := cc.Validate(); err != nil {
			return nil, fmt.Errorf("%w: backend.cors_origins: %w", errs.ErrInvalidConfig, err)
		}
		engine.Use(cors.New(cc))
	}

	s := &Server{
		cfg:        cfg,
		engine:     engine,
		registry:   registry,
		dispatcher: dispatcher,
		logger:     logger,
		startTime:  time.Now(),
	}
	if err := s.setupRoutes(callbackHdl); err != nil {
		return nil, err
	}
	return s, nil
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Requested-With"}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = origins
	return c
}

func (s *Server) setupRoutes(callbackHdl *callback.Handler) error {
	callbackHdl.RegisterRoutes(s.engine, s.registry)

	s.engine.GET(config.PathHealth, s.handleHealth)
	s.engine.GET(config.PathMetrics, gin.WrapH(promhttp.Handler()))

	if s.cfg.EnableAdmin {
		admin := s.engine.Group(config.PathAdmin)
		{
			admin.GET("/devices", s.listDevices)
			admin.GET("/devices/:id", s.getDevice)
			admin.GET("/tasks/:id", s.getTask)
		}
	}

	// 文档最后注册，才能包含上面所有路由
	if s.cfg.DocsURL == "" {
		return nil
	}
	routes := s.engine.Routes()
	for _, r := range routes {
		// 重复注册 gin 会 panic
		if r.Method == http.MethodGet && r.Path == s.cfg.DocsURL {
			return fmt.Errorf("%w: backend.docs_url %s 与已有路由重复", errs.ErrInvalidConfig, s.cfg.DocsURL)
		}
	}
	doc := newOpenAPIDoc(routes)
	s.engine.GET(s.cfg.DocsURL, func(c *gin.Context) {
		c.JSON(http.StatusOK, doc)
	})
	return nil
}

// Handler 返回 http.Handler，便于测试
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Run 启动服务，ctx 取消后优雅退出
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.Addr(),
		Handler:      s.engine,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("后台服务启动", elog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("后台服务启动失败: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	s.logger.Info("后台服务正在关闭")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("后台服务关闭失败: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"queue":   s.dispatcher.Mode(),
		"devices": s.registry.Len(),
		"uptime":  time.Since(s.startTime).Truncate(time.Second).String(),
	})
}

// accessLog 用 elog 记录请求
func accessLog(logger *elog.Component) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []elog.Field{
			elog.String("method", c.Request.Method),
			elog.String("path", c.Request.URL.Path),
			elog.Int("status", c.Writer.Status()),
			elog.Any("cost", time.Since(start).String()),
			elog.String("ip", c.ClientIP()),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("请求处理异常", fields...)
			return
		}
		logger.Debug("请求", fields...)
	}
}
