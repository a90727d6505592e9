package callback

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gotomicro/ego/core/elog"
	"github.com/johnqing-424/WeChat-Gewe/internal/device"
	"github.com/johnqing-424/WeChat-Gewe/internal/errs"
)

// maxBodySize 单次回调的最大长度
const maxBodySize = 4 << 20

// Result 返回给网关的响应
type Result struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

type Handler struct {
	svc    *Service
	logger *elog.Component
}

func NewHandler(svc *Service, logger *elog.Component) *Handler {
	if logger == nil {
		logger = elog.DefaultLogger
	}
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

// RegisterRoutes 按每个设备的回调地址注册路由
func (h *Handler) RegisterRoutes(r gin.IRouter, registry *device.Registry) {
	for _, d := range registry.List() {
		r.POST(d.CallbackPath(), h.Receive(d.ID))
		h.logger.Info("注册设备回调地址", elog.String("device", d.ID), elog.String("path", d.CallbackPath()))
	}
}

// Receive 接收设备 deviceID 的回调
func (h *Handler) Receive(deviceID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer c.Request.Body.Close()
		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, Result{Code: http.StatusRequestEntityTooLarge, Msg: "回调内容过大"})
				return
			}
			c.JSON(http.StatusBadRequest, Result{Code: http.StatusBadRequest, Msg: "读取回调内容失败"})
			return
		}

		receipt, err := h.svc.Receive(c.Request.Context(), deviceID, body)
		switch {
		case err == nil:
			msg := "ok"
			if receipt.Duplicate {
				msg = "duplicate"
			}
			c.JSON(http.StatusOK, Result{Msg: msg, Data: receipt})
		case errors.Is(err, errs.ErrInvalidCallback):
			c.JSON(http.StatusBadRequest, Result{Code: http.StatusBadRequest, Msg: err.Error()})
		case errors.Is(err, errs.ErrDeviceNotFound):
			c.JSON(http.StatusNotFound, Result{Code: http.StatusNotFound, Msg: err.Error()})
		default:
			h.logger.Error("处理回调失败", elog.FieldErr(err), elog.String("device", deviceID))
			c.JSON(http.StatusInternalServerError, Result{Code: http.StatusInternalServerError, Msg: "系统错误"})
		}
	}
}
