package server

import (
	"errors"
	"net/http"

	"github.com/ecodeclub/ekit/slice"
	"github.com/gin-gonic/gin"
	"github.com/gotomicro/ego/core/elog"
	"github.com/johnqing-424/WeChat-Gewe/internal/domain"
	"github.com/johnqing-424/WeChat-Gewe/internal/errs"
)

// DeviceVO 管理接口展示的设备信息，token 已脱敏
type DeviceVO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	BaseURL      string `json:"base_url"`
	DownloadURL  string `json:"download_url,omitempty"`
	CallbackURL  string `json:"callback_url,omitempty"`
	CallbackPath string `json:"callback_path"`
	AppID        string `json:"app_id"`
	Token        string `json:"token"`
	Mode         string `json:"mode"`
}

func newDeviceVO(d domain.Device) DeviceVO {
	return DeviceVO{
		ID:           d.ID,
		Name:         d.Name,
		BaseURL:      d.BaseURL,
		DownloadURL:  d.DownloadURL,
		CallbackURL:  d.CallbackURL,
		CallbackPath: d.CallbackPath(),
		AppID:        d.AppID,
		Token:        d.MaskedToken(),
		Mode:         d.Mode.String(),
	}
}

// listDevices 支持 ?app_id= 按 appid 查找
func (s *Server) listDevices(c *gin.Context) {
	if appID := c.Query("app_id"); appID != "" {
		d, ok := s.registry.ByAppID(appID)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"devices": []DeviceVO{}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"devices": []DeviceVO{newDeviceVO(d)}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": slice.Map(s.registry.List(), func(_ int, d domain.Device) DeviceVO {
		return newDeviceVO(d)
	})})
}

func (s *Server) getDevice(c *gin.Context) {
	d, err := s.registry.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, newDeviceVO(d))
}

func (s *Server) getTask(c *gin.Context) {
	res, err := s.dispatcher.Status(c.Request.Context(), c.Param("id"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, res)
	case errors.Is(err, errs.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		s.logger.Error("查询任务状态失败", elog.FieldErr(err), elog.String("task", c.Param("id")))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "系统错误"})
	}
}
