package device

import (
	"fmt"
	"sort"

	"github.com/johnqing-424/WeChat-Gewe/internal/config"
	"github.com/johnqing-424/WeChat-Gewe/internal/domain"
	"github.com/johnqing-424/WeChat-Gewe/internal/errs"
)

// Registry 设备注册表，启动时由配置构建，之后只读
type Registry struct {
	devices map[string]domain.Device
	// ids 默认设备在前，其余按标识排序
	ids     []string
	byAppID map[string]string
}

func NewRegistry(cfgs map[string]config.DeviceConfig) (*Registry, error) {
	if _, ok := cfgs[domain.DefaultDeviceID]; !ok {
		return nil, fmt.Errorf("%w: devices.%s", errs.ErrDefaultDeviceMissing, domain.DefaultDeviceID)
	}
	r := &Registry{
		devices: make(map[string]domain.Device, len(cfgs)),
		ids:     make([]string, 0, len(cfgs)),
		byAppID: make(map[string]string, len(cfgs)),
	}
	for id, c := range cfgs {
		d := c.ToDomain(id)
		r.devices[id] = d
		if id != domain.DefaultDeviceID {
			r.ids = append(r.ids, id)
		}
		if d.AppID == "" {
			continue
		}
		// 多个设备使用同一个 app_id 时，默认设备优先，其次是标识较小的
		if prev, ok := r.byAppID[d.AppID]; !ok || prev != domain.DefaultDeviceID && (id == domain.DefaultDeviceID || id < prev) {
			r.byAppID[d.AppID] = id
		}
	}
	sort.Strings(r.ids)
	r.ids = append([]string{domain.DefaultDeviceID}, r.ids...)
	return r, nil
}

// Get 按设备标识查找
func (r *Registry) Get(id string) (domain.Device, error) {
	d, ok := r.devices[id]
	if !ok {
		return domain.Device{}, fmt.Errorf("%w: %s", errs.ErrDeviceNotFound, id)
	}
	return d, nil
}

func (r *Registry) Default() domain.Device {
	return r.devices[domain.DefaultDeviceID]
}

// ByAppID 按网关分配的 app_id 查找设备
func (r *Registry) ByAppID(appID string) (domain.Device, bool) {
	id, ok := r.byAppID[appID]
	if !ok {
		return domain.Device{}, false
	}
	return r.devices[id], true
}

func (r *Registry) List() []domain.Device {
	res := make([]domain.Device, 0, len(r.ids))
	for _, id := range r.ids {
		res = append(res, r.devices[id])
	}
	return res
}

func (r *Registry) Len() int {
	return len(r.devices)
}
