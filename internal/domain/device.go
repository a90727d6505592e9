package domain

import (
	"net/url"
	"strings"
)

const DefaultDeviceID = "default"

// DeviceMode 网关部署模式
type DeviceMode string

const (
	// DeviceModeGewe 托管的 Gewe 网关
	DeviceModeGewe DeviceMode = "gewe"
	// DeviceModePrivate 私有化部署的网关
	DeviceModePrivate DeviceMode = "private"
)

func (m DeviceMode) IsPrivate() bool {
	return m == DeviceModePrivate
}

func (m DeviceMode) String() string {
	return string(m)
}

// Device 一个接入网关的微信账号的连接参数，进程启动时由配置创建，运行期间不可变
type Device struct {
	ID          string
	Name        string
	BaseURL     string
	DownloadURL string
	CallbackURL string
	AppID       string
	Token       string
	Mode        DeviceMode
}

// CallbackPath 返回该设备回调地址对应的路由路径。
// 回调地址为空或者只有根路径时，退化为 /callback/<id>
func (d Device) CallbackPath() string {
	return CallbackPath(d.ID, d.CallbackURL)
}

// MaskedToken 用于展示的 token
func (d Device) MaskedToken() string {
	return MaskSecret(d.Token)
}

func CallbackPath(deviceID, callbackURL string) string {
	fallback := "/callback/" + deviceID
	raw := strings.TrimSpace(callbackURL)
	if raw == "" {
		return fallback
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fallback
	}
	p := strings.TrimRight(u.Path, "/")
	if p == "" {
		return fallback
	}
	return p
}

// MaskSecret 只保留前后各 4 个字符
func MaskSecret(s string) string {
	const keep = 4
	if len(s) <= keep*2 {
		return strings.Repeat("*", len(s))
	}
	return s[:keep] + strings.Repeat("*", len(s)-keep*2) + s[len(s)-keep:]
}
