package config

import (
	"strings"

	"github.com/johnqing-424/WeChat-Gewe/internal/domain"
)

const (
	QueueTypeSimple   = "simple"
	QueueTypeAdvanced = "advanced"
)

// 后台服务自带的 GET 路由，docs_url 不能与之重复
const (
	PathHealth       = "/health"
	PathMetrics      = "/metrics"
	PathAdmin        = "/admin"
	PathAdminDevices = PathAdmin + "/devices"
)

// Config 是配置的根结构体，对应 main_config.toml
type Config struct {
	Database DatabaseConfig          `toml:"database" yaml:"database"`
	Devices  map[string]DeviceConfig `toml:"devices" yaml:"devices" validate:"required,dive"`
	Plugins  PluginsConfig           `toml:"plugins" yaml:"plugins"`
	Queue    QueueConfig             `toml:"queue" yaml:"queue"`
	Logging  LoggingConfig           `toml:"logging" yaml:"logging"`
	Backend  BackendConfig           `toml:"backend" yaml:"backend"`
}

// DatabaseConfig 回调记录使用的数据库，url 为空时不落库
type DatabaseConfig struct {
	URL          string `toml:"url" yaml:"url"`
	MaxOpenConns int    `toml:"max_open_conns" yaml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int    `toml:"max_idle_conns" yaml:"max_idle_conns" validate:"gte=0"`
	Echo         bool   `toml:"echo" yaml:"echo"`
	// MachineID 回调记录ID的机器号，多实例共用一张表时每个实例必须不同。
	// 0 表示取本机私有 IP 的低 16 位
	MachineID int `toml:"machine_id" yaml:"machine_id" validate:"gte=0,lte=65535"`
}

// DeviceConfig 单个设备的网关连接参数
type DeviceConfig struct {
	Name        string `toml:"name" yaml:"name"`
	BaseURL     string `toml:"base_url" yaml:"base_url" validate:"required,url"`
	DownloadURL string `toml:"download_url" yaml:"download_url" validate:"omitempty,url"`
	CallbackURL string `toml:"callback_url" yaml:"callback_url" validate:"omitempty,url"`
	AppID       string `toml:"app_id" yaml:"app_id" validate:"required"`
	Token       string `toml:"token" yaml:"token" validate:"required"`
	// IsGewe 为 false 时表示私有化部署，缺省为 true
	IsGewe *bool `toml:"is_gewe,omitempty" yaml:"is_gewe,omitempty"`
}

// Hosted 是否使用托管的 Gewe 网关
func (d DeviceConfig) Hosted() bool {
	return d.IsGewe == nil || *d.IsGewe
}

// Redacted 返回隐藏了 token 的副本，用于展示
func (d DeviceConfig) Redacted() DeviceConfig {
	d.Token = domain.MaskSecret(d.Token)
	return d
}

// ToDomain 转换为设备领域对象
func (d DeviceConfig) ToDomain(id string) domain.Device {
	mode := domain.DeviceModeGewe
	if !d.Hosted() {
		mode = domain.DeviceModePrivate
	}
	name := d.Name
	if name == "" {
		name = id
	}
	return domain.Device{
		ID:          id,
		Name:        name,
		BaseURL:     d.BaseURL,
		DownloadURL: d.DownloadURL,
		CallbackURL: d.CallbackURL,
		AppID:       d.AppID,
		Token:       d.Token,
		Mode:        mode,
	}
}

// PluginsConfig 只保留配置结构，插件的加载不在本服务中实现
type PluginsConfig struct {
	PluginsDir      string   `toml:"plugins_dir" yaml:"plugins_dir"`
	DisabledPlugins []string `toml:"disabled_plugins" yaml:"disabled_plugins"`
}

// QueueConfig 任务队列配置。
// simple 使用进程内队列；advanced 使用消息代理，broker 和 backend 必填
type QueueConfig struct {
	Type        string `toml:"queue_type" yaml:"queue_type" validate:"oneof=simple advanced"`
	Broker      string `toml:"broker" yaml:"broker" validate:"required_if=Type advanced"`
	Backend     string `toml:"backend" yaml:"backend" validate:"required_if=Type advanced"`
	Concurrency int    `toml:"concurrency" yaml:"concurrency" validate:"gte=1"`
	MaxRetries  int    `toml:"max_retries" yaml:"max_retries" validate:"gte=0"`
	// ResultTTL 任务结果保留时间，单位秒
	ResultTTL int    `toml:"result_ttl" yaml:"result_ttl" validate:"gte=1"`
	QueueName string `toml:"queue_name" yaml:"queue_name" validate:"required"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level" validate:"oneof=DEBUG INFO WARNING ERROR CRITICAL"`
	File   string `toml:"file" yaml:"file"`
	Stdout bool   `toml:"stdout" yaml:"stdout"`
}

// ElogLevel 转换为 elog 的日志级别
func (l LoggingConfig) ElogLevel() string {
	switch strings.ToUpper(l.Level) {
	case "DEBUG":
		return "debug"
	case "WARNING":
		return "warn"
	case "ERROR", "CRITICAL":
		return "error"
	default:
		return "info"
	}
}

// BackendConfig 后台服务配置
type BackendConfig struct {
	Host  string `toml:"host" yaml:"host" validate:"required"`
	Port  int    `toml:"port" yaml:"port" validate:"gte=1,lte=65535"`
	Debug bool   `toml:"debug" yaml:"debug"`
	// DocsURL 为空时不暴露接口文档
	DocsURL     string   `toml:"docs_url" yaml:"docs_url" validate:"omitempty,startswith=/"`
	CORSOrigins []string `toml:"cors_origins" yaml:"cors_origins"`
	EnableAdmin bool     `toml:"enable_admin" yaml:"enable_admin"`
	EnableRedis bool     `toml:"enable_redis" yaml:"enable_redis"`
	RedisURL    string   `toml:"redis_url" yaml:"redis_url" validate:"required_if=EnableRedis true"`
}

// Default 返回除设备外各部分的默认配置
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		Plugins: PluginsConfig{
			PluginsDir:      "plugins",
			DisabledPlugins: []string{},
		},
		Queue: QueueConfig{
			Type:        QueueTypeSimple,
			Concurrency: 4,
			MaxRetries:  3,
			ResultTTL:   86400,
			QueueName:   "opengewe",
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			File:   "opengewe.log",
			Stdout: true,
		},
		Backend: BackendConfig{
			Host:        "0.0.0.0",
			Port:        5433,
			DocsURL:     "/docs",
			CORSOrigins: []string{"*"},
		},
	}
}

// DefaultDevice 返回默认设备配置
func (c Config) DefaultDevice() (DeviceConfig, bool) {
	d, ok := c.Devices[domain.DefaultDeviceID]
	return d, ok
}
