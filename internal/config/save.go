package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/johnqing-424/WeChat-Gewe/internal/errs"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Marshal 按指定格式序列化配置，输出可以被 Parse 重新加载
func Marshal(cfg Config, format string) ([]byte, error) {
	switch format {
	case FormatTOML:
		var buf bytes.Buffer
		enc := toml.NewEncoder(&buf)
		enc.SetIndentTables(true)
		if err := enc.Encode(cfg); err != nil {
			return nil, fmt.Errorf("序列化 TOML 失败: %w", err)
		}
		return buf.Bytes(), nil
	case FormatYAML:
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("序列化 YAML 失败: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedFormat, format)
	}
}

// Save 校验后写入文件，先写临时文件再重命名
func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	data, err := Marshal(cfg, format)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("写入配置失败: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("写入配置失败: %w", err)
	}
	const perm = 0o600
	if err = os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("设置配置文件权限失败: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// Redacted 返回隐藏了所有 token 的配置副本
func (c Config) Redacted() Config {
	devices := make(map[string]DeviceConfig, len(c.Devices))
	for id, d := range c.Devices {
		devices[id] = d.Redacted()
	}
	c.Devices = devices
	return c
}
