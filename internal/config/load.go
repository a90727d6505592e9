package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/johnqing-424/WeChat-Gewe/internal/errs"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	FormatTOML = "toml"
	FormatYAML = "yaml"

	// EnvConfigPath 指定配置文件路径的环境变量
	EnvConfigPath = "GEWE_CONFIG"
)

// searchPaths 未指定配置文件时依次查找的位置
func searchPaths() []string {
	paths := []string{
		"main_config.toml",    // 当前目录
		"config.toml",         // 当前目录
		"../main_config.toml", // 上级目录
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".opengewe", "main_config.toml"))
	}
	return paths
}

// Resolve 确定要加载的配置文件：显式路径优先，其次是环境变量，最后按默认位置查找
func Resolve(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	if env := strings.TrimSpace(os.Getenv(EnvConfigPath)); env != "" {
		return env, nil
	}
	for _, p := range searchPaths() {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: 已查找 %s", errs.ErrConfigNotFound, strings.Join(searchPaths(), ", "))
}

// Load 读取并校验配置文件
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %s", errs.ErrConfigNotFound, path)
		}
		return Config{}, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}
	format, err := FormatOf(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(data, format)
}

// Parse 解析配置内容，未出现的字段使用 Default 中的值
func Parse(data []byte, format string) (Config, error) {
	cfg := Default()
	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("%w: 解析 TOML 失败: %w", errs.ErrInvalidConfig, err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: 解析 YAML 失败: %w", errs.ErrInvalidConfig, err)
		}
	default:
		return Config{}, fmt.Errorf("%w: %s", errs.ErrUnsupportedFormat, format)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FormatOf 根据扩展名判断配置格式，没有扩展名时按 TOML 处理
func FormatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", "":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", errs.ErrUnsupportedFormat, path)
	}
}

func (c *Config) normalize() {
	c.Database.URL = strings.TrimSpace(c.Database.URL)
	for id, d := range c.Devices {
		d.Name = strings.TrimSpace(d.Name)
		d.BaseURL = strings.TrimSpace(d.BaseURL)
		d.DownloadURL = strings.TrimSpace(d.DownloadURL)
		d.CallbackURL = strings.TrimSpace(d.CallbackURL)
		d.AppID = strings.TrimSpace(d.AppID)
		d.Token = strings.TrimSpace(d.Token)
		c.Devices[id] = d
	}
	c.Queue.Type = strings.ToLower(strings.TrimSpace(c.Queue.Type))
	c.Queue.Broker = strings.TrimSpace(c.Queue.Broker)
	c.Queue.Backend = strings.TrimSpace(c.Queue.Backend)
	c.Logging.Level = strings.ToUpper(strings.TrimSpace(c.Logging.Level))
	c.Backend.DocsURL = strings.TrimSpace(c.Backend.DocsURL)
	c.Backend.RedisURL = strings.TrimSpace(c.Backend.RedisURL)
}
