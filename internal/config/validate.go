package config

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/johnqing-424/WeChat-Gewe/internal/domain"
	"github.com/johnqing-424/WeChat-Gewe/internal/errs"
)

var deviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// 错误信息里使用配置文件中的字段名
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
		validate.RegisterStructValidation(validateDevice, DeviceConfig{})
	})
	return validate
}

// validateDevice 私有化部署必须提供下载地址
func validateDevice(sl validator.StructLevel) {
	d := sl.Current().Interface().(DeviceConfig)
	if !d.Hosted() && d.DownloadURL == "" {
		sl.ReportError(d.DownloadURL, "download_url", "DownloadURL", "required_private", "")
	}
}

// Validate 校验配置，返回所有不合法的地方
func (c *Config) Validate() error {
	var result *multierror.Error

	if _, ok := c.DefaultDevice(); !ok {
		result = multierror.Append(result,
			fmt.Errorf("%w: devices.%s", errs.ErrDefaultDeviceMissing, domain.DefaultDeviceID))
	}

	if err := getValidator().Struct(c); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return fmt.Errorf("%w: %w", errs.ErrInvalidConfig, err)
		}
		for _, fe := range ves {
			result = multierror.Append(result, fieldError(fe))
		}
	}

	ids := make([]string, 0, len(c.Devices))
	for id := range c.Devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	routes := make(map[string]string, len(ids))
	for _, id := range ids {
		if !deviceIDPattern.MatchString(id) {
			result = multierror.Append(result,
				fmt.Errorf("%w: 设备标识 %q 只能包含字母、数字、下划线和中划线", errs.ErrInvalidConfig, id))
			continue
		}
		p := domain.CallbackPath(id, c.Devices[id].CallbackURL)
		if other, ok := routes[p]; ok {
			result = multierror.Append(result,
				fmt.Errorf("%w: 设备 %s 与 %s 的回调路径 %s 冲突", errs.ErrInvalidConfig, other, id, p))
			continue
		}
		routes[p] = id
	}

	for _, err := range c.Backend.validate() {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

// validate 检查 validator 标签表达不了的规则，这些配置会让 gin 或 cors 在启动时 panic
func (b BackendConfig) validate() []error {
	var res []error
	for _, o := range b.CORSOrigins {
		if o != "*" && !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			res = append(res, fmt.Errorf("%w: backend.cors_origins 中的 %q 必须是 * 或以 http://、https:// 开头",
				errs.ErrInvalidConfig, o))
		}
	}
	if b.DocsURL == "" {
		return res
	}
	if strings.ContainsAny(b.DocsURL, ":*") {
		res = append(res, fmt.Errorf("%w: backend.docs_url %q 不能包含路由参数", errs.ErrInvalidConfig, b.DocsURL))
		return res
	}
	for _, p := range b.reservedPaths() {
		if b.DocsURL == p {
			res = append(res, fmt.Errorf("%w: backend.docs_url %q 与内置路由重复", errs.ErrInvalidConfig, b.DocsURL))
			break
		}
	}
	return res
}

func (b BackendConfig) reservedPaths() []string {
	paths := []string{PathHealth, PathMetrics}
	if b.EnableAdmin {
		paths = append(paths, PathAdminDevices)
	}
	return paths
}

func fieldError(fe validator.FieldError) error {
	ns := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Errorf("%w: %s 不能为空", errs.ErrInvalidConfig, ns)
	case "required_private":
		return fmt.Errorf("%w: %s 私有化部署(is_gewe = false)时不能为空", errs.ErrInvalidConfig, ns)
	case "oneof":
		return fmt.Errorf("%w: %s 取值 %v 不在 [%s] 中", errs.ErrInvalidConfig, ns, fe.Value(), fe.Param())
	default:
		return fmt.Errorf("%w: %s 校验 %s=%s 失败", errs.ErrInvalidConfig, ns, fe.Tag(), fe.Param())
	}
}
