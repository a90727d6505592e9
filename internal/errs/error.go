package errs

import "errors"

// 统一的错误定义
var (
	ErrInvalidConfig        = errors.New("配置不合法")
	ErrConfigNotFound       = errors.New("未找到配置文件")
	ErrUnsupportedFormat    = errors.New("不支持的配置文件格式")
	ErrDefaultDeviceMissing = errors.New("缺少默认设备配置")
	ErrDeviceNotFound       = errors.New("设备不存在")

	ErrUnsupportedQueue  = errors.New("不支持的队列类型")
	ErrUnsupportedBroker = errors.New("不支持的消息代理")
	ErrTaskNotFound      = errors.New("任务不存在")
	ErrHandlerNotFound   = errors.New("未注册的任务处理器")
	ErrDispatcherClosed  = errors.New("任务分发器已关闭")

	ErrInvalidCallback     = errors.New("回调内容不合法")
	ErrCallbackLogNotFound = errors.New("回调记录不存在")
	ErrUnsupportedDatabase = errors.New("不支持的数据库类型")
	ErrIDGenerateFailed    = errors.New("ID生成失败")
)
