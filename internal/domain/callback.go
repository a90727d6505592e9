package domain

// CallbackLogStatus 回调记录状态
type CallbackLogStatus string

const (
	CallbackLogStatusReceived  CallbackLogStatus = "received"
	CallbackLogStatusProcessed CallbackLogStatus = "processed"
	CallbackLogStatusFailed    CallbackLogStatus = "failed"
)

func (s CallbackLogStatus) String() string {
	return string(s)
}

// CallbackLog 网关推送过来的一次回调
type CallbackLog struct {
	ID       uint64
	DeviceID string
	// Digest 回调内容的 sha1，用于去重
	Digest  string
	Payload []byte
	TaskID  string
	Status  CallbackLogStatus
	Ctime   int64
	Utime   int64
}
