package domain

import "encoding/json"

const TaskNameCallback = "callback"

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
)

func (s TaskStatus) IsFinished() bool {
	return s == TaskStatusSucceeded || s == TaskStatusFailed
}

// Task 投递到队列中的任务，队列中以 JSON 形式传输
type Task struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	DeviceID   string          `json:"device_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Retries    int             `json:"retries"`
	EnqueuedAt int64           `json:"enqueued_at"`
}

// TaskResult 任务执行结果
type TaskResult struct {
	TaskID    string     `json:"task_id"`
	Name      string     `json:"name"`
	Status    TaskStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
	Attempts  int        `json:"attempts"`
	UpdatedAt int64      `json:"updated_at"`
}
