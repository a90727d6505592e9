package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "opengewe"

var (
	CallbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "callbacks_total",
		Help:      "网关回调接收次数",
	}, []string{"device", "result"})

	TasksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_total",
		Help:      "任务执行次数",
	}, []string{"queue", "task", "status"})

	TaskDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "任务执行耗时",
		Buckets:   prometheus.DefBuckets,
	}, []string{"queue", "task"})

	registerOnce sync.Once
)

// Register 注册到默认的 Registerer，可以重复调用
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(CallbacksTotal, TasksTotal, TaskDuration)
	})
}
