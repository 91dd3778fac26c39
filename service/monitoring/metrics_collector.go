/*
 * @module service/monitoring/metrics_collector
 * @description 指标收集器，以 Prometheus 指标记录流水线作业与行处理情况，并提供运行时快照
 * @architecture 分层架构 - 监控服务层
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow 作业事件 -> 指标记录 -> /metrics 暴露
 * @rules 指标记录不得阻塞流水线；计数器只增不减
 * @dependencies github.com/prometheus/client_golang/prometheus
 * @refs service/processing/processor.go, main.go
 */

package monitoring

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector 指标收集器
type MetricsCollector struct {
	jobsStarted   prometheus.Counter
	jobsFinished  *prometheus.CounterVec
	rowsValidated prometheus.Counter
	rowsCleaned   prometheus.Counter
	jobDuration   *prometheus.HistogramVec
	uploadsTotal  prometheus.Counter
	uploadBytes   prometheus.Counter
}

// RuntimeSnapshot 运行时快照，供监控接口返回
type RuntimeSnapshot struct {
	Timestamp      time.Time `json:"timestamp"`
	GoroutineCount int       `json:"goroutine_count"`
	HeapSize       uint64    `json:"heap_size"`
	NumGC          uint32    `json:"num_gc"`
}

// NewMetricsCollector 创建指标收集器实例
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		jobsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "survey_pipeline_jobs_started_total",
			Help: "启动的处理作业总数",
		}),
		jobsFinished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "survey_pipeline_jobs_finished_total",
			Help: "按结果分类的已结束作业总数",
		}, []string{"result"}),
		rowsValidated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "survey_pipeline_rows_validated_total",
			Help: "验证阶段处理的数据行总数",
		}),
		rowsCleaned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "survey_pipeline_rows_cleaned_total",
			Help: "清洗后写入的记录总数",
		}),
		jobDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "survey_pipeline_job_duration_seconds",
			Help:    "处理作业耗时分布",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"result"}),
		uploadsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "survey_uploads_received_total",
			Help: "接收的上传文件总数",
		}),
		uploadBytes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "survey_uploads_received_bytes_total",
			Help: "接收的上传字节总数",
		}),
	}
}

// JobStarted 记录一次作业启动
func (c *MetricsCollector) JobStarted() {
	c.jobsStarted.Inc()
}

// JobFinished 记录一次作业结束
func (c *MetricsCollector) JobFinished(result string, duration time.Duration) {
	c.jobsFinished.WithLabelValues(result).Inc()
	c.jobDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// RowsValidated 记录验证阶段处理的行数
func (c *MetricsCollector) RowsValidated(count int) {
	c.rowsValidated.Add(float64(count))
}

// RowsCleaned 记录清洗输出的记录数
func (c *MetricsCollector) RowsCleaned(count int) {
	c.rowsCleaned.Add(float64(count))
}

// UploadReceived 记录一次上传接收
func (c *MetricsCollector) UploadReceived(byteSize int64) {
	c.uploadsTotal.Inc()
	c.uploadBytes.Add(float64(byteSize))
}

// CollectRuntimeSnapshot 收集运行时快照
func (c *MetricsCollector) CollectRuntimeSnapshot() *RuntimeSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return &RuntimeSnapshot{
		Timestamp:      time.Now(),
		GoroutineCount: runtime.NumGoroutine(),
		HeapSize:       memStats.HeapAlloc,
		NumGC:          memStats.NumGC,
	}
}
