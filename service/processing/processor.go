/*
 * @module service/processing/processor
 * @description 流水线处理器，通过工作池执行验证、清洗与落盘，驱动作业状态机并发布生命周期事件
 * @architecture 分层架构 - 任务调度层
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow 提交 -> 准入 -> 验证 -> 清洗 -> 原子落盘 -> 终态
 * @rules 不同 uploadId 可并发处理；单次运行内行按文件顺序；任何整体性失败都落到 FAILED 终态
 * @dependencies surveyhub-service/service/data_quality, surveyhub-service/service/cleaned_store, gorm.io/gorm
 * @refs service/processing/job_tracker.go, api/controllers/pipeline_controller.go
 */

package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"surveyhub-service/service/cleaned_store"
	"surveyhub-service/service/data_quality"
	"surveyhub-service/service/event"
	"surveyhub-service/service/models"
	"surveyhub-service/service/monitoring"
	"surveyhub-service/service/schema_registry"
	"surveyhub-service/service/upload_store"

	"gorm.io/gorm"
)

// processTask 一次待执行的处理运行
type processTask struct {
	job    *models.ProcessingJob
	upload *models.UploadRecord
	ctx    context.Context
}

// Processor 流水线处理器
type Processor struct {
	db         *gorm.DB
	uploads    *upload_store.Store
	cleaned    *cleaned_store.Store
	registry   *schema_registry.Registry
	tracker    *JobTracker
	validator  *data_quality.Validator
	cleanser   *data_quality.Cleanser
	events     *event.Service
	metrics    *monitoring.MetricsCollector
	taskQueue  chan *processTask
	workerPool chan struct{}
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewProcessor 创建流水线处理器实例并启动工作池
func NewProcessor(db *gorm.DB, uploads *upload_store.Store, cleaned *cleaned_store.Store,
	registry *schema_registry.Registry, tracker *JobTracker, events *event.Service,
	metrics *monitoring.MetricsCollector, maxWorkers int) *Processor {

	ctx, cancel := context.WithCancel(context.Background())
	p := &Processor{
		db:         db,
		uploads:    uploads,
		cleaned:    cleaned,
		registry:   registry,
		tracker:    tracker,
		validator:  data_quality.NewValidator(uploads),
		cleanser:   data_quality.NewCleanser(),
		events:     events,
		metrics:    metrics,
		taskQueue:  make(chan *processTask, 1000),
		workerPool: make(chan struct{}, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}

	for i := 0; i < maxWorkers; i++ {
		go p.worker()
	}
	return p
}

// Stop 停止处理器
func (p *Processor) Stop() {
	p.cancel()
}

// Submit 提交一次处理运行
// 上传不存在返回 UnknownUpload；已有非终态作业返回 AlreadyProcessing
func (p *Processor) Submit(uploadID string) (*models.ProcessingJob, error) {
	upload, err := p.uploads.Get(uploadID)
	if err != nil {
		return nil, err
	}

	job, jobCtx, err := p.tracker.Admit(p.ctx, upload)
	if err != nil {
		return nil, err
	}

	p.events.PublishJobEvent(models.PipelineEvent{
		Type:      "job_admitted",
		UploadID:  upload.ID,
		SurveyID:  upload.SurveyID,
		JobID:     job.ID,
		State:     job.State,
		Timestamp: time.Now(),
	})

	p.taskQueue <- &processTask{job: job, upload: upload, ctx: jobCtx}
	return job, nil
}

// Cancel 请求取消上传的进行中作业
func (p *Processor) Cancel(uploadID string) error {
	return p.tracker.Cancel(uploadID)
}

// GetStatus 获取上传最近一次作业状态
// 上传存在但从未提交过处理时返回 JobNotStarted，与未知上传区分
func (p *Processor) GetStatus(uploadID string) (*models.ProcessingJob, error) {
	job, err := p.tracker.GetStatus(uploadID)
	if err != nil && errors.Is(err, models.ErrUnknownUpload) {
		if _, uerr := p.uploads.Get(uploadID); uerr != nil {
			return nil, uerr
		}
		return nil, models.ErrJobNotStarted
	}
	return job, err
}

// GetReport 获取上传最近一次运行的验证报告
func (p *Processor) GetReport(uploadID string) (*models.ValidationReport, error) {
	var report models.ValidationReport
	err := p.db.Where("upload_id = ?", uploadID).Order("created_at DESC").First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if _, uerr := p.uploads.Get(uploadID); uerr != nil {
				return nil, uerr
			}
			return nil, models.ErrReportNotReady
		}
		return nil, fmt.Errorf("查询验证报告失败: %w", models.ErrStoreUnavailable)
	}
	return &report, nil
}

// GetCleanedData 获取上传当前代次的清洗数据
func (p *Processor) GetCleanedData(uploadID string) (*models.CleanedGeneration, []models.CleanedRecord, error) {
	generation, records, err := p.cleaned.GetLatest(uploadID)
	if err != nil {
		if errors.Is(err, models.ErrCleanedNotReady) {
			if _, uerr := p.uploads.Get(uploadID); uerr != nil {
				return nil, nil, uerr
			}
		}
		return nil, nil, err
	}
	return generation, records, nil
}

// History 列出上传的历史作业
func (p *Processor) History(uploadID string) ([]models.ProcessingJob, error) {
	return p.tracker.History(uploadID)
}

// worker 工作协程
func (p *Processor) worker() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case task := <-p.taskQueue:
			p.execute(task)
		}
	}
}

// execute 执行一次处理运行
func (p *Processor) execute(task *processTask) {
	p.workerPool <- struct{}{}
	defer func() { <-p.workerPool }()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("处理运行发生未预期错误",
				"job_id", task.job.ID,
				"upload_id", task.upload.ID,
				"panic", r)
			p.fail(task, task.job.State, fmt.Sprintf("panic: %v", r))
		}
	}()

	startTime := time.Now()
	p.metrics.JobStarted()

	if err := p.tracker.Transition(task.job, models.JobStatePending, models.JobStateValidating, ""); err != nil {
		p.finishFailed(task, err.Error())
		return
	}
	p.publishState(task, "state_changed")

	schema, err := p.registry.GetSchema(task.upload.SurveyID)
	if err != nil {
		p.fail(task, models.JobStateValidating, reasonFor(err))
		return
	}

	report, rows, err := p.validator.Validate(task.ctx, task.upload, schema, task.job.ID)
	if err != nil {
		p.fail(task, models.JobStateValidating, reasonFor(err))
		return
	}
	if err := p.db.Create(report).Error; err != nil {
		p.fail(task, models.JobStateValidating, models.ReasonStoreUnavailable)
		return
	}
	p.metrics.RowsValidated(report.TotalRows)

	// 没有可清洗的行时直接进入失败终态
	if report.EligibleRows == 0 {
		p.fail(task, models.JobStateValidating, models.ReasonNoEligibleRows)
		return
	}

	if err := p.tracker.Transition(task.job, models.JobStateValidating, models.JobStateCleaning, ""); err != nil {
		p.finishFailed(task, err.Error())
		return
	}
	p.publishState(task, "state_changed")

	records, err := p.cleanser.Clean(task.ctx, task.upload, schema, report, rows)
	if err != nil {
		p.fail(task, models.JobStateCleaning, reasonFor(err))
		return
	}

	if _, err := p.cleaned.WriteGeneration(task.job, records); err != nil {
		p.fail(task, models.JobStateCleaning, reasonFor(err))
		return
	}

	if err := p.tracker.Transition(task.job, models.JobStateCleaning, models.JobStateCompleted, ""); err != nil {
		p.finishFailed(task, err.Error())
		return
	}
	p.tracker.Finish(p.ctx, task.job)
	p.publishState(task, "job_finished")
	p.metrics.JobFinished("completed", time.Since(startTime))
	p.metrics.RowsCleaned(len(records))

	slog.Info("处理运行完成",
		"job_id", task.job.ID,
		"upload_id", task.upload.ID,
		"total_rows", report.TotalRows,
		"cleaned_rows", len(records),
		"duration_ms", time.Since(startTime).Milliseconds())
}

// fail 将作业从指定状态转入 FAILED 终态
func (p *Processor) fail(task *processTask, from models.JobState, reason string) {
	if err := p.tracker.Transition(task.job, from, models.JobStateFailed, reason); err != nil {
		slog.Error("作业失败转换未生效", "job_id", task.job.ID, "reason", reason, "error", err)
	}
	p.finishFailed(task, reason)
}

// finishFailed 失败收尾：移出仲裁区、发布事件、记录指标
func (p *Processor) finishFailed(task *processTask, reason string) {
	p.tracker.Finish(p.ctx, task.job)
	p.publishState(task, "job_finished")
	p.metrics.JobFinished("failed", time.Since(task.job.CreatedAt))

	slog.Warn("处理运行失败",
		"job_id", task.job.ID,
		"upload_id", task.upload.ID,
		"reason", reason)
}

// publishState 发布作业生命周期事件
func (p *Processor) publishState(task *processTask, eventType string) {
	p.events.PublishJobEvent(models.PipelineEvent{
		Type:      eventType,
		UploadID:  task.upload.ID,
		SurveyID:  task.upload.SurveyID,
		JobID:     task.job.ID,
		State:     task.job.State,
		Reason:    task.job.Reason,
		Timestamp: time.Now(),
	})
}

// reasonFor 将整体性失败映射为作业终态原因
func reasonFor(err error) string {
	switch {
	case errors.Is(err, models.ErrCancelled):
		return models.ReasonCancelled
	case errors.Is(err, models.ErrMalformedFile):
		return models.ReasonMalformedFile
	case errors.Is(err, models.ErrStoreUnavailable):
		return models.ReasonStoreUnavailable
	case errors.Is(err, models.ErrSchemaNotFound):
		return "SchemaNotFound"
	default:
		return err.Error()
	}
}
