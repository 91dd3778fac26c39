/*
 * @module service/processing/job_tracker
 * @description 作业跟踪器，维护按 uploadId 索引的作业仲裁区，以 CAS 状态转换实现单飞准入与生命周期管理
 * @architecture 分层架构 - 任务调度层
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow PENDING -> VALIDATING -> CLEANING -> COMPLETED，VALIDATING/CLEANING 可达 FAILED
 * @rules 同一 uploadId 同一时刻至多一个非终态作业；准入检查对并发 submit 原子；不在跟踪器内自动重试
 * @dependencies gorm.io/gorm, surveyhub-service/service/distributed_lock, sync
 * @refs service/processing/processor.go
 */

package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"surveyhub-service/service/distributed_lock"
	"surveyhub-service/service/models"

	"gorm.io/gorm"
)

// lockTTL 跨实例租约时长，覆盖一次正常运行的上限
const lockTTL = 10 * time.Minute

// jobEntry 仲裁区条目
type jobEntry struct {
	job    *models.ProcessingJob
	cancel context.CancelFunc
}

// JobTracker 作业跟踪器
type JobTracker struct {
	db     *gorm.DB
	mu     sync.Mutex
	active map[string]*jobEntry // uploadID -> 非终态作业
	lock   distributed_lock.DistributedLock
}

// NewJobTracker 创建作业跟踪器实例
// lock 为可选的跨实例租约，单实例部署传 nil
func NewJobTracker(db *gorm.DB, lock distributed_lock.DistributedLock) *JobTracker {
	return &JobTracker{
		db:     db,
		active: make(map[string]*jobEntry),
		lock:   lock,
	}
}

// Admit 单飞准入
// 同一 uploadId 已存在非终态作业时拒绝，准入成功后创建 PENDING 作业
func (t *JobTracker) Admit(ctx context.Context, upload *models.UploadRecord) (*models.ProcessingJob, context.Context, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.active[upload.ID]; exists {
		return nil, nil, models.ErrAlreadyProcessing
	}

	// 多实例部署下由 Redis 租约兜底
	if t.lock != nil {
		acquired, err := t.lock.TryLock(ctx, upload.ID, lockTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("获取处理租约失败: %w", err)
		}
		if !acquired {
			return nil, nil, models.ErrAlreadyProcessing
		}
	}

	var attempt int64
	if err := t.db.Model(&models.ProcessingJob{}).Where("upload_id = ?", upload.ID).Count(&attempt).Error; err != nil {
		t.releaseLease(ctx, upload.ID)
		return nil, nil, fmt.Errorf("查询历史作业失败: %w", models.ErrStoreUnavailable)
	}

	job := &models.ProcessingJob{
		UploadID: upload.ID,
		SurveyID: upload.SurveyID,
		State:    models.JobStatePending,
		Attempt:  int(attempt) + 1,
	}
	if err := t.db.Create(job).Error; err != nil {
		t.releaseLease(ctx, upload.ID)
		return nil, nil, fmt.Errorf("创建处理作业失败: %w", models.ErrStoreUnavailable)
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	t.active[upload.ID] = &jobEntry{job: job, cancel: cancel}

	slog.Info("作业准入",
		"upload_id", upload.ID,
		"job_id", job.ID,
		"attempt", job.Attempt)
	return job, jobCtx, nil
}

// Transition CAS 状态转换
// 期望状态不匹配视为内部不变量被破坏，记录并报错，不静默吞掉
func (t *JobTracker) Transition(job *models.ProcessingJob, from, to models.JobState, reason string) error {
	updates := map[string]interface{}{"state": to, "reason": reason}
	now := time.Now()
	if from == models.JobStatePending {
		updates["started_at"] = now
	}
	if to.Terminal() {
		updates["finished_at"] = now
	}

	result := t.db.Model(&models.ProcessingJob{}).
		Where("id = ? AND state = ?", job.ID, from).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("作业状态更新失败: %w", models.ErrStoreUnavailable)
	}
	if result.RowsAffected == 0 {
		slog.Error("作业状态转换与期望不符",
			"job_id", job.ID,
			"expected", from,
			"target", to)
		return fmt.Errorf("作业 %s 不处于 %s 状态: %w", job.ID, from, models.ErrInternalInvariant)
	}

	job.State = to
	job.Reason = reason
	if from == models.JobStatePending {
		job.StartedAt = &now
	}
	if to.Terminal() {
		job.FinishedAt = &now
	}

	slog.Info("作业状态转换",
		"job_id", job.ID,
		"upload_id", job.UploadID,
		"from", from,
		"to", to,
		"reason", reason)
	return nil
}

// Finish 终态处理：从仲裁区移除并释放租约
func (t *JobTracker) Finish(ctx context.Context, job *models.ProcessingJob) {
	t.mu.Lock()
	if entry, ok := t.active[job.UploadID]; ok {
		entry.cancel()
		delete(t.active, job.UploadID)
	}
	t.mu.Unlock()

	t.releaseLease(ctx, job.UploadID)
}

// Cancel 请求取消非终态作业
// 取消是协作式的，在行与行之间生效
func (t *JobTracker) Cancel(uploadID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.active[uploadID]
	if !ok {
		return fmt.Errorf("上传 %s 没有进行中的作业: %w", uploadID, models.ErrUnknownUpload)
	}
	entry.cancel()

	slog.Info("作业取消请求已登记", "upload_id", uploadID, "job_id", entry.job.ID)
	return nil
}

// GetStatus 获取上传最近一次作业
func (t *JobTracker) GetStatus(uploadID string) (*models.ProcessingJob, error) {
	var job models.ProcessingJob
	err := t.db.Where("upload_id = ?", uploadID).Order("created_at DESC").First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrUnknownUpload
		}
		return nil, fmt.Errorf("查询作业失败: %w", models.ErrStoreUnavailable)
	}
	return &job, nil
}

// History 列出上传的全部历史作业
func (t *JobTracker) History(uploadID string) ([]models.ProcessingJob, error) {
	var jobs []models.ProcessingJob
	if err := t.db.Where("upload_id = ?", uploadID).Order("created_at DESC").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("查询作业历史失败: %w", models.ErrStoreUnavailable)
	}
	return jobs, nil
}

// releaseLease 释放跨实例租约
func (t *JobTracker) releaseLease(ctx context.Context, uploadID string) {
	if t.lock == nil {
		return
	}
	if err := t.lock.Unlock(ctx, uploadID); err != nil {
		slog.Warn("释放处理租约失败", "upload_id", uploadID, "error", err)
	}
}
