/*
 * @module service/cleanup/retention_service
 * @description 保留策略服务，定期清理被取代的清洗输出代次并归档过期的终态作业
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow 定时触发 -> 读取保留配置 -> 删除过期代次文件 -> 软删记录 -> 归档作业
 * @rules 只清理被取代的代次，当前代次永不删除；作业历史归档而非物理删除
 * @dependencies github.com/robfig/cron/v3, surveyhub-service/service/cleaned_store, gorm.io/gorm
 * @refs service/cleaned_store/store.go, service/init.go
 */

package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"surveyhub-service/service/cleaned_store"
	"surveyhub-service/service/distributed_lock"
	"surveyhub-service/service/models"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// DefaultRetentionDays 被取代代次与终态作业的默认保留天数
const DefaultRetentionDays = 30

// RetentionService 保留策略服务
type RetentionService struct {
	db      *gorm.DB
	cleaned *cleaned_store.Store
	lock    distributed_lock.DistributedLock
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// NewRetentionService 创建保留策略服务实例
// lock 为可选的跨实例锁，多实例部署时防止重复清理
func NewRetentionService(db *gorm.DB, cleaned *cleaned_store.Store, lock distributed_lock.DistributedLock) *RetentionService {
	ctx, cancel := context.WithCancel(context.Background())

	return &RetentionService{
		db:      db,
		cleaned: cleaned,
		lock:    lock,
		cron:    cron.New(cron.WithSeconds()),
		ctx:     ctx,
		cancel:  cancel,
		started: false,
	}
}

// retentionDays 读取保留天数配置
func (s *RetentionService) retentionDays() int {
	if v := os.Getenv("RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			return days
		}
		slog.Warn("RETENTION_DAYS 配置无效，使用默认值", "value", v, "default", DefaultRetentionDays)
	}
	return DefaultRetentionDays
}

// RunCleanup 执行一轮保留清理
func (s *RetentionService) RunCleanup(ctx context.Context) error {
	slog.Info("开始执行保留清理")
	startTime := time.Now()
	retentionDays := s.retentionDays()

	generationsDeleted, err := s.cleanupSupersededGenerations(ctx, retentionDays)
	if err != nil {
		slog.Error("清理被取代代次失败", "error", err)
	} else {
		slog.Info("清理被取代代次完成", "deleted_count", generationsDeleted, "retention_days", retentionDays)
	}

	jobsArchived, err := s.archiveFinishedJobs(ctx, retentionDays)
	if err != nil {
		slog.Error("归档终态作业失败", "error", err)
	} else {
		slog.Info("归档终态作业完成", "archived_count", jobsArchived, "retention_days", retentionDays)
	}

	slog.Info("保留清理完成",
		"generations_deleted", generationsDeleted,
		"jobs_archived", jobsArchived,
		"duration_ms", time.Since(startTime).Milliseconds())
	return nil
}

// cleanupSupersededGenerations 删除过期被取代代次的文件并软删记录
func (s *RetentionService) cleanupSupersededGenerations(ctx context.Context, retentionDays int) (int64, error) {
	cutoffDate := time.Now().AddDate(0, 0, -retentionDays)

	generations, err := s.cleaned.ListSuperseded()
	if err != nil {
		return 0, err
	}

	var deleted int64
	for _, generation := range generations {
		select {
		case <-ctx.Done():
			return deleted, ctx.Err()
		default:
		}

		if generation.CreatedAt.After(cutoffDate) {
			continue
		}

		if err := os.Remove(generation.StoragePath); err != nil && !os.IsNotExist(err) {
			slog.Warn("删除代次文件失败", "generation_id", generation.ID, "path", generation.StoragePath, "error", err)
			continue
		}

		now := time.Now()
		result := s.db.Model(&models.CleanedGeneration{}).
			Where("id = ? AND deleted_at IS NULL", generation.ID).
			Update("deleted_at", now)
		if result.Error != nil {
			return deleted, fmt.Errorf("软删代次记录失败: %w", result.Error)
		}
		deleted += result.RowsAffected
	}
	return deleted, nil
}

// archiveFinishedJobs 归档保留期外的终态作业
func (s *RetentionService) archiveFinishedJobs(ctx context.Context, retentionDays int) (int64, error) {
	cutoffDate := time.Now().AddDate(0, 0, -retentionDays)

	result := s.db.Model(&models.ProcessingJob{}).
		Where("archived = ? AND finished_at IS NOT NULL AND finished_at < ?", false, cutoffDate).
		Update("archived", true)
	if result.Error != nil {
		return 0, fmt.Errorf("归档终态作业失败: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// StartScheduledCleanup 启动定时清理任务
func (s *RetentionService) StartScheduledCleanup() error {
	if s.started {
		return fmt.Errorf("保留清理调度器已经启动")
	}

	slog.Info("启动保留清理调度器")

	// 每天凌晨3点执行，错开业务低峰
	// Cron表达式：秒 分 时 日 月 周
	_, err := s.cron.AddFunc("0 0 3 * * *", func() {
		s.runGuarded()
	})
	if err != nil {
		return fmt.Errorf("添加定时任务失败: %w", err)
	}

	s.cron.Start()
	s.started = true

	slog.Info("保留清理调度器启动成功，将于每天凌晨3点执行")
	return nil
}

// runGuarded 多实例部署下持锁执行清理
func (s *RetentionService) runGuarded() {
	if s.lock == nil {
		if err := s.RunCleanup(s.ctx); err != nil {
			slog.Error("定时保留清理失败", "error", err)
		}
		return
	}

	executor := distributed_lock.NewLockExecutor(s.lock)
	err := executor.ExecuteWithLock(s.ctx, "retention_cleanup", 30*time.Minute, func() error {
		return s.RunCleanup(s.ctx)
	})
	if err != nil {
		slog.Error("定时保留清理失败", "error", err)
	}
}

// StopScheduledCleanup 停止定时清理任务
func (s *RetentionService) StopScheduledCleanup() {
	if !s.started {
		return
	}

	slog.Info("停止保留清理调度器")
	s.cancel()
	if s.cron != nil {
		s.cron.Stop()
	}
	s.started = false
}
