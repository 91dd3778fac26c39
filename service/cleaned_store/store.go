/*
 * @module service/cleaned_store/store
 * @description 清洗输出存储，每次成功运行写入一个代次，通过临时文件加改名实现原子替换
 * @architecture 分层架构 - 存储适配层
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow 清洗记录序列化 -> 临时文件写入 -> 原子改名 -> 旧代次标记取代
 * @rules 写入要么整体可见要么完全不可见，失败或取消的运行不得留下可观察的半成品
 * @dependencies gorm.io/gorm, crypto/sha256, encoding/json, os
 * @refs service/models/pipeline_models.go, service/processing/
 */

package cleaned_store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"surveyhub-service/service/models"

	"gorm.io/gorm"
)

// Store 清洗输出存储
type Store struct {
	db      *gorm.DB
	rootDir string
}

// NewStore 创建清洗输出存储实例
// rootDir 为清洗输出根目录，在启动时解析一次后显式传入
func NewStore(db *gorm.DB, rootDir string) *Store {
	return &Store{
		db:      db,
		rootDir: rootDir,
	}
}

// WriteGeneration 原子写入一个清洗输出代次
// 先写临时文件再改名覆盖，随后在同一事务内取代旧代次并登记新代次
func (s *Store) WriteGeneration(job *models.ProcessingJob, records []models.CleanedRecord) (*models.CleanedGeneration, error) {
	// map 键在 JSON 序列化时按字典序输出，保证同输入字节一致
	payload, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("序列化清洗记录失败: %w", err)
	}

	sum := sha256.Sum256(payload)
	contentHash := hex.EncodeToString(sum[:])

	dir := filepath.Join(s.rootDir, job.SurveyID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建清洗输出目录失败: %w", models.ErrStoreUnavailable)
	}

	// 每个代次独立落盘，当前代次由 superseded 标记决定，保留策略可安全删除旧文件
	finalPath := filepath.Join(dir, fmt.Sprintf("%s.%s.json", job.UploadID, job.ID))
	tmpPath := filepath.Join(dir, fmt.Sprintf(".tmp-%s.json", job.ID))

	if err := os.WriteFile(tmpPath, payload, 0o644); err != nil {
		return nil, fmt.Errorf("写入临时文件失败: %w", models.ErrStoreUnavailable)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("替换清洗输出失败: %w", models.ErrStoreUnavailable)
	}

	generation := &models.CleanedGeneration{
		UploadID:    job.UploadID,
		SurveyID:    job.SurveyID,
		JobID:       job.ID,
		RecordCount: len(records),
		StoragePath: finalPath,
		ContentHash: contentHash,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.CleanedGeneration{}).
			Where("upload_id = ? AND superseded = ?", job.UploadID, false).
			Update("superseded", true).Error; err != nil {
			return err
		}
		return tx.Create(generation).Error
	})
	if err != nil {
		return nil, fmt.Errorf("登记清洗代次失败: %w", models.ErrStoreUnavailable)
	}

	slog.Info("清洗代次写入完成",
		"upload_id", job.UploadID,
		"job_id", job.ID,
		"record_count", generation.RecordCount,
		"content_hash", contentHash)
	return generation, nil
}

// GetLatest 获取上传的当前清洗代次及其全部记录
func (s *Store) GetLatest(uploadID string) (*models.CleanedGeneration, []models.CleanedRecord, error) {
	var generation models.CleanedGeneration
	err := s.db.Where("upload_id = ? AND superseded = ?", uploadID, false).
		Order("created_at DESC").First(&generation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, models.ErrCleanedNotReady
		}
		return nil, nil, fmt.Errorf("查询清洗代次失败: %w", models.ErrStoreUnavailable)
	}

	data, err := os.ReadFile(generation.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("读取清洗输出失败: %w", models.ErrStoreUnavailable)
	}

	var records []models.CleanedRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, nil, fmt.Errorf("解析清洗输出失败: %w", models.ErrStoreUnavailable)
	}
	return &generation, records, nil
}

// ListSuperseded 列出被取代的代次，供保留策略清理
func (s *Store) ListSuperseded() ([]models.CleanedGeneration, error) {
	var generations []models.CleanedGeneration
	if err := s.db.Where("superseded = ? AND deleted_at IS NULL", true).Find(&generations).Error; err != nil {
		return nil, fmt.Errorf("查询被取代代次失败: %w", models.ErrStoreUnavailable)
	}
	return generations, nil
}
