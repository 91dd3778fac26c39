/*
 * @module service/upload_store/store
 * @description 原始上传存储，负责上传文件的持久化、内容寻址与上传记录管理，目录按问卷分组
 * @architecture 分层架构 - 存储适配层
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow 文件接收 -> 内容哈希计算 -> 落盘 -> 上传记录落库
 * @rules 存储只追加不修改；同一问卷下相同内容哈希的重复提交幂等返回既有记录
 * @dependencies gorm.io/gorm, crypto/sha256, os
 * @refs service/models/, service/processing/
 */

package upload_store

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"surveyhub-service/service/models"
	"surveyhub-service/service/utils"

	"gorm.io/gorm"
)

// Store 原始上传存储
type Store struct {
	db        *gorm.DB
	rootDir   string
	converter *utils.DataConverter
}

// NewStore 创建上传存储实例
// rootDir 为原始上传根目录，在启动时解析一次后显式传入
func NewStore(db *gorm.DB, rootDir string) *Store {
	return &Store{
		db:        db,
		rootDir:   rootDir,
		converter: utils.NewDataConverter(),
	}
}

// Receive 接收一个原始上传文件
// 相同问卷下相同内容的重复提交幂等返回既有上传记录
func (s *Store) Receive(surveyID string, content []byte, filename string) (*models.UploadRecord, error) {
	var survey models.Survey
	if err := s.db.First(&survey, "id = ?", surveyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("问卷 %s 不存在: %w", surveyID, models.ErrUnknownUpload)
		}
		return nil, fmt.Errorf("查询问卷失败: %w", models.ErrStoreUnavailable)
	}
	if survey.IsArchived {
		return nil, models.ErrSurveyArchived
	}

	if len(content) == 0 {
		return nil, fmt.Errorf("上传内容为空: %w", models.ErrMalformedFile)
	}

	sum := sha256.Sum256(content)
	contentHash := hex.EncodeToString(sum[:])

	// 幂等识别：同问卷同内容直接返回既有记录
	var existing models.UploadRecord
	err := s.db.First(&existing, "survey_id = ? AND content_hash = ?", surveyID, contentHash).Error
	if err == nil {
		slog.Info("重复上传，返回既有记录",
			"survey_id", surveyID,
			"upload_id", existing.ID,
			"content_hash", contentHash)
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("查询上传记录失败: %w", models.ErrStoreUnavailable)
	}

	record := &models.UploadRecord{
		SurveyID:         surveyID,
		OriginalFilename: filename,
		ByteSize:         int64(len(content)),
		ContentHash:      contentHash,
	}
	if err := s.db.Create(record).Error; err != nil {
		return nil, fmt.Errorf("创建上传记录失败: %w", models.ErrStoreUnavailable)
	}

	path := s.buildPath(surveyID, record.ID, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建上传目录失败: %w", models.ErrStoreUnavailable)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return nil, fmt.Errorf("写入上传文件失败: %w", models.ErrStoreUnavailable)
	}

	if err := s.db.Model(record).Update("storage_path", path).Error; err != nil {
		return nil, fmt.Errorf("更新存储路径失败: %w", models.ErrStoreUnavailable)
	}
	record.StoragePath = path

	slog.Info("上传接收完成",
		"survey_id", surveyID,
		"upload_id", record.ID,
		"filename", filename,
		"byte_size", record.ByteSize)
	return record, nil
}

// Get 按上传标识获取上传记录
func (s *Store) Get(uploadID string) (*models.UploadRecord, error) {
	var record models.UploadRecord
	if err := s.db.First(&record, "id = ?", uploadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrUnknownUpload
		}
		return nil, fmt.Errorf("查询上传记录失败: %w", models.ErrStoreUnavailable)
	}
	return &record, nil
}

// ListBySurvey 列出问卷下的全部上传记录
func (s *Store) ListBySurvey(surveyID string) ([]models.UploadRecord, error) {
	var records []models.UploadRecord
	if err := s.db.Where("survey_id = ?", surveyID).Order("received_at").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("查询上传记录失败: %w", models.ErrStoreUnavailable)
	}
	return records, nil
}

// buildPath 构造上传文件路径：rootDir/<surveyId>/<uploadId><ext>
func (s *Store) buildPath(surveyID, uploadID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return filepath.Join(s.rootDir, surveyID, uploadID+ext)
}
