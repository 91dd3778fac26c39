/*
 * @module service/models/survey
 * @description 调查问卷与原始上传记录模型，上传记录按内容哈希寻址，写入后不可变更
 * @architecture 数据模型层
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow 文件接收 -> 上传记录落库 -> 处理流水线消费
 * @rules UploadRecord 一经写入不可修改，重复内容通过 content_hash 幂等识别
 * @dependencies gorm.io/gorm, github.com/google/uuid, time
 * @refs service/upload_store/
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Survey 调查问卷模型
type Survey struct {
	ID          string           `gorm:"type:varchar(50);primaryKey" json:"id"`
	Name        string           `gorm:"type:varchar(255);not null" json:"name"`
	Description string           `gorm:"type:text" json:"description"`
	Tags        JSONBStringArray `gorm:"type:jsonb" json:"tags,omitempty"`
	Metadata    JSONB            `gorm:"type:jsonb" json:"metadata,omitempty"`
	IsArchived  bool             `gorm:"default:false" json:"is_archived"`
	ArchivedAt  *time.Time       `json:"archived_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// TableName 指定表名
func (Survey) TableName() string {
	return "surveys"
}

// BeforeCreate 创建前钩子
func (s *Survey) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// UploadRecord 原始上传记录模型
// 记录一次问卷数据文件上传，写入后不可变更
type UploadRecord struct {
	ID               string    `gorm:"type:varchar(50);primaryKey" json:"id"`
	SurveyID         string    `gorm:"type:varchar(50);not null;index" json:"survey_id"`
	OriginalFilename string    `gorm:"type:varchar(255);not null" json:"original_filename"`
	ByteSize         int64     `json:"byte_size"`
	ContentHash      string    `gorm:"type:varchar(64);not null;index" json:"content_hash"` // SHA-256
	StoragePath      string    `gorm:"type:varchar(512);not null" json:"storage_path"`
	ReceivedAt       time.Time `json:"received_at"`
}

// TableName 指定表名
func (UploadRecord) TableName() string {
	return "upload_records"
}

// BeforeCreate 创建前钩子
func (u *UploadRecord) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.ReceivedAt.IsZero() {
		u.ReceivedAt = time.Now()
	}
	return nil
}
