/*
 * @module service/models/pipeline_models
 * @description 处理流水线模型，包含验证问题、验证报告、清洗记录、清洗代次和处理作业
 * @architecture 数据模型层
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow 作业创建 -> 验证报告生成 -> 清洗代次写入 -> 作业终态
 * @rules 每个 uploadId 同一时刻至多一个非终态作业；validRows 不得超过 totalRows
 * @dependencies gorm.io/gorm, github.com/google/uuid, time
 * @refs service/processing/, service/data_quality/, service/cleaned_store/
 */

package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IssueKind 验证问题类型
type IssueKind string

const (
	IssueMissingRequired     IssueKind = "MissingRequired"     // 必填缺失，致命
	IssueTypeMismatch        IssueKind = "TypeMismatch"        // 类型不匹配，致命
	IssueConstraintViolation IssueKind = "ConstraintViolation" // 约束违反，非致命
	IssueUnknownField        IssueKind = "UnknownField"        // 未声明字段，非致命
)

// Fatal 判断该问题类型是否将所在行排除出清洗
func (k IssueKind) Fatal() bool {
	return k == IssueMissingRequired || k == IssueTypeMismatch
}

// ValidationIssue 单行单字段的验证问题
type ValidationIssue struct {
	RowIndex int       `json:"row_index"`
	Field    string    `json:"field"`
	Kind     IssueKind `json:"kind"`
	Detail   string    `json:"detail"`
}

// ValidationIssueList 验证问题有序序列，整体作为 JSONB 存储
type ValidationIssueList []ValidationIssue

func (l *ValidationIssueList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("类型断言失败: 不是 []byte 或 string")
	}
	return json.Unmarshal(bytes, l)
}

func (l ValidationIssueList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// QualityScores 数据质量评分（0-100）
type QualityScores struct {
	Completeness    float64  `json:"completeness"` // 非缺失单元格占比
	Accuracy        float64  `json:"accuracy"`     // 无致命问题单元格占比
	Consistency     float64  `json:"consistency"`  // 全部值可按声明类型解析的字段占比
	Overall         float64  `json:"overall"`
	Recommendations []string `json:"recommendations,omitempty"`
}

func (q *QualityScores) Scan(value interface{}) error {
	if value == nil {
		*q = QualityScores{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("类型断言失败: 不是 []byte 或 string")
	}
	return json.Unmarshal(bytes, q)
}

func (q QualityScores) Value() (driver.Value, error) {
	return json.Marshal(q)
}

// ValidationReport 一次处理运行的验证报告，生成后不可变更
type ValidationReport struct {
	ID           string              `gorm:"type:varchar(50);primaryKey" json:"id"`
	UploadID     string              `gorm:"type:varchar(50);not null;index" json:"upload_id"`
	JobID        string              `gorm:"type:varchar(50);not null;index" json:"job_id"`
	TotalRows    int                 `json:"total_rows"`
	ValidRows    int                 `json:"valid_rows"`    // 零问题行数
	EligibleRows int                 `json:"eligible_rows"` // 可进入清洗的行数（无致命问题）
	Issues       ValidationIssueList `gorm:"type:jsonb" json:"issues"`
	Scores       QualityScores       `gorm:"type:jsonb" json:"scores"`
	CreatedAt    time.Time           `json:"created_at"`
}

// TableName 指定表名
func (ValidationReport) TableName() string {
	return "validation_reports"
}

// BeforeCreate 创建前钩子
func (r *ValidationReport) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// 清洗标记
type Flag string

const (
	FlagDuplicate      Flag = "Duplicate"      // 与先前存活行完全重复
	FlagOutlierSuspect Flag = "OutlierSuspect" // 数值超出运行内均值三倍标准差
	FlagCoerced        Flag = "Coerced"        // 原始值与规范形式不一致
)

// CleanedRecord 清洗后的单行记录
// 行索引为原始文件行索引的子集并保持原始顺序
type CleanedRecord struct {
	RowIndex int                    `json:"row_index"`
	SurveyID string                 `json:"survey_id"`
	Fields   map[string]interface{} `json:"fields"`
	Flags    []Flag                 `json:"flags,omitempty"`
}

// CleanedGeneration 清洗输出代次模型
// 每次成功运行产生一个代次，旧代次原子性地被标记取代
type CleanedGeneration struct {
	ID          string     `gorm:"type:varchar(50);primaryKey" json:"id"`
	UploadID    string     `gorm:"type:varchar(50);not null;index" json:"upload_id"`
	SurveyID    string     `gorm:"type:varchar(50);not null;index" json:"survey_id"`
	JobID       string     `gorm:"type:varchar(50);not null" json:"job_id"`
	RecordCount int        `json:"record_count"`
	StoragePath string     `gorm:"type:varchar(512);not null" json:"storage_path"`
	ContentHash string     `gorm:"type:varchar(64);not null" json:"content_hash"` // 输出内容 SHA-256
	Superseded  bool       `gorm:"default:false;index" json:"superseded"`
	CreatedAt   time.Time  `json:"created_at"`
	DeletedAt   *time.Time `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (CleanedGeneration) TableName() string {
	return "cleaned_generations"
}

// BeforeCreate 创建前钩子
func (g *CleanedGeneration) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	return nil
}

// JobState 作业状态
type JobState string

const (
	JobStatePending    JobState = "PENDING"
	JobStateValidating JobState = "VALIDATING"
	JobStateCleaning   JobState = "CLEANING"
	JobStateCompleted  JobState = "COMPLETED"
	JobStateFailed     JobState = "FAILED"
)

// Terminal 判断状态是否为终态
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// 作业失败原因
const (
	ReasonNoEligibleRows   = "NoEligibleRows"
	ReasonCancelled        = "Cancelled"
	ReasonMalformedFile    = "MalformedFile"
	ReasonStoreUnavailable = "StoreUnavailable"
)

// ProcessingJob 处理作业模型
// 同一 uploadId 同一时刻至多存在一个非终态作业
type ProcessingJob struct {
	ID         string     `gorm:"type:varchar(50);primaryKey" json:"id"`
	UploadID   string     `gorm:"type:varchar(50);not null;index" json:"upload_id"`
	SurveyID   string     `gorm:"type:varchar(50);not null;index" json:"survey_id"`
	State      JobState   `gorm:"type:varchar(20);not null" json:"state"`
	Reason     string     `gorm:"type:text" json:"reason,omitempty"`
	Attempt    int        `gorm:"default:1" json:"attempt"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Archived   bool       `gorm:"default:false;index" json:"archived"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (ProcessingJob) TableName() string {
	return "processing_jobs"
}

// BeforeCreate 创建前钩子
func (j *ProcessingJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	return nil
}

// PipelineEvent 作业生命周期事件，推送给 SSE 客户端及 Kafka 下游
type PipelineEvent struct {
	Type      string    `json:"type"` // job_admitted, state_changed, job_finished
	UploadID  string    `json:"upload_id"`
	SurveyID  string    `json:"survey_id"`
	JobID     string    `json:"job_id"`
	State     JobState  `json:"state"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
