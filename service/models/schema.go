/*
 * @module service/models/schema
 * @description 字段模式与清洗规则模型，描述每个问卷期望的字段定义、约束和可选清洗规则
 * @architecture 数据模型层
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow 模式配置 -> 验证器读取 -> 清洗引擎读取
 * @rules 字段模式对流水线只读，字段顺序与约束声明顺序有语义
 * @dependencies gorm.io/gorm, database/sql/driver, encoding/json
 * @refs service/schema_registry/, service/data_quality/
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

// FieldType 字段类型
type FieldType string

const (
	FieldTypeText   FieldType = "text"   // 文本
	FieldTypeNumber FieldType = "number" // 数值
	FieldTypeDate   FieldType = "date"   // 日期
	FieldTypeChoice FieldType = "choice" // 选项
)

// 约束类型
const (
	ConstraintRange     = "range"      // 数值范围 {min, max}
	ConstraintPattern   = "pattern"    // 正则匹配 {pattern}
	ConstraintEmail     = "email"      // 邮箱格式
	ConstraintChoice    = "choice"     // 选项列表 {options}
	ConstraintUnique    = "unique"     // 运行内字段值唯一
	ConstraintMinLength = "min_length" // 最小长度 {length}
	ConstraintMaxLength = "max_length" // 最大长度 {length}
)

// Constraint 字段约束
// 约束按声明顺序求值，每行每字段只记录第一个失败的约束
type Constraint struct {
	Kind    string   `json:"kind"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Pattern string   `json:"pattern,omitempty"`
	Options []string `json:"options,omitempty"`
	Length  int      `json:"length,omitempty"`
}

// FieldSchema 单个字段定义
type FieldSchema struct {
	Name        string       `json:"name"`
	Type        FieldType    `json:"type"`
	Required    bool         `json:"required"`
	Constraints []Constraint `json:"constraints,omitempty"`
}

// FieldSchemaList 字段定义有序序列，整体作为 JSONB 存储
type FieldSchemaList []FieldSchema

func (l *FieldSchemaList) Scan(value interface{}) error {
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

func (l FieldSchemaList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// 清洗规则类型
const (
	CleansingStandardize = "standardize"  // 标准化操作
	CleansingFindReplace = "find_replace" // 查找替换
	CleansingDerive      = "derive"       // 派生变量（表达式）
)

// 标准化操作
const (
	StandardizeTrim               = "trim"
	StandardizeLowercase          = "lowercase"
	StandardizeUppercase          = "uppercase"
	StandardizeTitleCase          = "title_case"
	StandardizeRemoveSpecialChars = "remove_special_chars"
)

// CleansingRule 可选清洗规则，在固定清洗变换之后按声明顺序应用
type CleansingRule struct {
	Kind       string   `json:"kind"`
	Fields     []string `json:"fields,omitempty"`
	Operations []string `json:"operations,omitempty"` // standardize 操作列表
	Find       string   `json:"find,omitempty"`
	Replace    string   `json:"replace,omitempty"`
	UseRegex   bool     `json:"use_regex,omitempty"`
	NewField   string   `json:"new_field,omitempty"`
	Expression string   `json:"expression,omitempty"` // derive 表达式
}

// CleansingRuleList 清洗规则有序序列，整体作为 JSONB 存储
type CleansingRuleList []CleansingRule

func (l *CleansingRuleList) Scan(value interface{}) error {
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

func (l CleansingRuleList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// SurveySchema 问卷字段模式模型
// 每个问卷一个有序字段序列，流水线只读
type SurveySchema struct {
	ID             string            `gorm:"type:varchar(50);primaryKey" json:"id"`
	SurveyID       string            `gorm:"type:varchar(50);not null;uniqueIndex" json:"survey_id"`
	Version        int               `gorm:"default:1" json:"version"`
	Fields         FieldSchemaList   `gorm:"type:jsonb;not null" json:"fields"`
	CleansingRules CleansingRuleList `gorm:"type:jsonb" json:"cleansing_rules,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// TableName 指定表名
func (SurveySchema) TableName() string {
	return "survey_schemas"
}

// BeforeCreate 创建前钩子
func (s *SurveySchema) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}
