/*
 * @module service/data_quality/validator
 * @description 数据验证器，负责必填字段检查、类型可转换性验证和约束求值，按行聚合验证问题
 * @architecture 分层架构 - 数据验证层
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow 数据读取 -> 逐行逐字段验证 -> 验证报告生成
 * @rules 每行每字段至多记录一个约束失败；行级问题不中断运行；对存储只读
 * @dependencies surveyhub-service/service/upload_store, github.com/spf13/cast
 * @refs service/data_quality/cleanser.go, service/processing/
 */

package data_quality

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"surveyhub-service/service/models"
	"surveyhub-service/service/upload_store"
	"surveyhub-service/service/utils"
)

var emailPattern = regexp.MustCompile(`^[\w.%+-]+@[\w.-]+\.[a-zA-Z]{2,}$`)

// Validator 数据验证器
type Validator struct {
	uploads   *upload_store.Store
	converter *utils.DataConverter
}

// NewValidator 创建数据验证器实例
func NewValidator(uploads *upload_store.Store) *Validator {
	return &Validator{
		uploads:   uploads,
		converter: utils.NewDataConverter(),
	}
}

// Validate 对上传文件执行模式验证，产出验证报告和原始行序列
// 行按文件顺序处理，行与行之间检查取消
func (v *Validator) Validate(ctx context.Context, record *models.UploadRecord, schema *models.SurveySchema, jobID string) (*models.ValidationReport, []upload_store.Row, error) {
	header, rows, err := v.uploads.ReadRows(record)
	if err != nil {
		return nil, nil, err
	}

	declared := make(map[string]bool, len(schema.Fields))
	for _, field := range schema.Fields {
		declared[field.Name] = true
	}

	// unique 约束的运行内已见值
	seen := make(map[string]map[string]int)
	for _, field := range schema.Fields {
		for _, c := range field.Constraints {
			if c.Kind == models.ConstraintUnique {
				seen[field.Name] = make(map[string]int)
			}
		}
	}

	report := &models.ValidationReport{
		UploadID:  record.ID,
		JobID:     jobID,
		TotalRows: len(rows),
		Issues:    models.ValidationIssueList{},
	}

	fatalCells := 0
	for _, row := range rows {
		select {
		case <-ctx.Done():
			return nil, nil, models.ErrCancelled
		default:
		}

		issueCount := 0
		fatal := false

		for _, field := range schema.Fields {
			issue := v.validateField(row, field, seen)
			if issue == nil {
				continue
			}
			report.Issues = append(report.Issues, *issue)
			issueCount++
			if issue.Kind.Fatal() {
				fatal = true
				fatalCells++
			}
		}

		// 未声明字段按表头顺序记录，不影响同行其他字段
		for _, name := range header {
			if declared[name] || name == "" {
				continue
			}
			if _, present := row.Values[name]; present {
				report.Issues = append(report.Issues, models.ValidationIssue{
					RowIndex: row.Index,
					Field:    name,
					Kind:     models.IssueUnknownField,
					Detail:   fmt.Sprintf("字段 %s 未在模式中声明", name),
				})
				issueCount++
			}
		}

		if issueCount == 0 {
			report.ValidRows++
		}
		if !fatal {
			report.EligibleRows++
		}
	}

	report.Scores = ComputeScores(schema.Fields, rows, fatalCells, v.converter)
	return report, rows, nil
}

// validateField 验证单行中的单个声明字段
// 检查顺序：必填 -> 类型可转换性 -> 约束（声明顺序，首个失败即止）
func (v *Validator) validateField(row upload_store.Row, field models.FieldSchema, seen map[string]map[string]int) *models.ValidationIssue {
	raw, present := row.Values[field.Name]
	missing := !present || strings.TrimSpace(raw) == ""

	if missing {
		if field.Required {
			return &models.ValidationIssue{
				RowIndex: row.Index,
				Field:    field.Name,
				Kind:     models.IssueMissingRequired,
				Detail:   fmt.Sprintf("必填字段 %s 缺失", field.Name),
			}
		}
		return nil
	}

	var numeric float64
	switch field.Type {
	case models.FieldTypeNumber:
		f, err := v.converter.CoerceNumber(raw)
		if err != nil {
			return &models.ValidationIssue{
				RowIndex: row.Index,
				Field:    field.Name,
				Kind:     models.IssueTypeMismatch,
				Detail:   fmt.Sprintf("值 %q 不是有效数值", raw),
			}
		}
		numeric = f
	case models.FieldTypeDate:
		if _, err := v.converter.CoerceDate(raw); err != nil {
			return &models.ValidationIssue{
				RowIndex: row.Index,
				Field:    field.Name,
				Kind:     models.IssueTypeMismatch,
				Detail:   fmt.Sprintf("值 %q 不是有效日期", raw),
			}
		}
	}

	normalized := v.converter.NormalizeWhitespace(raw)
	for _, constraint := range field.Constraints {
		if detail := v.checkConstraint(constraint, field, normalized, numeric, seen); detail != "" {
			return &models.ValidationIssue{
				RowIndex: row.Index,
				Field:    field.Name,
				Kind:     models.IssueConstraintViolation,
				Detail:   detail,
			}
		}
	}
	return nil
}

// checkConstraint 求值单个约束，返回空串表示通过
func (v *Validator) checkConstraint(c models.Constraint, field models.FieldSchema, normalized string, numeric float64, seen map[string]map[string]int) string {
	switch c.Kind {
	case models.ConstraintRange:
		if c.Min != nil && numeric < *c.Min {
			return fmt.Sprintf("值 %s 小于下界 %v", v.converter.CanonicalNumber(numeric), *c.Min)
		}
		if c.Max != nil && numeric > *c.Max {
			return fmt.Sprintf("值 %s 大于上界 %v", v.converter.CanonicalNumber(numeric), *c.Max)
		}
	case models.ConstraintPattern:
		re, err := regexp.Compile(c.Pattern)
		if err != nil {
			return fmt.Sprintf("约束正则不合法: %s", c.Pattern)
		}
		if !re.MatchString(normalized) {
			return fmt.Sprintf("值 %q 不匹配模式 %s", normalized, c.Pattern)
		}
	case models.ConstraintEmail:
		if !emailPattern.MatchString(normalized) {
			return fmt.Sprintf("值 %q 不是有效邮箱地址", normalized)
		}
	case models.ConstraintChoice:
		for _, option := range c.Options {
			if normalized == option {
				return ""
			}
		}
		return fmt.Sprintf("值 %q 不在选项列表中", normalized)
	case models.ConstraintUnique:
		counts := seen[field.Name]
		counts[normalized]++
		if counts[normalized] > 1 {
			return fmt.Sprintf("值 %q 在本次运行中重复出现", normalized)
		}
	case models.ConstraintMinLength:
		if len([]rune(normalized)) < c.Length {
			return fmt.Sprintf("长度 %d 小于最小长度 %d", len([]rune(normalized)), c.Length)
		}
	case models.ConstraintMaxLength:
		if len([]rune(normalized)) > c.Length {
			return fmt.Sprintf("长度 %d 大于最大长度 %d", len([]rune(normalized)), c.Length)
		}
	}
	return ""
}
