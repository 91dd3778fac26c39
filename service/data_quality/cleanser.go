/*
 * @module service/data_quality/cleanser
 * @description 数据清洗器，按固定顺序执行空白归一化、类型规范化、去重与离群标记，并应用模式配置的清洗规则
 * @architecture 管道模式 - 固定变换链加可配置规则链
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow 行归一化 -> 清洗规则应用 -> 精确去重 -> 离群标记
 * @rules 相同内容哈希与相同模式序列必须产出字节一致的输出；重复行排除而非仅标记；离群行保留仅标记
 * @dependencies surveyhub-service/service/utils, github.com/spf13/cast, golang.org/x/text/cases
 * @refs service/data_quality/validator.go, service/cleaned_store/
 */

package data_quality

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"surveyhub-service/service/models"
	"surveyhub-service/service/upload_store"
	"surveyhub-service/service/utils"

	"github.com/spf13/cast"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var specialChars = regexp.MustCompile(`[^a-zA-Z0-9\s]`)

// Cleanser 数据清洗器
type Cleanser struct {
	converter *utils.DataConverter
	scripts   *ScriptExecutor
	titleCase cases.Caser
}

// NewCleanser 创建数据清洗器实例
func NewCleanser() *Cleanser {
	return &Cleanser{
		converter: utils.NewDataConverter(),
		scripts:   NewScriptExecutor(),
		titleCase: cases.Title(language.Und),
	}
}

// Clean 清洗一次运行中通过验证的行
// 仅无致命问题的行参与；输出行索引保持原始顺序
func (c *Cleanser) Clean(ctx context.Context, record *models.UploadRecord, schema *models.SurveySchema, report *models.ValidationReport, rows []upload_store.Row) ([]models.CleanedRecord, error) {
	fatalRows := make(map[int]bool)
	for _, issue := range report.Issues {
		if issue.Kind.Fatal() {
			fatalRows[issue.RowIndex] = true
		}
	}

	cleaned := make([]models.CleanedRecord, 0, len(rows))
	for _, row := range rows {
		select {
		case <-ctx.Done():
			return nil, models.ErrCancelled
		default:
		}

		if fatalRows[row.Index] {
			continue
		}

		rec := c.normalizeRow(record.SurveyID, row, schema.Fields)
		c.applyCleansingRules(&rec, schema.CleansingRules)
		cleaned = append(cleaned, rec)
	}

	cleaned = c.excludeDuplicates(cleaned)
	c.flagOutliers(cleaned, schema.Fields)
	return cleaned, nil
}

// normalizeRow 固定变换：(1) 文本空白归一化 (2) 按声明类型转为规范形式
// 原始值与规范形式不一致时标记 Coerced
func (c *Cleanser) normalizeRow(surveyID string, row upload_store.Row, fields models.FieldSchemaList) models.CleanedRecord {
	rec := models.CleanedRecord{
		RowIndex: row.Index,
		SurveyID: surveyID,
		Fields:   make(map[string]interface{}, len(fields)),
	}

	coerced := false
	for _, field := range fields {
		raw, present := row.Values[field.Name]
		if !present || strings.TrimSpace(raw) == "" {
			continue // 非必填缺失字段省略
		}

		switch field.Type {
		case models.FieldTypeNumber:
			f, err := c.converter.CoerceNumber(raw)
			if err != nil {
				continue // 致命行已排除，此处仅防御
			}
			rec.Fields[field.Name] = f
			if c.converter.CanonicalNumber(f) != strings.TrimSpace(raw) {
				coerced = true
			}
		case models.FieldTypeDate:
			t, err := c.converter.CoerceDate(raw)
			if err != nil {
				continue
			}
			canonical := c.converter.CanonicalDate(t)
			rec.Fields[field.Name] = canonical
			if canonical != strings.TrimSpace(raw) {
				coerced = true
			}
		default:
			normalized := c.converter.NormalizeWhitespace(raw)
			rec.Fields[field.Name] = normalized
			if normalized != raw {
				coerced = true
			}
		}
	}

	if coerced {
		rec.Flags = append(rec.Flags, models.FlagCoerced)
	}
	return rec
}

// applyCleansingRules 按声明顺序应用模式配置的清洗规则
func (c *Cleanser) applyCleansingRules(rec *models.CleanedRecord, rules models.CleansingRuleList) {
	for _, rule := range rules {
		switch rule.Kind {
		case models.CleansingStandardize:
			for _, name := range rule.Fields {
				value, ok := rec.Fields[name].(string)
				if !ok {
					continue
				}
				rec.Fields[name] = c.standardize(value, rule.Operations)
			}
		case models.CleansingFindReplace:
			for _, name := range rule.Fields {
				value, ok := rec.Fields[name].(string)
				if !ok {
					continue
				}
				if rule.UseRegex {
					re, err := regexp.Compile(rule.Find)
					if err != nil {
						continue
					}
					rec.Fields[name] = re.ReplaceAllString(value, rule.Replace)
				} else {
					rec.Fields[name] = strings.ReplaceAll(value, rule.Find, rule.Replace)
				}
			}
		case models.CleansingDerive:
			if rule.NewField == "" || rule.Expression == "" {
				continue
			}
			if _, exists := rec.Fields[rule.NewField]; exists {
				continue // 不覆盖既有字段
			}
			value, err := c.scripts.EvalExpression(rule.Expression, rec.Fields)
			if err != nil {
				slog.Warn("派生变量求值失败", "field", rule.NewField, "error", err)
				continue
			}
			rec.Fields[rule.NewField] = value
		}
	}
}

// standardize 对字符串值按序应用标准化操作
func (c *Cleanser) standardize(value string, operations []string) string {
	for _, op := range operations {
		switch op {
		case models.StandardizeTrim:
			value = strings.TrimSpace(value)
		case models.StandardizeLowercase:
			value = strings.ToLower(value)
		case models.StandardizeUppercase:
			value = strings.ToUpper(value)
		case models.StandardizeTitleCase:
			value = c.titleCase.String(value)
		case models.StandardizeRemoveSpecialChars:
			value = specialChars.ReplaceAllString(value, "")
		}
	}
	return value
}

// excludeDuplicates 精确去重
// 归一化后字段集字节一致的行视为重复，仅保留首个出现，重复副本不进入输出
func (c *Cleanser) excludeDuplicates(records []models.CleanedRecord) []models.CleanedRecord {
	seen := make(map[string]bool, len(records))
	survivors := make([]models.CleanedRecord, 0, len(records))

	for _, rec := range records {
		// JSON 序列化按键排序，可作为规范字节形式
		key, err := json.Marshal(rec.Fields)
		if err != nil {
			survivors = append(survivors, rec)
			continue
		}
		if seen[string(key)] {
			continue
		}
		seen[string(key)] = true
		survivors = append(survivors, rec)
	}
	return survivors
}

// flagOutliers 离群标记
// 对带范围约束的数值字段，偏离运行内均值超过三倍标准差的值标记 OutlierSuspect，保留不排除
func (c *Cleanser) flagOutliers(records []models.CleanedRecord, fields models.FieldSchemaList) {
	for _, field := range fields {
		if field.Type != models.FieldTypeNumber || !hasRangeConstraint(field) {
			continue
		}

		var values []float64
		for _, rec := range records {
			if v, ok := rec.Fields[field.Name]; ok {
				values = append(values, cast.ToFloat64(v))
			}
		}
		if len(values) < 2 {
			continue
		}

		mean, stddev := meanStddev(values)
		if stddev == 0 {
			continue
		}

		for i := range records {
			v, ok := records[i].Fields[field.Name]
			if !ok {
				continue
			}
			if math.Abs(cast.ToFloat64(v)-mean) > 3*stddev {
				records[i].Flags = appendFlag(records[i].Flags, models.FlagOutlierSuspect)
			}
		}
	}
}

func hasRangeConstraint(field models.FieldSchema) bool {
	for _, c := range field.Constraints {
		if c.Kind == models.ConstraintRange {
			return true
		}
	}
	return false
}

func meanStddev(values []float64) (float64, float64) {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

func appendFlag(flags []models.Flag, flag models.Flag) []models.Flag {
	for _, f := range flags {
		if f == flag {
			return flags
		}
	}
	return append(flags, flag)
}
