/*
 * @module service/data_quality/cleanser_test
 * @description 数据清洗器测试文件
 * @architecture 测试层
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow 测试用例 -> 清洗执行 -> 结果验证
 * @rules 覆盖归一化、清洗规则、精确去重、离群标记与确定性
 * @dependencies testing, github.com/stretchr/testify/assert
 * @refs service/data_quality/cleanser.go
 */

package data_quality

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"surveyhub-service/service/models"
	"surveyhub-service/service/upload_store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() *models.SurveySchema {
	return &models.SurveySchema{
		SurveyID: "survey-1",
		Version:  1,
		Fields: models.FieldSchemaList{
			{Name: "name", Type: models.FieldTypeText, Required: true},
			{Name: "age", Type: models.FieldTypeNumber, Constraints: []models.Constraint{
				{Kind: models.ConstraintRange, Min: floatPtr(0), Max: floatPtr(2000)},
			}},
			{Name: "submitted", Type: models.FieldTypeDate},
		},
	}
}

func testUpload() *models.UploadRecord {
	return &models.UploadRecord{ID: "upload-1", SurveyID: "survey-1"}
}

func emptyReport() *models.ValidationReport {
	return &models.ValidationReport{Issues: models.ValidationIssueList{}}
}

func floatPtr(f float64) *float64 {
	return &f
}

// TestCleanExcludesDuplicates 测试归一化后完全重复的行只保留首个
func TestCleanExcludesDuplicates(t *testing.T) {
	cleanser := NewCleanser()

	// 行0与行2归一化后字节一致（空白与数值规范形式）
	rows := []upload_store.Row{
		{Index: 0, Values: map[string]string{"name": "Alice", "age": "30"}},
		{Index: 1, Values: map[string]string{"name": "Bob", "age": "42"}},
		{Index: 2, Values: map[string]string{"name": " Alice ", "age": "30.0"}},
	}

	records, err := cleanser.Clean(context.Background(), testUpload(), testSchema(), emptyReport(), rows)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, 0, records[0].RowIndex)
	assert.Equal(t, 1, records[1].RowIndex)
}

// TestCleanCoercedFlag 测试原始值与规范形式不一致时标记 Coerced
func TestCleanCoercedFlag(t *testing.T) {
	cleanser := NewCleanser()

	rows := []upload_store.Row{
		{Index: 0, Values: map[string]string{"name": "Alice", "age": "30.0", "submitted": "2026/01/15"}},
		{Index: 1, Values: map[string]string{"name": "Bob", "age": "42", "submitted": "2026-02-20"}},
	}

	records, err := cleanser.Clean(context.Background(), testUpload(), testSchema(), emptyReport(), rows)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Contains(t, records[0].Flags, models.FlagCoerced)
	assert.Equal(t, float64(30), records[0].Fields["age"])
	assert.Equal(t, "2026-01-15", records[0].Fields["submitted"])

	assert.NotContains(t, records[1].Flags, models.FlagCoerced)
	assert.Equal(t, float64(42), records[1].Fields["age"])
}

// TestCleanSkipsFatalRows 测试带致命问题的行不进入清洗
func TestCleanSkipsFatalRows(t *testing.T) {
	cleanser := NewCleanser()

	report := &models.ValidationReport{
		Issues: models.ValidationIssueList{
			{RowIndex: 1, Field: "name", Kind: models.IssueMissingRequired},
		},
	}
	rows := []upload_store.Row{
		{Index: 0, Values: map[string]string{"name": "Alice", "age": "30"}},
		{Index: 1, Values: map[string]string{"age": "42"}},
	}

	records, err := cleanser.Clean(context.Background(), testUpload(), testSchema(), report, rows)
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, 0, records[0].RowIndex)
}

// TestCleanFlagsOutliers 测试三倍标准差离群标记，离群行保留不排除
func TestCleanFlagsOutliers(t *testing.T) {
	cleanser := NewCleanser()

	rows := make([]upload_store.Row, 0, 20)
	for i := 0; i < 19; i++ {
		rows = append(rows, upload_store.Row{
			Index:  i,
			Values: map[string]string{"name": fmt.Sprintf("user%d", i), "age": "10"},
		})
	}
	rows = append(rows, upload_store.Row{
		Index:  19,
		Values: map[string]string{"name": "outlier", "age": "1000"},
	})

	records, err := cleanser.Clean(context.Background(), testUpload(), testSchema(), emptyReport(), rows)
	require.NoError(t, err)
	require.Len(t, records, 20)

	assert.Contains(t, records[19].Flags, models.FlagOutlierSuspect)
	for _, rec := range records[:19] {
		assert.NotContains(t, rec.Flags, models.FlagOutlierSuspect)
	}
}

// TestCleanStandardizeRules 测试标准化清洗规则按序应用
func TestCleanStandardizeRules(t *testing.T) {
	cleanser := NewCleanser()

	schema := testSchema()
	schema.CleansingRules = models.CleansingRuleList{
		{Kind: models.CleansingStandardize, Fields: []string{"name"}, Operations: []string{
			models.StandardizeTrim,
			models.StandardizeLowercase,
		}},
		{Kind: models.CleansingFindReplace, Fields: []string{"name"}, Find: "alice", Replace: "alicia"},
	}

	rows := []upload_store.Row{
		{Index: 0, Values: map[string]string{"name": "ALICE", "age": "30"}},
	}

	records, err := cleanser.Clean(context.Background(), testUpload(), schema, emptyReport(), rows)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "alicia", records[0].Fields["name"])
}

// TestCleanDeriveExpression 测试派生变量表达式求值
func TestCleanDeriveExpression(t *testing.T) {
	cleanser := NewCleanser()

	schema := testSchema()
	schema.CleansingRules = models.CleansingRuleList{
		{Kind: models.CleansingDerive, NewField: "age_months", Expression: `num("age") * 12`},
	}

	rows := []upload_store.Row{
		{Index: 0, Values: map[string]string{"name": "Alice", "age": "30"}},
	}

	records, err := cleanser.Clean(context.Background(), testUpload(), schema, emptyReport(), rows)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, float64(360), records[0].Fields["age_months"])
}

// TestCleanDeterministic 测试相同输入与模式产出字节一致的结果
func TestCleanDeterministic(t *testing.T) {
	cleanser := NewCleanser()

	rows := []upload_store.Row{
		{Index: 0, Values: map[string]string{"name": "  Alice  Liu ", "age": "030", "submitted": "01/15/2026"}},
		{Index: 1, Values: map[string]string{"name": "Bob", "age": "42"}},
	}

	first, err := cleanser.Clean(context.Background(), testUpload(), testSchema(), emptyReport(), rows)
	require.NoError(t, err)
	second, err := cleanser.Clean(context.Background(), testUpload(), testSchema(), emptyReport(), rows)
	require.NoError(t, err)

	firstBytes, err := json.Marshal(first)
	require.NoError(t, err)
	secondBytes, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, firstBytes, secondBytes)
}

// TestCleanCancelled 测试行间协作取消
func TestCleanCancelled(t *testing.T) {
	cleanser := NewCleanser()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rows := []upload_store.Row{
		{Index: 0, Values: map[string]string{"name": "Alice", "age": "30"}},
	}
	_, err := cleanser.Clean(ctx, testUpload(), testSchema(), emptyReport(), rows)
	assert.ErrorIs(t, err, models.ErrCancelled)
}
