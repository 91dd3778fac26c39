/*
 * @module service/models/survey_test
 * @description 问卷模型测试文件
 * @architecture 测试层
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow 模型写入 -> 重新读取 -> 文档列还原验证
 * @rules 覆盖 JSONB 标签与元数据列的存取还原
 * @dependencies testing, github.com/stretchr/testify/assert
 * @refs service/models/survey.go, service/models/jsonb.go
 */

package models_test

import (
	"testing"

	"surveyhub-service/service/models"
	"surveyhub-service/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSurveyDocumentColumns 测试问卷标签与元数据列的落库还原
func TestSurveyDocumentColumns(t *testing.T) {
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)
	factory := testutil.NewTestDataFactory(tdb.DB)

	created := factory.CreateSurvey(func(s *models.Survey) {
		s.Tags = models.JSONBStringArray{"满意度", "2026"}
		s.Metadata = models.JSONB{"owner": "研究部", "wave": float64(3)}
	})

	var stored models.Survey
	require.NoError(t, tdb.DB.First(&stored, "id = ?", created.ID).Error)
	assert.Equal(t, models.JSONBStringArray{"满意度", "2026"}, stored.Tags)
	assert.Equal(t, "研究部", stored.Metadata["owner"])
	assert.Equal(t, float64(3), stored.Metadata["wave"])
}

// TestSurveyDocumentColumnsEmpty 测试未设置文档列时读回为空
func TestSurveyDocumentColumnsEmpty(t *testing.T) {
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)
	factory := testutil.NewTestDataFactory(tdb.DB)

	created := factory.CreateSurvey()

	var stored models.Survey
	require.NoError(t, tdb.DB.First(&stored, "id = ?", created.ID).Error)
	assert.Empty(t, stored.Tags)
	assert.Empty(t, stored.Metadata)
}
