/*
 * @module service/schema_registry/registry_test
 * @description 字段模式注册表测试文件
 * @architecture 测试层
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow 测试用例 -> 模式注册/查询 -> 结果验证
 * @rules 覆盖缓存回源、版本自增与缓存失效
 * @dependencies testing, github.com/stretchr/testify/assert
 * @refs service/schema_registry/registry.go
 */

package schema_registry

import (
	"testing"

	"surveyhub-service/service/models"
	"surveyhub-service/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRegistryFixture 构造测试用模式注册表
func newRegistryFixture(t *testing.T) (*Registry, *testutil.TestDataFactory) {
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)
	return NewRegistry(tdb.DB), testutil.NewTestDataFactory(tdb.DB)
}

// TestGetSchemaNotFound 测试问卷缺少字段模式
func TestGetSchemaNotFound(t *testing.T) {
	registry, _ := newRegistryFixture(t)

	_, err := registry.GetSchema("missing-survey")
	assert.ErrorIs(t, err, models.ErrSchemaNotFound)
}

// TestGetSchemaCached 测试查询结果进入缓存
func TestGetSchemaCached(t *testing.T) {
	registry, factory := newRegistryFixture(t)

	survey := factory.CreateSurvey()
	factory.CreateSchema(survey.ID)

	first, err := registry.GetSchema(survey.ID)
	require.NoError(t, err)

	// 第二次查询命中缓存，返回同一实例
	second, err := registry.GetSchema(survey.ID)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

// TestSaveSchemaCreatesFirstVersion 测试首次注册版本为1
func TestSaveSchemaCreatesFirstVersion(t *testing.T) {
	registry, factory := newRegistryFixture(t)

	survey := factory.CreateSurvey()
	schema := &models.SurveySchema{
		SurveyID: survey.ID,
		Fields: models.FieldSchemaList{
			{Name: "name", Type: models.FieldTypeText, Required: true},
		},
	}

	require.NoError(t, registry.SaveSchema(schema))
	assert.Equal(t, 1, schema.Version)

	stored, err := registry.GetSchema(survey.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version)
	require.Len(t, stored.Fields, 1)
	assert.Equal(t, "name", stored.Fields[0].Name)
}

// TestSaveSchemaIncrementsVersion 测试更新时版本自增并失效缓存
func TestSaveSchemaIncrementsVersion(t *testing.T) {
	registry, factory := newRegistryFixture(t)

	survey := factory.CreateSurvey()
	factory.CreateSchema(survey.ID)

	// 预热缓存
	cached, err := registry.GetSchema(survey.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cached.Version)

	updated := &models.SurveySchema{
		SurveyID: survey.ID,
		Fields: models.FieldSchemaList{
			{Name: "name", Type: models.FieldTypeText, Required: true},
			{Name: "email", Type: models.FieldTypeText, Constraints: []models.Constraint{
				{Kind: models.ConstraintEmail},
			}},
		},
	}
	require.NoError(t, registry.SaveSchema(updated))
	assert.Equal(t, 2, updated.Version)

	// 缓存已失效，回源读到新版本
	reloaded, err := registry.GetSchema(survey.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Version)
	assert.Len(t, reloaded.Fields, 2)
}
