/*
 * @module service/cleaned_store/store_test
 * @description 清洗输出存储测试文件
 * @architecture 测试层
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow 测试用例 -> 代次写入/查询 -> 结果验证
 * @rules 覆盖原子写入、代次取代链、内容哈希确定性与就绪查询
 * @dependencies testing, github.com/stretchr/testify/assert
 * @refs service/cleaned_store/store.go
 */

package cleaned_store

import (
	"os"
	"testing"

	"surveyhub-service/service/models"
	"surveyhub-service/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newStoreFixture 构造测试用清洗输出存储
func newStoreFixture(t *testing.T) (*Store, *testutil.TestDataFactory) {
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)
	return NewStore(tdb.DB, t.TempDir()), testutil.NewTestDataFactory(tdb.DB)
}

func sampleRecords(surveyID string) []models.CleanedRecord {
	return []models.CleanedRecord{
		{RowIndex: 0, SurveyID: surveyID, Fields: map[string]interface{}{"name": "Alice", "age": float64(30)}},
		{RowIndex: 1, SurveyID: surveyID, Fields: map[string]interface{}{"name": "Bob", "age": float64(42)}},
	}
}

// TestWriteGenerationRoundTrip 测试代次写入与读取
func TestWriteGenerationRoundTrip(t *testing.T) {
	store, factory := newStoreFixture(t)

	survey := factory.CreateSurvey()
	upload := factory.CreateUpload(t, survey.ID, "answers.csv", []byte("name,age\nAlice,30\nBob,42\n"))
	job := factory.CreateJob(upload.ID, survey.ID, models.JobStateCleaning)

	generation, err := store.WriteGeneration(job, sampleRecords(survey.ID))
	require.NoError(t, err)

	assert.Equal(t, 2, generation.RecordCount)
	assert.Len(t, generation.ContentHash, 64)
	assert.False(t, generation.Superseded)

	latest, records, err := store.GetLatest(upload.ID)
	require.NoError(t, err)
	assert.Equal(t, generation.ID, latest.ID)
	require.Len(t, records, 2)
	assert.Equal(t, "Alice", records[0].Fields["name"])
	assert.Equal(t, float64(42), records[1].Fields["age"])
}

// TestWriteGenerationSupersedes 测试新代次取代旧代次
func TestWriteGenerationSupersedes(t *testing.T) {
	store, factory := newStoreFixture(t)

	survey := factory.CreateSurvey()
	upload := factory.CreateUpload(t, survey.ID, "answers.csv", []byte("name,age\nAlice,30\n"))

	firstJob := factory.CreateJob(upload.ID, survey.ID, models.JobStateCleaning)
	first, err := store.WriteGeneration(firstJob, sampleRecords(survey.ID))
	require.NoError(t, err)

	secondJob := factory.CreateJob(upload.ID, survey.ID, models.JobStateCleaning)
	second, err := store.WriteGeneration(secondJob, sampleRecords(survey.ID)[:1])
	require.NoError(t, err)

	latest, records, err := store.GetLatest(upload.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Len(t, records, 1)

	// 旧代次进入取代链，文件保留待保留策略清理
	superseded, err := store.ListSuperseded()
	require.NoError(t, err)
	require.Len(t, superseded, 1)
	assert.Equal(t, first.ID, superseded[0].ID)

	_, statErr := os.Stat(first.StoragePath)
	assert.NoError(t, statErr)
}

// TestWriteGenerationDeterministicHash 测试相同记录序列产出相同内容哈希
func TestWriteGenerationDeterministicHash(t *testing.T) {
	store, factory := newStoreFixture(t)

	survey := factory.CreateSurvey()
	upload := factory.CreateUpload(t, survey.ID, "answers.csv", []byte("name,age\nAlice,30\n"))

	firstJob := factory.CreateJob(upload.ID, survey.ID, models.JobStateCleaning)
	first, err := store.WriteGeneration(firstJob, sampleRecords(survey.ID))
	require.NoError(t, err)

	secondJob := factory.CreateJob(upload.ID, survey.ID, models.JobStateCleaning)
	second, err := store.WriteGeneration(secondJob, sampleRecords(survey.ID))
	require.NoError(t, err)

	assert.Equal(t, first.ContentHash, second.ContentHash)
}

// TestGetLatestNotReady 测试没有代次时返回未就绪
func TestGetLatestNotReady(t *testing.T) {
	store, _ := newStoreFixture(t)

	_, _, err := store.GetLatest("missing-upload")
	assert.ErrorIs(t, err, models.ErrCleanedNotReady)
}
