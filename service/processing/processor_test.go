/*
 * @module service/processing/processor_test
 * @description 流水线处理器集成测试文件
 * @architecture 测试层
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow 提交 -> 轮询状态 -> 报告/清洗数据验证
 * @rules 覆盖完整成功路径、失败终态、未知上传与就绪查询
 * @dependencies testing, github.com/stretchr/testify/assert
 * @refs service/processing/processor.go
 */

package processing

import (
	"testing"
	"time"

	"surveyhub-service/service/cleaned_store"
	"surveyhub-service/service/event"
	"surveyhub-service/service/models"
	"surveyhub-service/service/monitoring"
	"surveyhub-service/service/schema_registry"
	"surveyhub-service/service/upload_store"
	"surveyhub-service/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Prometheus 指标注册为进程级单例，全包共享一个采集器
var (
	testMetrics = monitoring.NewMetricsCollector()
	testEvents  = event.NewService()
)

// newProcessorFixture 构造完整的处理器测试环境
func newProcessorFixture(t *testing.T) (*Processor, *testutil.TestDataFactory) {
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)

	uploads := upload_store.NewStore(tdb.DB, t.TempDir())
	cleaned := cleaned_store.NewStore(tdb.DB, t.TempDir())
	registry := schema_registry.NewRegistry(tdb.DB)
	tracker := NewJobTracker(tdb.DB, nil)

	processor := NewProcessor(tdb.DB, uploads, cleaned, registry, tracker, testEvents, testMetrics, 2)
	t.Cleanup(processor.Stop)

	return processor, testutil.NewTestDataFactory(tdb.DB)
}

// waitForTerminal 轮询等待作业进入终态
func waitForTerminal(t *testing.T, processor *Processor, uploadID string) *models.ProcessingJob {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, err := processor.GetStatus(uploadID)
		require.NoError(t, err)
		if job != nil && job.State.Terminal() {
			return job
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("作业未在预期时间内进入终态")
	return nil
}

// TestProcessorCompletesRun 测试完整成功路径
func TestProcessorCompletesRun(t *testing.T) {
	processor, factory := newProcessorFixture(t)

	survey := factory.CreateSurvey()
	factory.CreateSchema(survey.ID)

	content := []byte("name,age,submitted\n" +
		"Alice,30,2026-01-15\n" +
		"Bob,42,2026/02/20\n")
	upload := factory.CreateUpload(t, survey.ID, "answers.csv", content)

	job, err := processor.Submit(upload.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatePending, job.State)

	final := waitForTerminal(t, processor, upload.ID)
	assert.Equal(t, models.JobStateCompleted, final.State)

	report, err := processor.GetReport(upload.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalRows)
	assert.Equal(t, 2, report.EligibleRows)

	generation, records, err := processor.GetCleanedData(upload.ID)
	require.NoError(t, err)
	assert.Equal(t, final.ID, generation.JobID)
	assert.Len(t, records, 2)
	// 日期被规范为 ISO 形式
	assert.Equal(t, "2026-02-20", records[1].Fields["submitted"])
}

// TestProcessorFailsWithoutEligibleRows 测试全部行致命时进入失败终态
func TestProcessorFailsWithoutEligibleRows(t *testing.T) {
	processor, factory := newProcessorFixture(t)

	survey := factory.CreateSurvey()
	factory.CreateSchema(survey.ID)

	// 两行均缺失必填 name
	content := []byte("age\n30\n42\n")
	upload := factory.CreateUpload(t, survey.ID, "answers.csv", content)

	_, err := processor.Submit(upload.ID)
	require.NoError(t, err)

	final := waitForTerminal(t, processor, upload.ID)
	assert.Equal(t, models.JobStateFailed, final.State)
	assert.Equal(t, models.ReasonNoEligibleRows, final.Reason)

	// 报告在失败前已持久化
	report, err := processor.GetReport(upload.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, report.EligibleRows)

	// 清洗数据不存在
	_, _, err = processor.GetCleanedData(upload.ID)
	assert.ErrorIs(t, err, models.ErrCleanedNotReady)
}

// TestProcessorFailsWithoutSchema 测试问卷缺少字段模式时失败
func TestProcessorFailsWithoutSchema(t *testing.T) {
	processor, factory := newProcessorFixture(t)

	survey := factory.CreateSurvey()
	upload := factory.CreateUpload(t, survey.ID, "answers.csv", []byte("name\nAlice\n"))

	_, err := processor.Submit(upload.ID)
	require.NoError(t, err)

	final := waitForTerminal(t, processor, upload.ID)
	assert.Equal(t, models.JobStateFailed, final.State)
	assert.Equal(t, "SchemaNotFound", final.Reason)
}

// TestProcessorRerunSupersedes 测试重跑产生新代次并取代旧代次
func TestProcessorRerunSupersedes(t *testing.T) {
	processor, factory := newProcessorFixture(t)

	survey := factory.CreateSurvey()
	factory.CreateSchema(survey.ID)
	upload := factory.CreateUpload(t, survey.ID, "answers.csv", []byte("name,age\nAlice,30\n"))

	_, err := processor.Submit(upload.ID)
	require.NoError(t, err)
	first := waitForTerminal(t, processor, upload.ID)
	require.Equal(t, models.JobStateCompleted, first.State)

	second, err := processor.Submit(upload.ID)
	require.NoError(t, err)
	final := waitForTerminal(t, processor, upload.ID)
	require.Equal(t, models.JobStateCompleted, final.State)
	assert.Equal(t, second.ID, final.ID)

	generation, _, err := processor.GetCleanedData(upload.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, generation.JobID)
}

// TestProcessorSubmitUnknownUpload 测试未知上传提交
func TestProcessorSubmitUnknownUpload(t *testing.T) {
	processor, _ := newProcessorFixture(t)

	_, err := processor.Submit("missing-upload")
	assert.ErrorIs(t, err, models.ErrUnknownUpload)
}

// TestProcessorQueriesBeforeRun 测试未提交处理时的就绪查询
func TestProcessorQueriesBeforeRun(t *testing.T) {
	processor, factory := newProcessorFixture(t)

	survey := factory.CreateSurvey()
	upload := factory.CreateUpload(t, survey.ID, "answers.csv", []byte("name\nAlice\n"))

	_, err := processor.GetReport(upload.ID)
	assert.ErrorIs(t, err, models.ErrReportNotReady)

	_, _, err = processor.GetCleanedData(upload.ID)
	assert.ErrorIs(t, err, models.ErrCleanedNotReady)

	// 上传存在但从未提交过处理，与未知上传区分
	_, err = processor.GetStatus(upload.ID)
	assert.ErrorIs(t, err, models.ErrJobNotStarted)

	_, err = processor.GetStatus("missing-upload")
	assert.ErrorIs(t, err, models.ErrUnknownUpload)

	_, err = processor.GetReport("missing-upload")
	assert.ErrorIs(t, err, models.ErrUnknownUpload)
}
