/*
 * @module service/processing/job_tracker_test
 * @description 作业跟踪器测试文件
 * @architecture 测试层
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow 测试用例 -> 准入/转换/终态 -> 结果验证
 * @rules 覆盖单飞准入、CAS状态转换、协作取消与历史查询
 * @dependencies testing, github.com/stretchr/testify/assert
 * @refs service/processing/job_tracker.go
 */

package processing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"surveyhub-service/service/models"
	"surveyhub-service/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTrackerFixture 构造测试用作业跟踪器
func newTrackerFixture(t *testing.T) (*JobTracker, *testutil.TestDataFactory) {
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)
	return NewJobTracker(tdb.DB, nil), testutil.NewTestDataFactory(tdb.DB)
}

// TestAdmitSingleFlight 测试同一上传同一时刻至多一个作业
func TestAdmitSingleFlight(t *testing.T) {
	tracker, factory := newTrackerFixture(t)

	survey := factory.CreateSurvey()
	upload := factory.CreateUpload(t, survey.ID, "answers.csv", []byte("name\nAlice\n"))

	job, jobCtx, err := tracker.Admit(context.Background(), upload)
	require.NoError(t, err)
	require.NotNil(t, jobCtx)
	assert.Equal(t, models.JobStatePending, job.State)
	assert.Equal(t, 1, job.Attempt)

	// 作业进行中再次准入被拒绝
	_, _, err = tracker.Admit(context.Background(), upload)
	assert.ErrorIs(t, err, models.ErrAlreadyProcessing)
}

// TestAdmitConcurrentSingleFlight 测试并发提交下恰好一个作业被准入
func TestAdmitConcurrentSingleFlight(t *testing.T) {
	tracker, factory := newTrackerFixture(t)

	survey := factory.CreateSurvey()
	upload := factory.CreateUpload(t, survey.ID, "answers.csv", []byte("name\nAlice\n"))

	const submitters = 16
	var wg sync.WaitGroup
	var admitted, rejected int32

	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := tracker.Admit(context.Background(), upload)
			switch {
			case err == nil:
				atomic.AddInt32(&admitted, 1)
			case errors.Is(err, models.ErrAlreadyProcessing):
				atomic.AddInt32(&rejected, 1)
			default:
				t.Errorf("并发准入返回未预期错误: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&admitted))
	assert.Equal(t, int32(submitters-1), atomic.LoadInt32(&rejected))

	// 仲裁区中只有一个进行中作业
	job, err := tracker.GetStatus(upload.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatePending, job.State)
	assert.Equal(t, 1, job.Attempt)
}

// TestAdmitAfterFinish 测试终态后可重新准入，尝试次数递增
func TestAdmitAfterFinish(t *testing.T) {
	tracker, factory := newTrackerFixture(t)

	survey := factory.CreateSurvey()
	upload := factory.CreateUpload(t, survey.ID, "answers.csv", []byte("name\nAlice\n"))

	job, _, err := tracker.Admit(context.Background(), upload)
	require.NoError(t, err)
	require.NoError(t, tracker.Transition(job, models.JobStatePending, models.JobStateValidating, ""))
	require.NoError(t, tracker.Transition(job, models.JobStateValidating, models.JobStateFailed, models.ReasonNoEligibleRows))
	tracker.Finish(context.Background(), job)

	second, _, err := tracker.Admit(context.Background(), upload)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Attempt)
}

// TestTransitionCAS 测试期望状态不匹配时报内部不变量错误
func TestTransitionCAS(t *testing.T) {
	tracker, factory := newTrackerFixture(t)

	survey := factory.CreateSurvey()
	upload := factory.CreateUpload(t, survey.ID, "answers.csv", []byte("name\nAlice\n"))

	job, _, err := tracker.Admit(context.Background(), upload)
	require.NoError(t, err)

	require.NoError(t, tracker.Transition(job, models.JobStatePending, models.JobStateValidating, ""))
	assert.NotNil(t, job.StartedAt)

	// 作业已不在 PENDING，重复转换违反不变量
	err = tracker.Transition(job, models.JobStatePending, models.JobStateValidating, "")
	assert.ErrorIs(t, err, models.ErrInternalInvariant)
}

// TestTransitionTerminalSetsFinishedAt 测试进入终态写入完成时间
func TestTransitionTerminalSetsFinishedAt(t *testing.T) {
	tracker, factory := newTrackerFixture(t)

	survey := factory.CreateSurvey()
	upload := factory.CreateUpload(t, survey.ID, "answers.csv", []byte("name\nAlice\n"))

	job, _, err := tracker.Admit(context.Background(), upload)
	require.NoError(t, err)
	require.NoError(t, tracker.Transition(job, models.JobStatePending, models.JobStateValidating, ""))
	require.NoError(t, tracker.Transition(job, models.JobStateValidating, models.JobStateCleaning, ""))
	require.NoError(t, tracker.Transition(job, models.JobStateCleaning, models.JobStateCompleted, ""))

	assert.NotNil(t, job.FinishedAt)

	stored, err := tracker.GetStatus(upload.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStateCompleted, stored.State)
}

// TestCancelActiveJob 测试取消在行间协作生效
func TestCancelActiveJob(t *testing.T) {
	tracker, factory := newTrackerFixture(t)

	survey := factory.CreateSurvey()
	upload := factory.CreateUpload(t, survey.ID, "answers.csv", []byte("name\nAlice\n"))

	_, jobCtx, err := tracker.Admit(context.Background(), upload)
	require.NoError(t, err)

	require.NoError(t, tracker.Cancel(upload.ID))

	select {
	case <-jobCtx.Done():
	default:
		t.Fatal("取消后作业上下文应已关闭")
	}
}

// TestCancelWithoutActiveJob 测试无进行中作业时取消报错
func TestCancelWithoutActiveJob(t *testing.T) {
	tracker, _ := newTrackerFixture(t)

	err := tracker.Cancel("missing-upload")
	assert.ErrorIs(t, err, models.ErrUnknownUpload)
}

// TestGetStatusUnknownUpload 测试未知上传查询
func TestGetStatusUnknownUpload(t *testing.T) {
	tracker, _ := newTrackerFixture(t)

	_, err := tracker.GetStatus("missing-upload")
	assert.ErrorIs(t, err, models.ErrUnknownUpload)
}

// TestHistoryOrder 测试历史作业按创建时间倒序
func TestHistoryOrder(t *testing.T) {
	tracker, factory := newTrackerFixture(t)

	survey := factory.CreateSurvey()
	upload := factory.CreateUpload(t, survey.ID, "answers.csv", []byte("name\nAlice\n"))

	first, _, err := tracker.Admit(context.Background(), upload)
	require.NoError(t, err)
	require.NoError(t, tracker.Transition(first, models.JobStatePending, models.JobStateValidating, ""))
	require.NoError(t, tracker.Transition(first, models.JobStateValidating, models.JobStateFailed, models.ReasonCancelled))
	tracker.Finish(context.Background(), first)

	second, _, err := tracker.Admit(context.Background(), upload)
	require.NoError(t, err)

	jobs, err := tracker.History(upload.ID)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, second.ID, jobs[0].ID)
	assert.Equal(t, first.ID, jobs[1].ID)
}
