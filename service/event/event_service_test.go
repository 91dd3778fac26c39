/*
 * @module service/event/event_service_test
 * @description 事件管理服务测试文件
 * @architecture 测试层
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow 测试用例 -> 连接管理/事件广播 -> 结果验证
 * @rules 覆盖SSE连接生命周期与非阻塞广播
 * @dependencies testing, github.com/stretchr/testify/assert
 * @refs service/event/event_service.go
 */

package event

import (
	"testing"
	"time"

	"surveyhub-service/service/models"

	"github.com/stretchr/testify/assert"
)

// TestPublishJobEventBroadcast 测试事件广播到全部SSE连接
func TestPublishJobEventBroadcast(t *testing.T) {
	service := NewService()
	t.Cleanup(service.Stop)

	first := service.AddSSEConnection("admin", "conn-1", "127.0.0.1")
	second := service.AddSSEConnection("viewer", "conn-2", "127.0.0.1")

	service.PublishJobEvent(models.PipelineEvent{
		Type:      "job_admitted",
		UploadID:  "upload-1",
		JobID:     "job-1",
		State:     models.JobStatePending,
		Timestamp: time.Now(),
	})

	for _, client := range []*SSEClient{first, second} {
		select {
		case event := <-client.Channel:
			assert.Equal(t, "job_admitted", event.Type)
			assert.Equal(t, "upload-1", event.UploadID)
		case <-time.After(time.Second):
			t.Fatalf("连接 %s 未收到事件", client.ID)
		}
	}
}

// TestPublishJobEventFullQueue 测试队列满时丢弃事件不阻塞
func TestPublishJobEventFullQueue(t *testing.T) {
	service := NewService()
	t.Cleanup(service.Stop)

	service.AddSSEConnection("admin", "conn-1", "127.0.0.1")

	// 超出队列容量的广播不得阻塞
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			service.PublishJobEvent(models.PipelineEvent{Type: "state_changed", UploadID: "upload-1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("广播在队列满时发生阻塞")
	}
}

// TestRemoveSSEConnection 测试移除连接关闭Done通道
func TestRemoveSSEConnection(t *testing.T) {
	service := NewService()
	t.Cleanup(service.Stop)

	client := service.AddSSEConnection("admin", "conn-1", "127.0.0.1")
	service.RemoveSSEConnection("admin", "conn-1")

	select {
	case <-client.Done:
	case <-time.After(time.Second):
		t.Fatal("移除连接后Done通道未关闭")
	}

	// 重复移除是安全的
	service.RemoveSSEConnection("admin", "conn-1")

	// 已移除的连接不再收到事件
	service.PublishJobEvent(models.PipelineEvent{Type: "job_finished", UploadID: "upload-1"})
	select {
	case event := <-client.Channel:
		t.Fatalf("已移除的连接不应收到事件: %v", event.Type)
	default:
	}
}
