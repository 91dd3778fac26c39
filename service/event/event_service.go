/*
 * @module service/event/event_service
 * @description 事件管理服务，向 SSE 客户端推送作业生命周期事件，并可选地写入 Kafka 供下游消费
 * @architecture 事件驱动架构 - 业务服务层
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow 作业状态变化 -> 事件分发 -> SSE 推送 / Kafka 写入
 * @rules 事件推送尽力而为，队列满时丢弃不阻塞流水线；Kafka 未配置时静默跳过
 * @dependencies github.com/segmentio/kafka-go, surveyhub-service/service/models
 * @refs service/processing/processor.go, api/controllers/event_controller.go
 */

package event

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"surveyhub-service/service/models"

	"github.com/segmentio/kafka-go"
)

// SSEClient SSE客户端连接
type SSEClient struct {
	ID       string
	UserName string
	Channel  chan *models.PipelineEvent
	Done     chan bool
	ClientIP string
}

// Service 事件管理服务
type Service struct {
	connections map[string]map[string]*SSEClient // userName -> connectionID -> client
	mu          sync.RWMutex
	writer      *kafka.Writer
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewService 创建事件服务实例
// KAFKA_BROKERS 未配置时只做 SSE 推送
func NewService() *Service {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Service{
		connections: make(map[string]map[string]*SSEClient),
		ctx:         ctx,
		cancel:      cancel,
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		topic := os.Getenv("KAFKA_TOPIC")
		if topic == "" {
			topic = "survey-pipeline-events"
		}
		s.writer = &kafka.Writer{
			Addr:         kafka.TCP(strings.Split(brokers, ",")...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 100 * time.Millisecond,
			Async:        true,
		}
		slog.Info("Kafka事件写入已启用", "brokers", brokers, "topic", topic)
	}

	go s.startConnectionCleaner()
	return s
}

// AddSSEConnection 添加SSE连接
func (s *Service) AddSSEConnection(userName, connectionID, clientIP string) *SSEClient {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connections[userName] == nil {
		s.connections[userName] = make(map[string]*SSEClient)
	}

	client := &SSEClient{
		ID:       connectionID,
		UserName: userName,
		Channel:  make(chan *models.PipelineEvent, 100),
		Done:     make(chan bool),
		ClientIP: clientIP,
	}
	s.connections[userName][connectionID] = client

	slog.Info("SSE连接已建立", "user", userName, "connection_id", connectionID, "ip", clientIP)
	return client
}

// RemoveSSEConnection 移除SSE连接
func (s *Service) RemoveSSEConnection(userName, connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if userConnections, exists := s.connections[userName]; exists {
		if client, exists := userConnections[connectionID]; exists {
			close(client.Done)
			delete(userConnections, connectionID)
			if len(userConnections) == 0 {
				delete(s.connections, userName)
			}
			slog.Info("SSE连接已断开", "user", userName, "connection_id", connectionID)
		}
	}
}

// PublishJobEvent 发布作业生命周期事件
// 广播给全部 SSE 客户端，并在配置了 Kafka 时异步写入
func (s *Service) PublishJobEvent(event models.PipelineEvent) {
	s.mu.RLock()
	for _, userConnections := range s.connections {
		for _, client := range userConnections {
			eventCopy := event
			select {
			case client.Channel <- &eventCopy:
			default:
				slog.Warn("SSE事件队列已满，跳过推送", "user", client.UserName, "connection_id", client.ID)
			}
		}
	}
	s.mu.RUnlock()

	if s.writer == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("序列化作业事件失败", "error", err)
		return
	}
	if err := s.writer.WriteMessages(s.ctx, kafka.Message{
		Key:   []byte(event.UploadID),
		Value: payload,
	}); err != nil {
		slog.Warn("写入Kafka事件失败", "upload_id", event.UploadID, "error", err)
	}
}

// startConnectionCleaner 定期清理已断开的连接
func (s *Service) startConnectionCleaner() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanupInactiveConnections()
		case <-s.ctx.Done():
			return
		}
	}
}

// cleanupInactiveConnections 清理不活跃的连接
func (s *Service) cleanupInactiveConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for userName, userConnections := range s.connections {
		for connectionID, client := range userConnections {
			select {
			case <-client.Done:
				delete(userConnections, connectionID)
				slog.Info("清理已断开的连接", "user", userName, "connection_id", connectionID)
			default:
			}
		}
		if len(userConnections) == 0 {
			delete(s.connections, userName)
		}
	}
}

// Stop 停止事件服务
func (s *Service) Stop() {
	s.cancel()

	if s.writer != nil {
		if err := s.writer.Close(); err != nil {
			slog.Warn("关闭Kafka写入器失败", "error", err)
		}
	}

	s.mu.Lock()
	for _, userConnections := range s.connections {
		for _, client := range userConnections {
			close(client.Done)
		}
	}
	s.connections = make(map[string]map[string]*SSEClient)
	s.mu.Unlock()

	slog.Info("事件服务已停止")
}
