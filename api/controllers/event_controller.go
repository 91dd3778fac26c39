/*
 * @module api/controllers/event_controller
 * @description 事件控制器，提供SSE连接建立与作业事件实时推送
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow 连接建立 -> 事件推送 -> 连接断开清理
 * @rules SSE连接按用户名分组，断开时必须移除连接
 * @dependencies surveyhub-service/service, github.com/go-chi/chi/v5, github.com/google/uuid
 * @refs api/routes.go, service/event/event_service.go
 */

package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"surveyhub-service/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// EventController 事件控制器
type EventController struct{}

// NewEventController 创建事件控制器实例
func NewEventController() *EventController {
	return &EventController{}
}

// HandleSSE 处理SSE连接
// @Summary 建立SSE连接
// @Description 前端页面通过此接口建立SSE连接，接收作业生命周期事件推送
// @Tags 事件管理
// @Param user_name path string true "用户名"
// @Success 200 {string} string "SSE事件流"
// @Router /sse/{user_name} [get]
func (c *EventController) HandleSSE(w http.ResponseWriter, r *http.Request) {
	userName := chi.URLParam(r, "user_name")
	if userName == "" {
		http.Error(w, "用户名不能为空", http.StatusBadRequest)
		return
	}

	// 设置SSE响应头
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Cache-Control")

	connectionID := uuid.New().String()
	clientIP := r.RemoteAddr
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		clientIP = forwarded
	}

	client := service.GlobalEventService.AddSSEConnection(userName, connectionID, clientIP)
	defer service.GlobalEventService.RemoveSSEConnection(userName, connectionID)

	// 发送连接成功事件
	fmt.Fprintf(w, "data: {\"type\":\"connected\",\"connection_id\":\"%s\",\"timestamp\":\"%s\"}\n\n",
		connectionID, time.Now().Format(time.RFC3339))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	for {
		select {
		case event := <-client.Channel:
			fmt.Fprintf(w, "data: %s\n\n", toJSON(event))

			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}

		case <-client.Done:
			return

		case <-r.Context().Done():
			return
		}
	}
}

// toJSON 将对象转换为JSON字符串
func toJSON(v interface{}) string {
	data, _ := json.Marshal(v)
	return string(data)
}
