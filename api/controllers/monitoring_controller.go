/*
 * @module api/controllers/monitoring_controller
 * @description 监控控制器，提供运行时指标快照查询
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow HTTP请求 -> 指标收集 -> 响应返回
 * @rules Prometheus指标通过 /metrics 暴露，此处仅提供人读快照
 * @dependencies surveyhub-service/service, github.com/go-chi/render
 * @refs api/routes.go, service/monitoring/metrics_collector.go
 */

package controllers

import (
	"net/http"

	"surveyhub-service/service"

	"github.com/go-chi/render"
)

// MonitoringController 监控控制器
type MonitoringController struct{}

// NewMonitoringController 创建监控控制器实例
func NewMonitoringController() *MonitoringController {
	return &MonitoringController{}
}

// GetRuntimeMetrics 获取运行时指标快照
// @Summary 获取运行时指标
// @Description 获取服务进程的运行时指标快照
// @Tags 监控管理
// @Produce json
// @Success 200 {object} APIResponse{data=monitoring.RuntimeSnapshot}
// @Router /monitoring/runtime [get]
func (c *MonitoringController) GetRuntimeMetrics(w http.ResponseWriter, r *http.Request) {
	snapshot := service.GlobalMetricsCollector.CollectRuntimeSnapshot()
	render.JSON(w, r, SuccessResponse("获取运行时指标成功", snapshot))
}
