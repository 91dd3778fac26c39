/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs main.go
 */

package api

import (
	"surveyhub-service/api/controllers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 健康检查
	healthController := controllers.NewHealthController()
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// SSE事件订阅
	eventController := controllers.NewEventController()
	r.Get("/sse/{user_name}", eventController.HandleSSE)

	// 问卷与上传管理
	r.Route("/surveys", func(r chi.Router) {
		surveyController := controllers.NewSurveyController()

		r.Post("/", surveyController.CreateSurvey)
		r.Get("/", surveyController.GetSurveys)
		r.Get("/{id}", surveyController.GetSurvey)
		r.Post("/{id}/archive", surveyController.ArchiveSurvey)

		// 原始文件上传接收
		r.Post("/{id}/uploads", surveyController.ReceiveUpload)
		r.Get("/{id}/uploads", surveyController.ListUploads)
	})

	// 字段模式管理
	r.Route("/schemas", func(r chi.Router) {
		schemaController := controllers.NewSchemaController()

		r.Get("/{surveyId}", schemaController.GetSchema)
		r.Put("/{surveyId}", schemaController.SaveSchema)
	})

	// 处理流水线
	r.Route("/pipeline", func(r chi.Router) {
		pipelineController := controllers.NewPipelineController()

		r.Post("/submit", pipelineController.Submit)
		r.Get("/status/{uploadId}", pipelineController.GetStatus)
		r.Get("/report/{uploadId}", pipelineController.GetReport)
		r.Get("/cleaned/{uploadId}", pipelineController.GetCleanedData)
		r.Post("/cancel/{uploadId}", pipelineController.Cancel)
		r.Get("/jobs/{uploadId}", pipelineController.GetJobHistory)
	})

	// 监控管理
	r.Route("/monitoring", func(r chi.Router) {
		monitoringController := controllers.NewMonitoringController()

		r.Get("/runtime", monitoringController.GetRuntimeMetrics)
	})
}
