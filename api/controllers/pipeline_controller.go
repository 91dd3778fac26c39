/*
 * @module api/controllers/pipeline_controller
 * @description 流水线控制器，提供处理提交、状态查询、验证报告、清洗数据与取消API
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow HTTP请求 -> 流水线处理器 -> 响应返回
 * @rules 提交为异步操作，立即返回作业；同一上传重复提交返回409
 * @dependencies surveyhub-service/service, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs api/routes.go, service/processing/processor.go
 */

package controllers

import (
	"net/http"

	"surveyhub-service/service"
	"surveyhub-service/service/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// PipelineController 流水线控制器
type PipelineController struct{}

// NewPipelineController 创建流水线控制器实例
func NewPipelineController() *PipelineController {
	return &PipelineController{}
}

// SubmitRequest 处理提交请求
type SubmitRequest struct {
	UploadID string `json:"upload_id" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// Submit 提交处理运行
// @Summary 提交处理运行
// @Description 对指定上传启动一次验证清洗运行，异步执行，立即返回作业
// @Tags 流水线
// @Accept json
// @Produce json
// @Param request body SubmitRequest true "提交请求"
// @Success 200 {object} APIResponse{data=models.ProcessingJob}
// @Failure 404 {object} APIResponse
// @Failure 409 {object} APIResponse
// @Router /pipeline/submit [post]
func (c *PipelineController) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}
	if req.UploadID == "" {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "上传标识不能为空", nil))
		return
	}

	job, err := service.GlobalProcessor.Submit(req.UploadID)
	if err != nil {
		render.Render(w, r, ErrorResponse(statusForError(err), "提交处理失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("处理已提交", job))
}

// GetStatus 查询作业状态
// @Summary 查询作业状态
// @Description 获取上传最近一次处理作业的状态
// @Tags 流水线
// @Produce json
// @Param uploadId path string true "上传ID"
// @Success 200 {object} APIResponse{data=models.ProcessingJob}
// @Failure 404 {object} APIResponse
// @Router /pipeline/status/{uploadId} [get]
func (c *PipelineController) GetStatus(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "uploadId")

	job, err := service.GlobalProcessor.GetStatus(uploadID)
	if err != nil {
		render.Render(w, r, ErrorResponse(statusForError(err), "查询作业状态失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("获取作业状态成功", job))
}

// GetReport 查询验证报告
// @Summary 查询验证报告
// @Description 获取上传最近一次运行的验证报告，含问题列表与质量评分
// @Tags 流水线
// @Produce json
// @Param uploadId path string true "上传ID"
// @Success 200 {object} APIResponse{data=models.ValidationReport}
// @Failure 404 {object} APIResponse
// @Router /pipeline/report/{uploadId} [get]
func (c *PipelineController) GetReport(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "uploadId")

	report, err := service.GlobalProcessor.GetReport(uploadID)
	if err != nil {
		render.Render(w, r, ErrorResponse(statusForError(err), "查询验证报告失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("获取验证报告成功", report))
}

// CleanedDataResponse 清洗数据响应
type CleanedDataResponse struct {
	Generation *models.CleanedGeneration `json:"generation"`
	Records    []models.CleanedRecord    `json:"records"`
}

// GetCleanedData 查询清洗数据
// @Summary 查询清洗数据
// @Description 分页获取上传当前代次的清洗记录
// @Tags 流水线
// @Produce json
// @Param uploadId path string true "上传ID"
// @Param page query int false "页码" default(1)
// @Param size query int false "每页数量" default(10)
// @Success 200 {object} PaginatedResponse{data=CleanedDataResponse}
// @Failure 404 {object} APIResponse
// @Router /pipeline/cleaned/{uploadId} [get]
func (c *PipelineController) GetCleanedData(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "uploadId")
	page, size := parsePagination(r)

	generation, records, err := service.GlobalProcessor.GetCleanedData(uploadID)
	if err != nil {
		render.Render(w, r, ErrorResponse(statusForError(err), "查询清洗数据失败", err))
		return
	}

	total := int64(len(records))
	start := (page - 1) * size
	if start > len(records) {
		start = len(records)
	}
	end := start + size
	if end > len(records) {
		end = len(records)
	}

	data := CleanedDataResponse{
		Generation: generation,
		Records:    records[start:end],
	}
	render.JSON(w, r, PaginatedSuccessResponse("获取清洗数据成功", data, total, page, size))
}

// Cancel 取消处理
// @Summary 取消处理
// @Description 请求取消上传的进行中作业，取消为协作式，在行与行之间生效
// @Tags 流水线
// @Produce json
// @Param uploadId path string true "上传ID"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /pipeline/cancel/{uploadId} [post]
func (c *PipelineController) Cancel(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "uploadId")

	if err := service.GlobalProcessor.Cancel(uploadID); err != nil {
		render.Render(w, r, ErrorResponse(statusForError(err), "取消处理失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("取消请求已登记", nil))
}

// GetJobHistory 查询作业历史
// @Summary 查询作业历史
// @Description 列出上传的全部历史处理作业
// @Tags 流水线
// @Produce json
// @Param uploadId path string true "上传ID"
// @Success 200 {object} APIResponse{data=[]models.ProcessingJob}
// @Router /pipeline/jobs/{uploadId} [get]
func (c *PipelineController) GetJobHistory(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "uploadId")

	jobs, err := service.GlobalProcessor.History(uploadID)
	if err != nil {
		render.Render(w, r, ErrorResponse(statusForError(err), "查询作业历史失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("获取作业历史成功", jobs))
}
