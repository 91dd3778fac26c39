/*
 * @module api/controllers/survey_controller
 * @description 问卷管理控制器，提供问卷CRUD、归档与原始文件上传接收API
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow HTTP请求 -> 业务逻辑处理 -> 响应返回
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies surveyhub-service/service, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs api/routes.go, service/upload_store/store.go
 */

package controllers

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"surveyhub-service/service"
	"surveyhub-service/service/models"
	"surveyhub-service/service/rate_limiter"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// maxUploadBytes 单次上传大小上限
const maxUploadBytes = 64 << 20

// 上传限流阈值（每分钟）
const (
	uploadLimitPerSurvey = 30
	uploadLimitGlobal    = 300
)

// SurveyController 问卷管理控制器
type SurveyController struct{}

// NewSurveyController 创建问卷控制器实例
func NewSurveyController() *SurveyController {
	return &SurveyController{}
}

// CreateSurveyRequest 创建问卷请求
type CreateSurveyRequest struct {
	Name        string                 `json:"name" example:"2026年度用户满意度调查"`
	Description string                 `json:"description,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// CreateSurvey 创建问卷
// @Summary 创建问卷
// @Description 创建一个新的调查问卷
// @Tags 问卷管理
// @Accept json
// @Produce json
// @Param request body CreateSurveyRequest true "创建问卷请求"
// @Success 200 {object} APIResponse{data=models.Survey}
// @Failure 400 {object} APIResponse
// @Router /surveys [post]
func (c *SurveyController) CreateSurvey(w http.ResponseWriter, r *http.Request) {
	var req CreateSurveyRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}
	if req.Name == "" {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "问卷名称不能为空", nil))
		return
	}

	survey := &models.Survey{
		Name:        req.Name,
		Description: req.Description,
		Tags:        models.JSONBStringArray(req.Tags),
		Metadata:    models.JSONB(req.Metadata),
	}
	if err := service.DB.Create(survey).Error; err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "创建问卷失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("创建问卷成功", survey))
}

// GetSurveys 获取问卷列表
// @Summary 获取问卷列表
// @Description 分页获取问卷列表
// @Tags 问卷管理
// @Produce json
// @Param page query int false "页码" default(1)
// @Param size query int false "每页数量" default(10)
// @Success 200 {object} PaginatedResponse{data=[]models.Survey}
// @Router /surveys [get]
func (c *SurveyController) GetSurveys(w http.ResponseWriter, r *http.Request) {
	page, size := parsePagination(r)

	var surveys []models.Survey
	var total int64

	query := service.DB.Model(&models.Survey{})
	if err := query.Count(&total).Error; err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "查询问卷总数失败", err))
		return
	}
	if err := query.Order("created_at DESC").
		Offset((page - 1) * size).Limit(size).Find(&surveys).Error; err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "查询问卷列表失败", err))
		return
	}

	render.JSON(w, r, PaginatedSuccessResponse("获取问卷列表成功", surveys, total, page, size))
}

// GetSurvey 获取问卷详情
// @Summary 获取问卷详情
// @Description 按标识获取问卷
// @Tags 问卷管理
// @Produce json
// @Param id path string true "问卷ID"
// @Success 200 {object} APIResponse{data=models.Survey}
// @Failure 404 {object} APIResponse
// @Router /surveys/{id} [get]
func (c *SurveyController) GetSurvey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var survey models.Survey
	if err := service.DB.First(&survey, "id = ?", id).Error; err != nil {
		render.Render(w, r, ErrorResponse(http.StatusNotFound, "问卷不存在", err))
		return
	}

	render.JSON(w, r, SuccessResponse("获取问卷成功", &survey))
}

// ArchiveSurvey 归档问卷
// @Summary 归档问卷
// @Description 归档问卷，归档后拒绝新的上传
// @Tags 问卷管理
// @Produce json
// @Param id path string true "问卷ID"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /surveys/{id}/archive [post]
func (c *SurveyController) ArchiveSurvey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var survey models.Survey
	if err := service.DB.First(&survey, "id = ?", id).Error; err != nil {
		render.Render(w, r, ErrorResponse(http.StatusNotFound, "问卷不存在", err))
		return
	}

	now := time.Now()
	if err := service.DB.Model(&survey).Updates(map[string]interface{}{
		"is_archived": true,
		"archived_at": now,
	}).Error; err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "归档问卷失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("问卷归档成功", nil))
}

// ReceiveUpload 接收原始上传文件
// @Summary 上传问卷数据文件
// @Description 接收 CSV/TSV/XLSX 数据文件，相同内容重复提交幂等返回既有记录
// @Tags 问卷管理
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "问卷ID"
// @Param file formData file true "数据文件"
// @Success 200 {object} APIResponse{data=models.UploadRecord}
// @Failure 400 {object} APIResponse
// @Failure 409 {object} APIResponse
// @Failure 429 {object} APIResponse
// @Router /surveys/{id}/uploads [post]
func (c *SurveyController) ReceiveUpload(w http.ResponseWriter, r *http.Request) {
	surveyID := chi.URLParam(r, "id")

	// 配置了Redis时对上传接收做按问卷和全局两层限流
	if service.GlobalRateLimiter != nil {
		result, err := service.GlobalRateLimiter.CheckRateLimit(r.Context(),
			rate_limiter.UploadRules(surveyID, uploadLimitPerSurvey, uploadLimitGlobal))
		if err != nil {
			slog.Warn("上传限流检查失败，放行请求", "survey_id", surveyID, "error", err)
		} else if !result.Allowed {
			render.Render(w, r, ErrorResponse(http.StatusTooManyRequests, result.Message, nil))
			return
		}
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "解析上传表单失败", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "缺少上传文件", err))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "读取上传文件失败", err))
		return
	}

	record, err := service.GlobalUploadStore.Receive(surveyID, content, header.Filename)
	if err != nil {
		render.Render(w, r, ErrorResponse(statusForError(err), "接收上传失败", err))
		return
	}
	service.GlobalMetricsCollector.UploadReceived(record.ByteSize)

	render.JSON(w, r, SuccessResponse("上传接收成功", record))
}

// ListUploads 获取问卷的上传列表
// @Summary 获取上传列表
// @Description 按接收时间列出问卷的全部上传记录
// @Tags 问卷管理
// @Produce json
// @Param id path string true "问卷ID"
// @Success 200 {object} APIResponse{data=[]models.UploadRecord}
// @Router /surveys/{id}/uploads [get]
func (c *SurveyController) ListUploads(w http.ResponseWriter, r *http.Request) {
	surveyID := chi.URLParam(r, "id")

	records, err := service.GlobalUploadStore.ListBySurvey(surveyID)
	if err != nil {
		render.Render(w, r, ErrorResponse(statusForError(err), "查询上传列表失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("获取上传列表成功", records))
}
