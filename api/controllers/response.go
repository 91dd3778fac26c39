package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"surveyhub-service/service/models"

	"github.com/go-chi/render"
)

// APIResponse 统一API响应结构
type APIResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data,omitempty"`
}

// PaginatedResponse 分页响应结构
type PaginatedResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data"`
	Total  int64       `json:"total" example:"100"`
	Page   int         `json:"page" example:"1"`
	Size   int         `json:"size" example:"10"`
}

// SuccessResponse 构造成功响应
func SuccessResponse(msg string, data interface{}) *APIResponse {
	return &APIResponse{
		Status: 0,
		Msg:    msg,
		Data:   data,
	}
}

// PaginatedSuccessResponse 构造分页成功响应
func PaginatedSuccessResponse(msg string, data interface{}, total int64, page, size int) *PaginatedResponse {
	return &PaginatedResponse{
		Status: 0,
		Msg:    msg,
		Data:   data,
		Total:  total,
		Page:   page,
		Size:   size,
	}
}

// ErrResponse 错误响应，携带HTTP状态码
type ErrResponse struct {
	HTTPStatusCode int    `json:"-"`
	Status         int    `json:"status" example:"1"`
	Msg            string `json:"msg" example:"操作失败"`
	Detail         string `json:"detail,omitempty"`
}

// Render 实现 render.Renderer 接口
func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

// ErrorResponse 构造错误响应
func ErrorResponse(httpStatus int, msg string, err error) render.Renderer {
	resp := &ErrResponse{
		HTTPStatusCode: httpStatus,
		Status:         1,
		Msg:            msg,
	}
	if err != nil {
		resp.Detail = err.Error()
	}
	return resp
}

// parsePagination 解析分页查询参数
func parsePagination(r *http.Request) (page, size int) {
	page, size = 1, 10
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := r.URL.Query().Get("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			size = n
		}
	}
	return page, size
}

// statusForError 业务错误到HTTP状态码的映射
func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrUnknownUpload),
		errors.Is(err, models.ErrSchemaNotFound),
		errors.Is(err, models.ErrJobNotStarted),
		errors.Is(err, models.ErrReportNotReady),
		errors.Is(err, models.ErrCleanedNotReady):
		return http.StatusNotFound
	case errors.Is(err, models.ErrAlreadyProcessing),
		errors.Is(err, models.ErrSurveyArchived):
		return http.StatusConflict
	case errors.Is(err, models.ErrMalformedFile):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
