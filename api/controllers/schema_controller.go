/*
 * @module api/controllers/schema_controller
 * @description 字段模式控制器，提供问卷字段模式的查询与注册API
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow HTTP请求 -> 模式注册表 -> 响应返回
 * @rules 模式更新版本号自增并失效缓存；派生表达式注册前做语法校验
 * @dependencies surveyhub-service/service, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs api/routes.go, service/schema_registry/registry.go
 */

package controllers

import (
	"fmt"
	"net/http"

	"surveyhub-service/service"
	"surveyhub-service/service/data_quality"
	"surveyhub-service/service/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// SchemaController 字段模式控制器
type SchemaController struct {
	scripts *data_quality.ScriptExecutor
}

// NewSchemaController 创建字段模式控制器实例
func NewSchemaController() *SchemaController {
	return &SchemaController{
		scripts: data_quality.NewScriptExecutor(),
	}
}

// SaveSchemaRequest 注册字段模式请求
type SaveSchemaRequest struct {
	Fields         models.FieldSchemaList   `json:"fields"`
	CleansingRules models.CleansingRuleList `json:"cleansing_rules,omitempty"`
}

// GetSchema 获取字段模式
// @Summary 获取字段模式
// @Description 获取问卷当前版本的字段模式定义
// @Tags 字段模式
// @Produce json
// @Param surveyId path string true "问卷ID"
// @Success 200 {object} APIResponse{data=models.SurveySchema}
// @Failure 404 {object} APIResponse
// @Router /schemas/{surveyId} [get]
func (c *SchemaController) GetSchema(w http.ResponseWriter, r *http.Request) {
	surveyID := chi.URLParam(r, "surveyId")

	schema, err := service.GlobalSchemaRegistry.GetSchema(surveyID)
	if err != nil {
		render.Render(w, r, ErrorResponse(statusForError(err), "查询字段模式失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("获取字段模式成功", schema))
}

// SaveSchema 注册或更新字段模式
// @Summary 注册字段模式
// @Description 注册问卷字段模式，已存在时版本号自增
// @Tags 字段模式
// @Accept json
// @Produce json
// @Param surveyId path string true "问卷ID"
// @Param request body SaveSchemaRequest true "字段模式定义"
// @Success 200 {object} APIResponse{data=models.SurveySchema}
// @Failure 400 {object} APIResponse
// @Router /schemas/{surveyId} [put]
func (c *SchemaController) SaveSchema(w http.ResponseWriter, r *http.Request) {
	surveyID := chi.URLParam(r, "surveyId")

	var req SaveSchemaRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}
	if len(req.Fields) == 0 {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "字段定义不能为空", nil))
		return
	}

	var survey models.Survey
	if err := service.DB.First(&survey, "id = ?", surveyID).Error; err != nil {
		render.Render(w, r, ErrorResponse(http.StatusNotFound, "问卷不存在", err))
		return
	}

	// 派生表达式先做语法校验，避免运行期才暴露错误
	for _, rule := range req.CleansingRules {
		if rule.Kind != models.CleansingDerive {
			continue
		}
		if err := c.scripts.Validate(rule.Expression); err != nil {
			render.Render(w, r, ErrorResponse(http.StatusBadRequest,
				fmt.Sprintf("派生字段 %s 表达式无效", rule.NewField), err))
			return
		}
	}

	schema := &models.SurveySchema{
		SurveyID:       surveyID,
		Fields:         req.Fields,
		CleansingRules: req.CleansingRules,
	}
	if err := service.GlobalSchemaRegistry.SaveSchema(schema); err != nil {
		render.Render(w, r, ErrorResponse(statusForError(err), "保存字段模式失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("保存字段模式成功", schema))
}
