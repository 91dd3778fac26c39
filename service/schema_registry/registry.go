/*
 * @module service/schema_registry/registry
 * @description 字段模式注册表，按问卷提供期望字段定义的只读查询，带进程内缓存
 * @architecture 分层架构 - 存储适配层
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow 模式查询 -> 缓存命中/回源 -> 只读返回
 * @rules 注册表对流水线只读，可被并发运行安全共享
 * @dependencies gorm.io/gorm, sync
 * @refs service/models/schema.go, service/data_quality/
 */

package schema_registry

import (
	"errors"
	"fmt"
	"sync"

	"surveyhub-service/service/models"

	"gorm.io/gorm"
)

// Registry 字段模式注册表
type Registry struct {
	db    *gorm.DB
	mu    sync.RWMutex
	cache map[string]*models.SurveySchema
}

// NewRegistry 创建模式注册表实例
func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{
		db:    db,
		cache: make(map[string]*models.SurveySchema),
	}
}

// GetSchema 获取问卷的字段模式
func (r *Registry) GetSchema(surveyID string) (*models.SurveySchema, error) {
	r.mu.RLock()
	if schema, ok := r.cache[surveyID]; ok {
		r.mu.RUnlock()
		return schema, nil
	}
	r.mu.RUnlock()

	var schema models.SurveySchema
	if err := r.db.First(&schema, "survey_id = ?", surveyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrSchemaNotFound
		}
		return nil, fmt.Errorf("查询字段模式失败: %w", models.ErrStoreUnavailable)
	}

	r.mu.Lock()
	r.cache[surveyID] = &schema
	r.mu.Unlock()

	return &schema, nil
}

// SaveSchema 注册或更新问卷的字段模式
// 已存在时版本号自增，保存后失效缓存
func (r *Registry) SaveSchema(schema *models.SurveySchema) error {
	var existing models.SurveySchema
	err := r.db.First(&existing, "survey_id = ?", schema.SurveyID).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("查询字段模式失败: %w", models.ErrStoreUnavailable)
		}
		schema.Version = 1
		if err := r.db.Create(schema).Error; err != nil {
			return fmt.Errorf("创建字段模式失败: %w", models.ErrStoreUnavailable)
		}
	} else {
		schema.ID = existing.ID
		schema.Version = existing.Version + 1
		if err := r.db.Model(&existing).Updates(map[string]interface{}{
			"version":         schema.Version,
			"fields":          schema.Fields,
			"cleansing_rules": schema.CleansingRules,
		}).Error; err != nil {
			return fmt.Errorf("更新字段模式失败: %w", models.ErrStoreUnavailable)
		}
	}

	r.Invalidate(schema.SurveyID)
	return nil
}

// Invalidate 失效指定问卷的缓存
// 模式由外部 CRUD 层维护，变更后调用
func (r *Registry) Invalidate(surveyID string) {
	r.mu.Lock()
	delete(r.cache, surveyID)
	r.mu.Unlock()
}
