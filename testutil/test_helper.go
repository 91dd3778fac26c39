/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, testify, time
 * @refs service/models
 */

package testutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"surveyhub-service/service/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&models.Survey{},
		&models.UploadRecord{},
		&models.SurveySchema{},
		&models.ValidationReport{},
		&models.CleanedGeneration{},
		&models.ProcessingJob{},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	tables := []string{
		"surveys",
		"upload_records",
		"survey_schemas",
		"validation_reports",
		"cleaned_generations",
		"processing_jobs",
	}

	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// TestDataFactory 测试数据工厂
type TestDataFactory struct {
	DB *gorm.DB
}

// NewTestDataFactory 创建测试数据工厂
func NewTestDataFactory(db *gorm.DB) *TestDataFactory {
	return &TestDataFactory{DB: db}
}

// SurveyOption 问卷选项函数类型
type SurveyOption func(*models.Survey)

// CreateSurvey 创建测试问卷
func (f *TestDataFactory) CreateSurvey(opts ...SurveyOption) *models.Survey {
	survey := &models.Survey{
		ID:          generateID("survey"),
		Name:        "测试问卷",
		Description: "这是一个测试问卷",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	for _, opt := range opts {
		opt(survey)
	}

	if err := f.DB.Create(survey).Error; err != nil {
		panic(fmt.Sprintf("failed to create test survey: %v", err))
	}
	return survey
}

// SchemaOption 字段模式选项函数类型
type SchemaOption func(*models.SurveySchema)

// CreateSchema 创建测试字段模式
// 默认含必填文本 name、带范围约束的数值 age 与日期 submitted
func (f *TestDataFactory) CreateSchema(surveyID string, opts ...SchemaOption) *models.SurveySchema {
	schema := &models.SurveySchema{
		ID:       generateID("schema"),
		SurveyID: surveyID,
		Version:  1,
		Fields: models.FieldSchemaList{
			{Name: "name", Type: models.FieldTypeText, Required: true},
			{Name: "age", Type: models.FieldTypeNumber, Required: true, Constraints: []models.Constraint{
				{Kind: models.ConstraintRange, Min: floatPtr(0), Max: floatPtr(150)},
			}},
			{Name: "submitted", Type: models.FieldTypeDate},
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	for _, opt := range opts {
		opt(schema)
	}

	if err := f.DB.Create(schema).Error; err != nil {
		panic(fmt.Sprintf("failed to create test schema: %v", err))
	}
	return schema
}

// CreateUpload 创建测试上传记录并落盘文件内容
func (f *TestDataFactory) CreateUpload(t *testing.T, surveyID string, filename string, content []byte) *models.UploadRecord {
	dir := t.TempDir()
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		panic(fmt.Sprintf("failed to write test upload file: %v", err))
	}

	sum := sha256.Sum256(content)
	record := &models.UploadRecord{
		ID:               generateID("upload"),
		SurveyID:         surveyID,
		OriginalFilename: filename,
		ByteSize:         int64(len(content)),
		ContentHash:      hex.EncodeToString(sum[:]),
		StoragePath:      path,
		ReceivedAt:       time.Now(),
	}
	if err := f.DB.Create(record).Error; err != nil {
		panic(fmt.Sprintf("failed to create test upload record: %v", err))
	}
	return record
}

// CreateJob 创建测试处理作业
func (f *TestDataFactory) CreateJob(uploadID, surveyID string, state models.JobState) *models.ProcessingJob {
	job := &models.ProcessingJob{
		ID:       generateID("job"),
		UploadID: uploadID,
		SurveyID: surveyID,
		State:    state,
		Attempt:  1,
	}
	if err := f.DB.Create(job).Error; err != nil {
		panic(fmt.Sprintf("failed to create test job: %v", err))
	}
	return job
}

// 辅助函数
func generateID(prefix string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixNano(), generateSuffix())
}

func generateSuffix() string {
	return fmt.Sprintf("%d", time.Now().UnixNano()%100000)
}

func floatPtr(f float64) *float64 {
	return &f
}

// HTTPTestHelper HTTP测试辅助工具
type HTTPTestHelper struct{}

// NewHTTPTestHelper 创建HTTP测试辅助工具
func NewHTTPTestHelper() *HTTPTestHelper {
	return &HTTPTestHelper{}
}

// CreateJSONRequest 创建JSON请求
func (h *HTTPTestHelper) CreateJSONRequest(method, url string, body interface{}) (*http.Request, error) {
	var reqBody io.Reader

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// AssertJSONResponse 断言JSON响应
func (h *HTTPTestHelper) AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedBody interface{}) {
	assert.Equal(t, expectedStatus, w.Code)

	if expectedBody != nil {
		var actualBody interface{}
		err := json.Unmarshal(w.Body.Bytes(), &actualBody)
		assert.NoError(t, err)

		expectedJSON, _ := json.Marshal(expectedBody)
		actualJSON, _ := json.Marshal(actualBody)

		assert.JSONEq(t, string(expectedJSON), string(actualJSON))
	}
}
