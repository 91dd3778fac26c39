/*
 * @module service/models/errors
 * @description 流水线错误分类定义，行级问题聚合进报告，整体性失败通过哨兵错误传播
 * @architecture 数据模型层
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow 错误产生 -> errors.Is 判别 -> 作业终态原因 / API 响应映射
 * @rules 行级问题不中断运行；整体性失败必须落到作业终态，不得静默吞掉
 * @dependencies errors
 * @refs service/processing/, api/controllers/
 */

package models

import "errors"

var (
	// ErrUnknownUpload 上传标识不存在
	ErrUnknownUpload = errors.New("upload record not found")
	// ErrAlreadyProcessing 同一 uploadId 已存在非终态作业
	ErrAlreadyProcessing = errors.New("upload is already being processed")
	// ErrStoreUnavailable 存储读写暂时不可用
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrMalformedFile 文件整体无法解析为行序列
	ErrMalformedFile = errors.New("file cannot be parsed into rows")
	// ErrNoEligibleRows 没有任何行可进入清洗
	ErrNoEligibleRows = errors.New("no rows eligible for cleaning")
	// ErrCancelled 作业被调用方取消
	ErrCancelled = errors.New("job cancelled")
	// ErrSurveyArchived 问卷已归档，拒绝新的提交
	ErrSurveyArchived = errors.New("survey is archived")
	// ErrSchemaNotFound 问卷缺少字段模式
	ErrSchemaNotFound = errors.New("survey schema not found")
	// ErrJobNotStarted 上传存在但从未提交过处理
	ErrJobNotStarted = errors.New("upload has not been submitted for processing")
	// ErrReportNotReady 验证尚未完成，报告不可用
	ErrReportNotReady = errors.New("validation report not ready")
	// ErrCleanedNotReady 作业尚未完成，清洗数据不可用
	ErrCleanedNotReady = errors.New("cleaned data not ready")
	// ErrInternalInvariant 内部不变量被破坏，视为致命并记录日志
	ErrInternalInvariant = errors.New("internal invariant violation")
)
