/*
 * @module service/data_quality/quality_engine
 * @description 数据质量引擎，基于验证结果计算完整性、准确性、一致性评分并生成改进建议
 * @architecture 分层架构 - 数据质量服务层
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow 验证结果输入 -> 维度评分计算 -> 总体评分 -> 建议生成
 * @rules 评分范围 0-100；空数据集各维度评为 100，不产生除零
 * @dependencies surveyhub-service/service/models, surveyhub-service/service/utils
 * @refs service/data_quality/validator.go
 */

package data_quality

import (
	"fmt"
	"strings"

	"surveyhub-service/service/models"
	"surveyhub-service/service/upload_store"
	"surveyhub-service/service/utils"
)

// ComputeScores 计算一次运行的数据质量评分
// 完整性：声明单元格中非缺失的占比
// 准确性：声明单元格中无致命问题的占比
// 一致性：全部非缺失值可按声明类型解析的字段占比
func ComputeScores(fields models.FieldSchemaList, rows []upload_store.Row, fatalCells int, converter *utils.DataConverter) models.QualityScores {
	scores := models.QualityScores{
		Completeness: 100,
		Accuracy:     100,
		Consistency:  100,
	}
	totalCells := len(fields) * len(rows)
	if totalCells == 0 {
		scores.Overall = 100
		return scores
	}

	missingCells := 0
	missingByField := make(map[string]int, len(fields))
	consistentFields := 0

	for _, field := range fields {
		consistent := true
		for _, row := range rows {
			raw, present := row.Values[field.Name]
			if !present || strings.TrimSpace(raw) == "" {
				missingCells++
				missingByField[field.Name]++
				continue
			}
			switch field.Type {
			case models.FieldTypeNumber:
				if _, err := converter.CoerceNumber(raw); err != nil {
					consistent = false
				}
			case models.FieldTypeDate:
				if _, err := converter.CoerceDate(raw); err != nil {
					consistent = false
				}
			}
		}
		if consistent {
			consistentFields++
		}
	}

	scores.Completeness = round2(float64(totalCells-missingCells) / float64(totalCells) * 100)
	scores.Accuracy = round2(float64(totalCells-fatalCells) / float64(totalCells) * 100)
	scores.Consistency = round2(float64(consistentFields) / float64(len(fields)) * 100)
	scores.Overall = round2((scores.Completeness + scores.Accuracy + scores.Consistency) / 3)
	scores.Recommendations = buildRecommendations(fields, missingByField, len(rows), scores.Overall)
	return scores
}

// buildRecommendations 按缺失比例和总体评分生成建议
func buildRecommendations(fields models.FieldSchemaList, missingByField map[string]int, totalRows int, overall float64) []string {
	var recommendations []string
	if totalRows == 0 {
		return recommendations
	}

	for _, field := range fields {
		pct := float64(missingByField[field.Name]) / float64(totalRows) * 100
		if pct > 50 {
			recommendations = append(recommendations,
				fmt.Sprintf("字段 %s 缺失率 %.1f%%，建议移除该字段或补采数据", field.Name, pct))
		} else if pct > 20 {
			recommendations = append(recommendations,
				fmt.Sprintf("字段 %s 缺失率 %.1f%%，建议检查采集流程", field.Name, pct))
		}
	}

	if overall < 60 {
		recommendations = append(recommendations, "总体数据质量较差，建议全面清洗后再用于分析")
	} else if overall < 80 {
		recommendations = append(recommendations, "总体数据质量一般，建议针对问题字段清洗")
	}
	return recommendations
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
