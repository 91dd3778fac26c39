/*
 * @module service/upload_store/reader
 * @description 表格文件读取器，将分隔文本和电子表格解析为带表头的有序行序列
 * @architecture 分层架构 - 存储适配层
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow 文件读取 -> 编码识别 -> 按格式解析 -> 行序列输出
 * @rules 整体不可解析返回 MalformedFile；行内列数不齐按表头截断，不构成整体失败
 * @dependencies encoding/csv, github.com/xuri/excelize/v2
 * @refs service/data_quality/validator.go
 */

package upload_store

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"surveyhub-service/service/models"

	"github.com/xuri/excelize/v2"
)

// Row 文件中的一行数据，Index 为数据区内从 0 开始的行索引
type Row struct {
	Index  int               `json:"index"`
	Values map[string]string `json:"values"`
}

// ReadRows 读取上传文件并解析为表头和有序行序列
// 首行为表头，数据行按文件顺序返回
func (s *Store) ReadRows(record *models.UploadRecord) ([]string, []Row, error) {
	data, err := os.ReadFile(record.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("读取上传文件失败: %w", models.ErrStoreUnavailable)
	}

	ext := strings.ToLower(filepath.Ext(record.StoragePath))
	switch ext {
	case ".csv", ".txt":
		return s.parseDelimited(data, ',')
	case ".tsv":
		return s.parseDelimited(data, '\t')
	case ".xlsx":
		return s.parseSpreadsheet(data)
	default:
		return nil, nil, fmt.Errorf("不支持的文件格式 %s: %w", ext, models.ErrMalformedFile)
	}
}

// parseDelimited 解析分隔文本
func (s *Store) parseDelimited(data []byte, delimiter rune) ([]string, []Row, error) {
	decoded, err := s.converter.DecodeToUTF8(data)
	if err != nil {
		return nil, nil, fmt.Errorf("编码不可识别: %w", models.ErrMalformedFile)
	}
	decoded = bytes.TrimPrefix(decoded, []byte{0xEF, 0xBB, 0xBF}) // UTF-8 BOM

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1 // 列数不齐不构成整体失败

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("表格结构不可解析: %w", models.ErrMalformedFile)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("文件缺少表头行: %w", models.ErrMalformedFile)
	}

	return buildRows(records)
}

// parseSpreadsheet 解析 xlsx 电子表格，取第一个工作表
func (s *Store) parseSpreadsheet(data []byte) ([]string, []Row, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("电子表格不可解析: %w", models.ErrMalformedFile)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("电子表格没有工作表: %w", models.ErrMalformedFile)
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("读取工作表失败: %w", models.ErrMalformedFile)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("文件缺少表头行: %w", models.ErrMalformedFile)
	}

	return buildRows(records)
}

// buildRows 将原始单元格矩阵组装为表头和行序列
func buildRows(records [][]string) ([]string, []Row, error) {
	header := make([]string, 0, len(records[0]))
	for _, cell := range records[0] {
		header = append(header, strings.TrimSpace(cell))
	}

	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		values := make(map[string]string, len(header))
		for j, cell := range rec {
			if j >= len(header) {
				break
			}
			values[header[j]] = cell
		}
		rows = append(rows, Row{Index: i, Values: values})
	}
	return header, rows, nil
}
