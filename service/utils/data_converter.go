/**
 * @module data_converter
 * @description 数据转换工具模块，负责空白归一化、类型规范化、日期解析和编码转换
 * @architecture 工具函数模式，提供无状态转换方法集合
 * @documentReference 参考 ai_docs/survey_pipeline_design.md 第4节
 * @stateFlow 无状态转换：输入 -> 转换逻辑 -> 输出
 * @rules
 *   - 相同输入必须产生字节一致的输出，清洗的幂等性依赖于此
 *   - 日期解析按固定布局顺序尝试，规范输出统一为 2006-01-02
 *   - 编码转换仅在输入不是合法 UTF-8 时回退 GBK
 * @dependencies
 *   - github.com/spf13/cast: 类型转换
 *   - golang.org/x/text: 宽度归一化与 GBK 解码
 * @refs
 *   - service/data_quality/*: 验证与清洗
 *   - service/upload_store/*: 文件读取
 */

package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/cast"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
	"golang.org/x/text/width"
)

// 日期解析布局，按顺序尝试，顺序不可调整
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"02-Jan-2006",
}

// CanonicalDateLayout 规范日期输出格式
const CanonicalDateLayout = "2006-01-02"

// DataConverter 数据转换器
type DataConverter struct{}

// NewDataConverter 创建新的数据转换器实例
func NewDataConverter() *DataConverter {
	return &DataConverter{}
}

// NormalizeWhitespace 空白归一化
// 全角字符折半角，去除首尾空白，内部连续空白压缩为单个空格
func (dc *DataConverter) NormalizeWhitespace(s string) string {
	s = width.Narrow.String(s)
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}

// CoerceNumber 将字符串值解析为数值
func (dc *DataConverter) CoerceNumber(value string) (float64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("空字符串无法转换为数值")
	}
	return cast.ToFloat64E(trimmed)
}

// CanonicalNumber 数值的规范字符串形式
// 使用最短精确表示，保证同一数值每次输出一致
func (dc *DataConverter) CanonicalNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// CoerceDate 将字符串值解析为日期
func (dc *DataConverter) CoerceDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("空字符串无法转换为日期")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("无法识别的日期格式: %s", trimmed)
}

// CanonicalDate 日期的规范字符串形式
func (dc *DataConverter) CanonicalDate(t time.Time) string {
	return t.Format(CanonicalDateLayout)
}

// ToString 任意值转换为字符串
func (dc *DataConverter) ToString(value interface{}) string {
	if value == nil {
		return ""
	}
	return cast.ToString(value)
}

// DecodeToUTF8 编码转换
// 输入已是合法 UTF-8 时原样返回，否则按 GBK 解码
func (dc *DataConverter) DecodeToUTF8(data []byte) ([]byte, error) {
	if utf8.Valid(data) {
		return data, nil
	}

	decoded, _, err := transform.Bytes(simplifiedchinese.GBK.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("GBK 解码失败: %w", err)
	}
	return decoded, nil
}
