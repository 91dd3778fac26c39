/**
 * @module data_converter_test
 * @description 数据转换工具测试文件
 * @architecture 测试层
 * @documentReference 参考 ai_docs/survey_pipeline_design.md 第4节
 * @stateFlow 测试用例 -> 转换执行 -> 结果验证
 * @rules 覆盖空白归一化、数值与日期规范化、编码转换
 * @dependencies testing, github.com/stretchr/testify/assert
 * @refs service/utils/data_converter.go
 */

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// TestNormalizeWhitespace 测试空白归一化
func TestNormalizeWhitespace(t *testing.T) {
	dc := NewDataConverter()

	assert.Equal(t, "Alice Liu", dc.NormalizeWhitespace("  Alice   Liu  "))
	assert.Equal(t, "a b", dc.NormalizeWhitespace("a\t\nb"))
	// 全角字符折半角
	assert.Equal(t, "ABC 123", dc.NormalizeWhitespace("ＡＢＣ　１２３"))
	assert.Equal(t, "", dc.NormalizeWhitespace("   "))
}

// TestCoerceNumber 测试数值解析
func TestCoerceNumber(t *testing.T) {
	dc := NewDataConverter()

	f, err := dc.CoerceNumber(" 30.5 ")
	require.NoError(t, err)
	assert.Equal(t, 30.5, f)

	f, err = dc.CoerceNumber("030")
	require.NoError(t, err)
	assert.Equal(t, float64(30), f)

	_, err = dc.CoerceNumber("notanum")
	assert.Error(t, err)

	_, err = dc.CoerceNumber("")
	assert.Error(t, err)
}

// TestCanonicalNumber 测试数值规范形式
func TestCanonicalNumber(t *testing.T) {
	dc := NewDataConverter()

	assert.Equal(t, "30", dc.CanonicalNumber(30))
	assert.Equal(t, "30.5", dc.CanonicalNumber(30.5))
	assert.Equal(t, "0.1", dc.CanonicalNumber(0.1))
}

// TestCoerceDate 测试多布局日期解析
func TestCoerceDate(t *testing.T) {
	dc := NewDataConverter()

	cases := []string{
		"2026-01-15",
		"2026/01/15",
		"2026-01-15 10:30:00",
		"01/15/2026",
		"15-Jan-2026",
	}
	for _, value := range cases {
		parsed, err := dc.CoerceDate(value)
		require.NoError(t, err, value)
		assert.Equal(t, "2026-01-15", dc.CanonicalDate(parsed), value)
	}

	_, err := dc.CoerceDate("not a date")
	assert.Error(t, err)
}

// TestDecodeToUTF8 测试编码转换
func TestDecodeToUTF8(t *testing.T) {
	dc := NewDataConverter()

	// 合法UTF-8原样返回
	utf8Input := []byte("姓名,年龄")
	decoded, err := dc.DecodeToUTF8(utf8Input)
	require.NoError(t, err)
	assert.Equal(t, utf8Input, decoded)

	// GBK输入解码为UTF-8
	gbkInput, _, err := transform.Bytes(simplifiedchinese.GBK.NewEncoder(), utf8Input)
	require.NoError(t, err)
	decoded, err = dc.DecodeToUTF8(gbkInput)
	require.NoError(t, err)
	assert.Equal(t, utf8Input, decoded)
}
