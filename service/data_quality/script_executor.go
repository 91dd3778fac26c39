/*
 * @module service/data_quality/script_executor
 * @description 派生变量表达式执行器，使用 yaegi 编译缓存表达式并逐行求值
 * @architecture 工具层 - 提供表达式求值能力
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow 表达式哈希 -> 缓存命中/编译 -> 逐行调用
 * @rules 表达式必须是纯函数，只读取字段值；编译结果按哈希缓存
 * @dependencies github.com/traefik/yaegi/interp, github.com/traefik/yaegi/stdlib
 * @refs service/data_quality/cleanser.go
 */

package data_quality

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// expressionTemplate 表达式包装模板
// 脚本中可用 num(name) / str(name) 读取字段值
const expressionTemplate = `
package main

import (
	"fmt"
	"strconv"
	"strings"
)

// 必须提供一个 Run 函数作为入口
func Run(fields map[string]interface{}) (interface{}, error) {
	num := func(name string) float64 {
		switch v := fields[name].(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case string:
			f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
			return f
		default:
			return 0
		}
	}
	str := func(name string) string {
		if v, ok := fields[name].(string); ok {
			return v
		}
		return fmt.Sprintf("%%v", fields[name])
	}
	_ = num
	_ = str
	return (%s), nil
}
`

// compiledExpression 编译后的表达式
type compiledExpression struct {
	fn       func(map[string]interface{}) (interface{}, error)
	compiled time.Time
	hash     string
}

// ScriptExecutor 派生变量表达式执行器
type ScriptExecutor struct {
	mu    sync.RWMutex
	cache map[string]*compiledExpression
}

// NewScriptExecutor 创建表达式执行器实例
func NewScriptExecutor() *ScriptExecutor {
	return &ScriptExecutor{
		cache: make(map[string]*compiledExpression),
	}
}

// EvalExpression 对一行字段值求值表达式
func (e *ScriptExecutor) EvalExpression(expression string, fields map[string]interface{}) (interface{}, error) {
	sum := sha1.Sum([]byte(expression))
	hash := hex.EncodeToString(sum[:])

	e.mu.RLock()
	compiled, ok := e.cache[hash]
	e.mu.RUnlock()

	if !ok {
		var err error
		compiled, err = e.compile(expression, hash)
		if err != nil {
			return nil, fmt.Errorf("表达式编译失败: %w", err)
		}

		e.mu.Lock()
		e.cache[hash] = compiled
		e.mu.Unlock()
	}

	return compiled.fn(fields)
}

// compile 编译表达式为可执行函数
func (e *ScriptExecutor) compile(expression, hash string) (*compiledExpression, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("加载标准库符号失败: %w", err)
	}

	wrapped := fmt.Sprintf(expressionTemplate, expression)
	if _, err := i.Eval(wrapped); err != nil {
		return nil, err
	}

	v, err := i.Eval("Run")
	if err != nil {
		return nil, fmt.Errorf("表达式缺少入口函数: %w", err)
	}

	fn, ok := v.Interface().(func(map[string]interface{}) (interface{}, error))
	if !ok {
		return nil, fmt.Errorf("入口函数签名不正确")
	}

	return &compiledExpression{
		fn:       fn,
		compiled: time.Now(),
		hash:     hash,
	}, nil
}

// Validate 验证表达式语法（快速校验，不缓存）
func (e *ScriptExecutor) Validate(expression string) error {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return fmt.Errorf("加载标准库符号失败: %w", err)
	}
	if _, err := i.Eval(fmt.Sprintf(expressionTemplate, expression)); err != nil {
		return fmt.Errorf("表达式语法错误: %w", err)
	}
	return nil
}
