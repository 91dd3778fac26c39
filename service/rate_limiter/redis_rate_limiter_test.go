/*
 * @module service/rate_limiter/redis_rate_limiter_test
 * @description 上传限流器单元测试
 * @architecture 测试层
 * @documentReference ai_docs/survey_pipeline_design.md
 */

package rate_limiter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis 设置测试用Redis环境，不可用时跳过
func setupTestRedis(t *testing.T) *RedisRateLimiter {
	limiter, err := NewRedisRateLimiter()
	if err != nil {
		t.Skipf("Redis不可用，跳过限流测试: %v", err)
	}
	t.Cleanup(func() { limiter.Close() })

	// 清理测试数据
	limiter.client.FlushDB(context.Background())
	return limiter
}

// TestUploadRules 测试上传限流规则构造
func TestUploadRules(t *testing.T) {
	rules := UploadRules("survey-1", 10, 100)

	require.Len(t, rules, 2)
	assert.Equal(t, "survey", rules[0].Type)
	assert.Equal(t, "survey-1", rules[0].TargetID)
	assert.Equal(t, 10, rules[0].MaxRequests)
	assert.Equal(t, "global", rules[1].Type)
	assert.Equal(t, 100, rules[1].MaxRequests)
}

// TestSortRulesByPriority 测试问卷层优先于全局层
func TestSortRulesByPriority(t *testing.T) {
	limiter := &RedisRateLimiter{}

	sorted := limiter.sortRulesByPriority([]RateLimitRule{
		{Type: "global", TimeWindow: 60, MaxRequests: 100},
		{Type: "survey", TargetID: "survey-1", TimeWindow: 60, MaxRequests: 10},
	})

	require.Len(t, sorted, 2)
	assert.Equal(t, "survey", sorted[0].Type)
	assert.Equal(t, "global", sorted[1].Type)
}

// TestCheckRateLimitWithinLimit 测试未超限时允许请求
func TestCheckRateLimitWithinLimit(t *testing.T) {
	limiter := setupTestRedis(t)

	result, err := limiter.CheckRateLimit(context.Background(), UploadRules("survey-1", 10, 100))
	require.NoError(t, err)

	assert.True(t, result.Allowed)
	assert.Equal(t, "global", result.RateLimitType)
}

// TestCheckRateLimitExceeded 测试超限后拒绝请求
func TestCheckRateLimitExceeded(t *testing.T) {
	limiter := setupTestRedis(t)

	rules := []RateLimitRule{
		{Type: "survey", TargetID: "survey-2", TimeWindow: 60, MaxRequests: 3},
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		result, err := limiter.CheckRateLimit(ctx, rules)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	result, err := limiter.CheckRateLimit(ctx, rules)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, "survey", result.RateLimitType)
	assert.Equal(t, 0, result.Remaining)
}

// TestCheckRateLimitNoRules 测试无规则时允许通过
func TestCheckRateLimitNoRules(t *testing.T) {
	limiter := &RedisRateLimiter{}

	result, err := limiter.CheckRateLimit(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, "none", result.RateLimitType)
}
