package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// TestMockClientGenerate 测试使用Mock客户端的内容生成
func TestMockClientGenerate(t *testing.T) {
	mockClient := NewMockClient(t)

	expectedResp := &Response{
		Text:       "- a summary",
		TokenCount: 5,
		ModelName:  "mock-model",
		FinishTime: time.Now(),
	}

	turns := []Turn{UserTurn(TextPart("hello"))}
	mockClient.EXPECT().
		Generate(mock.Anything, mock.MatchedBy(func(got []Turn) bool {
			return len(got) == 1 && got[0].Parts[0].Text == "hello"
		})).
		Return(expectedResp, nil)

	resp, err := mockClient.Generate(context.Background(), turns)
	require.NoError(t, err)
	assert.Equal(t, expectedResp.Text, resp.Text)
	assert.Equal(t, expectedResp.TokenCount, resp.TokenCount)
}

// TestNewConfig 测试配置选项
func TestNewConfig(t *testing.T) {
	cfg := NewConfig(
		WithAPIKey("key"),
		WithBaseURL("http://localhost"),
		WithModel("m"),
		WithTimeout(5*time.Second),
		WithMaxRetries(1),
		WithMaxTokens(100),
		WithTemperature(0.2),
		WithTopP(0.5),
	)

	assert.Equal(t, "key", cfg.APIKey)
	assert.Equal(t, "http://localhost", cfg.BaseURL)
	assert.Equal(t, "m", cfg.Model)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 1, cfg.MaxRetries)
	assert.Equal(t, 100, cfg.MaxTokens)
	assert.Equal(t, float32(0.2), cfg.Temperature)
	assert.Equal(t, float32(0.5), cfg.TopP)

	def := NewConfig()
	assert.Equal(t, 60*time.Second, def.Timeout)
	assert.Equal(t, 3, def.MaxRetries)
}

// TestApplyGenerateOptions 测试请求选项覆盖客户端默认值
func TestApplyGenerateOptions(t *testing.T) {
	defaults := generateDefaults{maxTokens: 2048, temperature: 0.7, topP: 0.95}

	opts := applyGenerateOptions(defaults, nil)
	require.NotNil(t, opts.MaxTokens)
	assert.Equal(t, 2048, *opts.MaxTokens)
	assert.Nil(t, opts.TopK)

	opts = applyGenerateOptions(defaults, []GenerateOption{
		WithGenerateMaxTokens(10),
		WithGenerateTemperature(0.1),
		WithGenerateTopK(3),
	})
	assert.Equal(t, 10, *opts.MaxTokens)
	assert.Equal(t, float32(0.1), *opts.Temperature)
	assert.Equal(t, float32(0.95), *opts.TopP)
	assert.Equal(t, 3, *opts.TopK)

	opts = applyGenerateOptions(defaults, []GenerateOption{WithGenerateTopP(0.3)})
	require.NotNil(t, opts.TopP)
	assert.Equal(t, float32(0.3), *opts.TopP)
	assert.Equal(t, float32(0.7), *opts.Temperature)
}

// TestNewClientRegistry 测试工厂注册表
func TestNewClientRegistry(t *testing.T) {
	client, err := NewClient("gemini", WithAPIKey("key"))
	require.NoError(t, err)
	assert.Equal(t, ModelGeminiFlash, client.Name())

	client, err = NewClient("tongyi", WithAPIKey("key"))
	require.NoError(t, err)
	assert.Equal(t, ModelQwenVLPlus, client.Name())

	_, err = NewClient("unknown", WithAPIKey("key"))
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidRequest, ErrorCode(err))

	_, err = NewClient("gemini")
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidAPIKey, ErrorCode(err))
}

// TestErrorTypes 测试错误类型的判断与解包
func TestErrorTypes(t *testing.T) {
	base := NewLLMError(ErrCodeInvalidAPIKey, ErrMsgInvalidAPIKey)

	cfgErr := fmt.Errorf("wrapped: %w", &ConfigurationError{Provider: "gemini", Err: base})
	assert.True(t, IsConfigurationError(cfgErr))
	assert.False(t, IsGenerationError(cfgErr))
	assert.Equal(t, ErrCodeInvalidAPIKey, ErrorCode(cfgErr))

	genErr := &GenerationError{Model: "m", Err: NewLLMError(ErrCodeRateLimited, ErrMsgRateLimited)}
	assert.True(t, IsGenerationError(genErr))
	assert.Equal(t, ErrCodeRateLimited, ErrorCode(genErr))
	assert.Contains(t, genErr.Error(), "generation with m failed")

	assert.Equal(t, 0, ErrorCode(errors.New("plain")))

	wrapped := WrapError(errors.New("boom"), ErrCodeServerError)
	assert.Equal(t, ErrCodeServerError, wrapped.Code)
	assert.Equal(t, base, WrapError(fmt.Errorf("x: %w", base), ErrCodeServerError))
}
