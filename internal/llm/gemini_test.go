package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGemini(t *testing.T, srv *httptest.Server, opts ...Option) *GeminiClient {
	t.Helper()
	opts = append([]Option{
		WithAPIKey("test-key"),
		WithBaseURL(srv.URL),
		WithTimeout(5 * time.Second),
		WithMaxRetries(0),
	}, opts...)
	client, err := NewGeminiClient(opts...)
	require.NoError(t, err)
	return client.(*GeminiClient)
}

// TestGeminiGenerate 测试请求格式与响应解析
func TestGeminiGenerate(t *testing.T) {
	var got GeminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "- point one"}, {"text": "\n- point two"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 5, "totalTokenCount": 15}
		}`))
	}))
	defer srv.Close()

	client := newTestGemini(t, srv)
	turns := []Turn{
		UserTurn(TextPart("context"), ImagePart("image/png", "aGVsbG8=")),
		{Role: RoleModel, Parts: []Part{TextPart("ok")}},
		UserTurn(TextPart("question")),
	}

	resp, err := client.Generate(context.Background(), turns, WithGenerateTopK(4), WithGenerateTopP(0.5))
	require.NoError(t, err)
	assert.Equal(t, "- point one\n- point two", resp.Text)
	assert.Equal(t, 15, resp.TokenCount)
	assert.Equal(t, "STOP", resp.FinishReason)
	assert.Equal(t, ModelGeminiFlash, resp.ModelName)

	require.Len(t, got.Contents, 3)
	assert.Equal(t, "user", got.Contents[0].Role)
	assert.Equal(t, "model", got.Contents[1].Role)
	require.Len(t, got.Contents[0].Parts, 2)
	assert.Equal(t, "context", got.Contents[0].Parts[0].Text)
	require.NotNil(t, got.Contents[0].Parts[1].InlineData)
	assert.Equal(t, "image/png", got.Contents[0].Parts[1].InlineData.MimeType)
	assert.Equal(t, "aGVsbG8=", got.Contents[0].Parts[1].InlineData.Data)
	require.NotNil(t, got.GenerationConfig)
	assert.Equal(t, 4, *got.GenerationConfig.TopK)
	require.NotNil(t, got.GenerationConfig.TopP)
	assert.Equal(t, float32(0.5), *got.GenerationConfig.TopP)
	assert.Equal(t, 2048, *got.GenerationConfig.MaxOutputTokens)
}

// TestGeminiGenerateErrors 测试错误状态码分类
func TestGeminiGenerateErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode int
	}{
		{
			name:     "invalid key",
			status:   http.StatusBadRequest,
			body:     `{"error": {"code": 400, "message": "API key not valid. Please pass a valid API key.", "status": "INVALID_ARGUMENT"}}`,
			wantCode: ErrCodeInvalidAPIKey,
		},
		{
			name:     "forbidden",
			status:   http.StatusForbidden,
			body:     `{"error": {"code": 403, "message": "permission denied", "status": "PERMISSION_DENIED"}}`,
			wantCode: ErrCodeInvalidAPIKey,
		},
		{
			name:     "rate limited",
			status:   http.StatusTooManyRequests,
			body:     `{"error": {"code": 429, "message": "quota", "status": "RESOURCE_EXHAUSTED"}}`,
			wantCode: ErrCodeRateLimited,
		},
		{
			name:     "bad request",
			status:   http.StatusBadRequest,
			body:     `{"error": {"code": 400, "message": "invalid image", "status": "INVALID_ARGUMENT"}}`,
			wantCode: ErrCodeInvalidRequest,
		},
		{
			name:     "server error",
			status:   http.StatusInternalServerError,
			body:     `oops`,
			wantCode: ErrCodeServerError,
		},
		{
			name:     "blocked prompt",
			status:   http.StatusOK,
			body:     `{"candidates": [], "promptFeedback": {"blockReason": "SAFETY"}}`,
			wantCode: ErrCodeContentFilter,
		},
		{
			name:     "no candidates",
			status:   http.StatusOK,
			body:     `{"candidates": []}`,
			wantCode: ErrCodeServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := newTestGemini(t, srv)
			_, err := client.Generate(context.Background(), []Turn{UserTurn(TextPart("hi"))})
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, ErrorCode(err))
		})
	}
}

// TestGeminiRetry 测试5xx响应的重试
func TestGeminiRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req GeminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Contents, 1)

		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "done"}]}, "finishReason": "STOP"}]}`))
	}))
	defer srv.Close()

	client := newTestGemini(t, srv, WithMaxRetries(2))
	resp, err := client.Generate(context.Background(), []Turn{UserTurn(TextPart("hi"))})
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

// TestGeminiVerify 测试凭证校验
func TestGeminiVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/models/gemini-2.0-flash", r.URL.Path)
		if r.Header.Get("x-goog-api-key") != "test-key" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error": {"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"}}`))
			return
		}
		w.Write([]byte(`{"name": "models/gemini-2.0-flash"}`))
	}))
	defer srv.Close()

	assert.NoError(t, newTestGemini(t, srv).Verify(context.Background()))

	bad := newTestGemini(t, srv, WithAPIKey("wrong"))
	err := bad.Verify(context.Background())
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidAPIKey, ErrorCode(err))
}

// TestGeminiEmptyTurns 测试空输入
func TestGeminiEmptyTurns(t *testing.T) {
	client, err := NewGeminiClient(WithAPIKey("k"))
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), nil)
	assert.Equal(t, ErrCodeEmptyPrompt, ErrorCode(err))

	_, err = client.Generate(context.Background(), []Turn{{Role: RoleUser}})
	assert.Equal(t, ErrCodeInvalidRequest, ErrorCode(err))
}
