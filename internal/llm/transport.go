package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// httpResult 一次HTTP调用的结果
type httpResult struct {
	StatusCode int
	Body       []byte
}

// doRequest 发送请求，网络错误和5xx响应按指数退避重试
// 每次重试都重新构造请求体
func doRequest(ctx context.Context, client *http.Client, maxRetries int, method, url string, headers map[string]string, body []byte) (*httpResult, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, NewLLMError(ErrCodeTimeout, ctx.Err().Error())
			case <-time.After(time.Duration(1<<attempt) * 100 * time.Millisecond):
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, NewLLMError(ErrCodeInvalidRequest, fmt.Sprintf("failed to create request: %v", err))
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, NewLLMError(ErrCodeTimeout, ctx.Err().Error())
			}
			lastErr = err
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 && attempt < maxRetries {
			lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(data), 200))
			continue
		}

		return &httpResult{StatusCode: resp.StatusCode, Body: data}, nil
	}

	return nil, NewLLMError(ErrCodeNetworkError, fmt.Sprintf("request failed: %v", lastErr))
}

// classifyStatus 将HTTP状态码映射为LLM错误
func classifyStatus(status int, message string) LLMError {
	lower := strings.ToLower(message)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewLLMError(ErrCodeInvalidAPIKey, fmt.Sprintf("%s: %s", ErrMsgInvalidAPIKey, message))
	case status == http.StatusBadRequest && (strings.Contains(lower, "api key") || strings.Contains(lower, "apikey")):
		return NewLLMError(ErrCodeInvalidAPIKey, fmt.Sprintf("%s: %s", ErrMsgInvalidAPIKey, message))
	case status == http.StatusTooManyRequests:
		return NewLLMError(ErrCodeRateLimited, fmt.Sprintf("%s: %s", ErrMsgRateLimited, message))
	case status == http.StatusRequestEntityTooLarge:
		return NewLLMError(ErrCodeContextTooLong, fmt.Sprintf("%s: %s", ErrMsgContextTooLong, message))
	case status == http.StatusServiceUnavailable:
		return NewLLMError(ErrCodeModelOverload, fmt.Sprintf("%s: %s", ErrMsgModelOverload, message))
	case status >= 500:
		return NewLLMError(ErrCodeServerError, fmt.Sprintf("API error (status %d): %s", status, message))
	default:
		return NewLLMError(ErrCodeInvalidRequest, fmt.Sprintf("API error (status %d): %s", status, message))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
