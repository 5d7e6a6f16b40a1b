package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	// Gemini Generative Language API端点
	defaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"
)

// GeminiClient Gemini大模型客户端实现
type GeminiClient struct {
	apiKey     string       // API密钥
	baseURL    string       // API端点
	model      string       // 模型名称
	httpClient *http.Client // HTTP客户端
	maxRetries int          // 最大重试次数
	defaults   generateDefaults
}

// NewGeminiClient 创建新的Gemini客户端
func NewGeminiClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	if cfg.APIKey == "" {
		return nil, NewLLMError(ErrCodeInvalidAPIKey, ErrMsgInvalidAPIKey)
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultGeminiEndpoint
	}

	model := cfg.Model
	if model == "" {
		model = ModelGeminiFlash
	}

	return &GeminiClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		defaults: generateDefaults{
			maxTokens:   cfg.MaxTokens,
			temperature: cfg.Temperature,
			topP:        cfg.TopP,
		},
	}, nil
}

// Name 返回模型名称
func (c *GeminiClient) Name() string {
	return c.model
}

// headers 公共请求头
func (c *GeminiClient) headers() map[string]string {
	return map[string]string{
		"Content-Type":   "application/json",
		"Accept":         "application/json",
		"x-goog-api-key": c.apiKey,
	}
}

// Verify 查询模型元数据以校验API密钥
func (c *GeminiClient) Verify(ctx context.Context) error {
	url := fmt.Sprintf("%s/models/%s", c.baseURL, c.model)
	result, err := doRequest(ctx, c.httpClient, 0, http.MethodGet, url, c.headers(), nil)
	if err != nil {
		return err
	}
	if result.StatusCode != http.StatusOK {
		return c.parseError(result)
	}
	return nil
}

// Generate 根据多轮内容生成回答
func (c *GeminiClient) Generate(ctx context.Context, turns []Turn, options ...GenerateOption) (*Response, error) {
	contents, err := toGeminiContents(turns)
	if err != nil {
		return nil, err
	}

	opts := applyGenerateOptions(c.defaults, options)
	req := &GeminiRequest{
		Contents: contents,
		GenerationConfig: &GeminiGenerationConfig{
			MaxOutputTokens: opts.MaxTokens,
			Temperature:     opts.Temperature,
			TopP:            opts.TopP,
			TopK:            opts.TopK,
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, NewLLMError(ErrCodeInvalidRequest, fmt.Sprintf("failed to marshal request: %v", err))
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	result, err := doRequest(ctx, c.httpClient, c.maxRetries, http.MethodPost, url, c.headers(), body)
	if err != nil {
		return nil, err
	}
	if result.StatusCode != http.StatusOK {
		return nil, c.parseError(result)
	}

	var geminiResp GeminiResponse
	if err := json.Unmarshal(result.Body, &geminiResp); err != nil {
		return nil, NewLLMError(ErrCodeServerError, fmt.Sprintf("failed to parse response: %v", err))
	}

	return c.processResponse(&geminiResp)
}

// parseError 解析错误响应
func (c *GeminiClient) parseError(result *httpResult) error {
	var errResp GeminiErrorResponse
	if err := json.Unmarshal(result.Body, &errResp); err == nil && errResp.Error.Message != "" {
		return classifyStatus(result.StatusCode, fmt.Sprintf("%s (%s)", errResp.Error.Message, errResp.Error.Status))
	}
	return classifyStatus(result.StatusCode, truncate(string(result.Body), 500))
}

// processResponse 处理Gemini响应
func (c *GeminiClient) processResponse(resp *GeminiResponse) (*Response, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, NewLLMError(ErrCodeContentFilter,
			fmt.Sprintf("%s: %s", ErrMsgContentFilter, resp.PromptFeedback.BlockReason))
	}
	if len(resp.Candidates) == 0 {
		return nil, NewLLMError(ErrCodeServerError, "empty response from API")
	}

	candidate := resp.Candidates[0]
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		text.WriteString(part.Text)
	}
	if text.Len() == 0 {
		if candidate.FinishReason == "SAFETY" {
			return nil, NewLLMError(ErrCodeContentFilter, ErrMsgContentFilter)
		}
		return nil, NewLLMError(ErrCodeServerError,
			fmt.Sprintf("empty response from API (finish reason: %s)", candidate.FinishReason))
	}

	return &Response{
		Text:         text.String(),
		TokenCount:   resp.UsageMetadata.TotalTokenCount,
		ModelName:    c.model,
		FinishReason: candidate.FinishReason,
		FinishTime:   time.Now(),
	}, nil
}

// toGeminiContents 转换为Gemini内容格式
func toGeminiContents(turns []Turn) ([]GeminiContent, error) {
	if len(turns) == 0 {
		return nil, NewLLMError(ErrCodeEmptyPrompt, ErrMsgEmptyPrompt)
	}

	contents := make([]GeminiContent, 0, len(turns))
	for _, turn := range turns {
		if len(turn.Parts) == 0 {
			return nil, NewLLMError(ErrCodeInvalidRequest, "turn has no parts")
		}

		parts := make([]GeminiPart, 0, len(turn.Parts))
		for _, p := range turn.Parts {
			if p.IsImage() {
				parts = append(parts, GeminiPart{
					InlineData: &GeminiInlineData{MimeType: p.MimeType, Data: p.Data},
				})
			} else {
				parts = append(parts, GeminiPart{Text: p.Text})
			}
		}
		contents = append(contents, GeminiContent{Role: string(turn.Role), Parts: parts})
	}
	return contents, nil
}

// 在包初始化时注册Gemini客户端
func init() {
	RegisterClient("gemini", NewGeminiClient)
}
