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
	// 通义千问多模态API端点
	defaultTongyiEndpoint = "https://dashscope.aliyuncs.com/api/v1/services/aigc/multimodal-generation/generation"
)

// TongyiClient 通义千问大模型客户端实现
type TongyiClient struct {
	apiKey     string       // API密钥
	baseURL    string       // API端点
	model      string       // 模型名称
	httpClient *http.Client // HTTP客户端
	maxRetries int          // 最大重试次数
	defaults   generateDefaults
}

// NewTongyiClient 创建新的通义千问大模型客户端
func NewTongyiClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	if cfg.APIKey == "" {
		return nil, NewLLMError(ErrCodeInvalidAPIKey, ErrMsgInvalidAPIKey)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultTongyiEndpoint
	}

	model := cfg.Model
	if model == "" {
		model = ModelQwenVLPlus
	}

	return &TongyiClient{
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
func (c *TongyiClient) Name() string {
	return c.model
}

// Generate 根据多轮内容生成回答
func (c *TongyiClient) Generate(ctx context.Context, turns []Turn, options ...GenerateOption) (*Response, error) {
	messages, err := toTongyiMessages(turns)
	if err != nil {
		return nil, err
	}

	opts := applyGenerateOptions(c.defaults, options)
	req := &TongyiRequest{
		Model: c.model,
		Input: &TongyiRequestInput{
			Messages: messages,
		},
		Parameters: &TongyiParameters{
			MaxTokens:   opts.MaxTokens,
			Temperature: opts.Temperature,
			TopP:        opts.TopP,
			TopK:        opts.TopK,
		},
	}

	resp, err := c.sendRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	return c.processResponse(resp)
}

// sendRequest 发送API请求并解析响应
func (c *TongyiClient) sendRequest(ctx context.Context, req *TongyiRequest) (*TongyiResponse, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, NewLLMError(ErrCodeInvalidRequest, fmt.Sprintf("failed to marshal request: %v", err))
	}

	headers := map[string]string{
		"Content-Type":  "application/json",
		"Accept":        "application/json",
		"Authorization": fmt.Sprintf("Bearer %s", c.apiKey),
	}

	result, err := doRequest(ctx, c.httpClient, c.maxRetries, http.MethodPost, c.baseURL, headers, jsonData)
	if err != nil {
		return nil, err
	}

	var tongyiResp TongyiResponse
	jsonErr := json.Unmarshal(result.Body, &tongyiResp)

	if result.StatusCode != http.StatusOK {
		if jsonErr == nil && tongyiResp.Message != "" {
			return nil, classifyStatus(result.StatusCode,
				fmt.Sprintf("%s (%s)", tongyiResp.Message, tongyiResp.Code))
		}
		return nil, classifyStatus(result.StatusCode, truncate(string(result.Body), 500))
	}

	if jsonErr != nil {
		return nil, NewLLMError(ErrCodeServerError, fmt.Sprintf("failed to parse response: %v", jsonErr))
	}

	if tongyiResp.Code != "" {
		return nil, NewLLMError(ErrCodeServerError,
			fmt.Sprintf("API error: %s (%s)", tongyiResp.Message, tongyiResp.Code))
	}

	return &tongyiResp, nil
}

// processResponse 处理通义千问的响应
func (c *TongyiClient) processResponse(resp *TongyiResponse) (*Response, error) {
	if len(resp.Output.Choices) == 0 {
		return nil, NewLLMError(ErrCodeServerError, "empty response from API")
	}

	choice := resp.Output.Choices[0]
	var text strings.Builder
	for _, content := range choice.Message.Content {
		text.WriteString(content.Text)
	}

	return &Response{
		Text:         text.String(),
		TokenCount:   resp.Usage.InputTokens + resp.Usage.OutputTokens,
		ModelName:    c.model,
		FinishReason: choice.FinishReason,
		FinishTime:   time.Now(),
	}, nil
}

// toTongyiMessages 转换为DashScope多模态消息，图片以data URL传递
func toTongyiMessages(turns []Turn) ([]TongyiMessage, error) {
	if len(turns) == 0 {
		return nil, NewLLMError(ErrCodeEmptyPrompt, ErrMsgEmptyPrompt)
	}

	messages := make([]TongyiMessage, 0, len(turns))
	for _, turn := range turns {
		if len(turn.Parts) == 0 {
			return nil, NewLLMError(ErrCodeInvalidRequest, "turn has no parts")
		}

		role := "user"
		if turn.Role == RoleModel {
			role = "assistant"
		}

		content := make([]TongyiContent, 0, len(turn.Parts))
		for _, p := range turn.Parts {
			if p.IsImage() {
				content = append(content, TongyiContent{
					Image: fmt.Sprintf("data:%s;base64,%s", p.MimeType, p.Data),
				})
			} else {
				content = append(content, TongyiContent{Text: p.Text})
			}
		}
		messages = append(messages, TongyiMessage{Role: role, Content: content})
	}
	return messages, nil
}

// 在包初始化时注册通义千问客户端
func init() {
	RegisterClient("tongyi", NewTongyiClient)
}
