package llm

import "time"

// Role 对话角色
type Role string

const (
	// RoleUser 用户角色
	RoleUser Role = "user"
	// RoleModel 模型角色
	RoleModel Role = "model"
)

// Part 内容片段，文本或图片二选一
type Part struct {
	Text     string `json:"text,omitempty"`      // 文本内容
	MimeType string `json:"mime_type,omitempty"` // 图片MIME类型，如image/png
	Data     string `json:"data,omitempty"`      // Base64编码的图片数据
}

// TextPart 创建文本片段
func TextPart(text string) Part {
	return Part{Text: text}
}

// ImagePart 创建图片片段
func ImagePart(mimeType, data string) Part {
	return Part{MimeType: mimeType, Data: data}
}

// IsImage 判断是否为图片片段
func (p Part) IsImage() bool {
	return p.MimeType != ""
}

// Turn 一轮对话
type Turn struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// UserTurn 创建用户轮次
func UserTurn(parts ...Part) Turn {
	return Turn{Role: RoleUser, Parts: parts}
}

// Response 统一的响应结构
type Response struct {
	Text         string    // 生成的文本
	TokenCount   int       // 使用的token数
	ModelName    string    // 使用的模型名称
	FinishReason string    // 结束原因
	FinishTime   time.Time // 完成时间
}

// GeminiRequest Gemini generateContent请求
type GeminiRequest struct {
	Contents         []GeminiContent         `json:"contents"`
	GenerationConfig *GeminiGenerationConfig `json:"generationConfig,omitempty"`
}

// GeminiContent 一轮对话内容
type GeminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []GeminiPart `json:"parts"`
}

// GeminiPart 内容片段
type GeminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *GeminiInlineData `json:"inlineData,omitempty"`
}

// GeminiInlineData 内联二进制数据
type GeminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// GeminiGenerationConfig 生成参数
type GeminiGenerationConfig struct {
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	Temperature     *float32 `json:"temperature,omitempty"`
	TopP            *float32 `json:"topP,omitempty"`
	TopK            *int     `json:"topK,omitempty"`
}

// GeminiResponse generateContent响应
type GeminiResponse struct {
	Candidates     []GeminiCandidate     `json:"candidates"`
	PromptFeedback *GeminiPromptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  GeminiUsage           `json:"usageMetadata"`
	ModelVersion   string                `json:"modelVersion"`
}

// GeminiCandidate 候选回答
type GeminiCandidate struct {
	Content      GeminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

// GeminiPromptFeedback 提示词安全反馈
type GeminiPromptFeedback struct {
	BlockReason string `json:"blockReason"`
}

// GeminiUsage token使用情况
type GeminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// GeminiErrorResponse 错误响应
type GeminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// TongyiRequest 通义千问多模态请求结构
type TongyiRequest struct {
	Model      string              `json:"model"`                // 模型名称
	Input      *TongyiRequestInput `json:"input"`                // 输入内容
	Parameters *TongyiParameters   `json:"parameters,omitempty"` // 可选参数
}

// TongyiRequestInput 请求输入内容
type TongyiRequestInput struct {
	Messages []TongyiMessage `json:"messages"` // 消息列表
}

// TongyiMessage 多模态消息
type TongyiMessage struct {
	Role    string          `json:"role"`
	Content []TongyiContent `json:"content"`
}

// TongyiContent 多模态内容片段，image为data URL
type TongyiContent struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

// TongyiParameters 请求参数
type TongyiParameters struct {
	Temperature *float32 `json:"temperature,omitempty"` // 采样温度
	TopP        *float32 `json:"top_p,omitempty"`       // 核采样概率阈值
	TopK        *int     `json:"top_k,omitempty"`       // 生成候选集大小
	MaxTokens   *int     `json:"max_tokens,omitempty"`  // 最大生成Token数
}

// TongyiResponse 通义千问响应结构
type TongyiResponse struct {
	RequestID string       `json:"request_id"` // 请求ID
	Code      string       `json:"code"`       // 错误码(如果有)
	Message   string       `json:"message"`    // 错误消息(如果有)
	Output    TongyiOutput `json:"output"`     // 输出结果
	Usage     TongyiUsage  `json:"usage"`      // 资源使用情况
}

// TongyiOutput 输出结构
type TongyiOutput struct {
	Choices []TongyiChoice `json:"choices"`
}

// TongyiChoice 输出选择
type TongyiChoice struct {
	FinishReason string        `json:"finish_reason"` // 结束原因
	Message      TongyiMessage `json:"message"`       // 消息内容
}

// TongyiUsage 资源使用情况
type TongyiUsage struct {
	InputTokens  int `json:"input_tokens"`  // 输入token数
	OutputTokens int `json:"output_tokens"` // 输出token数
}

// Model 常用模型名称
const (
	ModelGeminiFlash = "gemini-2.0-flash" // Gemini 2.0 Flash（默认）
	ModelGeminiPro   = "gemini-1.5-pro"   // Gemini 1.5 Pro
	ModelQwenVLPlus  = "qwen-vl-plus"     // 通义千问VL-Plus模型（支持图像）
	ModelQwenVLMax   = "qwen-vl-max"      // 通义千问VL-Max模型
)
