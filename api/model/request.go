package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shahidsi7/Pdf-ChatMate/internal/llm"
)

// 请求中的表单字段和请求头
const (
	FormAPIKey   = "gemini_api_key"   // 上传接口的凭证字段
	FormFile     = "file"             // 上传接口的文件字段
	HeaderAPIKey = "X-Gemini-Api-Key" // 对话接口的凭证请求头
)

// ChatRequest 对话请求
// message在处理器中单独校验，以返回固定的错误消息
type ChatRequest struct {
	Message         string         `json:"message"`
	PdfTextContext  TextContext    `json:"pdf_text_context"`
	PdfImageContext []ImageContext `json:"pdf_image_context" binding:"omitempty,dive"`
	History         []HistoryTurn  `json:"history" binding:"omitempty,dive"`
}

// ImageContext 客户端回传的图片上下文
// 可直接回传上传接口返回的extracted_images
type ImageContext struct {
	Data       string `json:"data" binding:"required,base64"`
	Ext        string `json:"ext" binding:"required,imageformat"`
	PageNum    int    `json:"page_num,omitempty"`
	ImageIndex int    `json:"image_index,omitempty"`
}

// HistoryTurn 之前的一轮对话
type HistoryTurn struct {
	Role string `json:"role" binding:"required,oneof=user model"`
	Text string `json:"text" binding:"required"`
}

// TextContext 文本上下文
// 接受上传接口返回的pages_lines，也接受已展平的字符串
type TextContext string

// UnmarshalJSON 实现json.Unmarshaler接口
func (t *TextContext) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = TextContext(s)
	case '[':
		var pages [][]string
		if err := json.Unmarshal(data, &pages); err != nil {
			return fmt.Errorf("pdf_text_context must be a string or a list of pages: %w", err)
		}
		*t = TextContext(llm.FlattenText(pages))
	default:
		return fmt.Errorf("pdf_text_context must be a string or a list of pages")
	}
	return nil
}

// Images 转换为模型输入的图片
func (r *ChatRequest) Images() []llm.Image {
	images := make([]llm.Image, 0, len(r.PdfImageContext))
	for _, img := range r.PdfImageContext {
		images = append(images, llm.Image{Data: img.Data, Format: NormalizeImageExt(img.Ext)})
	}
	return images
}

// Turns 转换为模型输入的历史轮次
func (r *ChatRequest) Turns() []llm.Turn {
	turns := make([]llm.Turn, 0, len(r.History))
	for _, h := range r.History {
		turns = append(turns, llm.Turn{
			Role:  llm.Role(h.Role),
			Parts: []llm.Part{llm.TextPart(h.Text)},
		})
	}
	return turns
}
