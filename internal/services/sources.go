package services

import (
	"context"

	"github.com/shahidsi7/Pdf-ChatMate/internal/document"
	"github.com/shahidsi7/Pdf-ChatMate/internal/llm"
)

// TextSource 按页提取分句后的文本
type TextSource interface {
	ExtractLines(path string) ([][]string, error)
}

// ImageSource 提取文档中的嵌入图片
type ImageSource interface {
	Extract(path string) ([]document.ExtractedImage, error)
}

// ClientProvider 按凭证提供已配置的模型客户端
type ClientProvider interface {
	Get(ctx context.Context, apiKey string) (llm.Client, error)
	Invalidate(apiKey string)
}

// toLLMImages 转换为模型输入的图片
func toLLMImages(images []document.ExtractedImage) []llm.Image {
	out := make([]llm.Image, 0, len(images))
	for _, img := range images {
		out = append(out, llm.Image{Data: img.Data, Format: img.Ext})
	}
	return out
}

// invalidateOnKeyError 凭证在生成时被拒绝，移除缓存的客户端
func invalidateOnKeyError(clients ClientProvider, apiKey string, err error) {
	if llm.ErrorCode(err) == llm.ErrCodeInvalidAPIKey {
		clients.Invalidate(apiKey)
	}
}
