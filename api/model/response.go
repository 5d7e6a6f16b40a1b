package model

import (
	"github.com/shahidsi7/Pdf-ChatMate/internal/document"
	"github.com/shahidsi7/Pdf-ChatMate/internal/services"
)

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{Error: message}
}

// UploadResponse 上传接口响应
type UploadResponse struct {
	PagesLines      [][]string                `json:"pages_lines"`      // 按页分句的文本
	ExtractedImages []document.ExtractedImage `json:"extracted_images"` // 提取的图片
	PdfSummary      string                    `json:"pdf_summary"`      // Markdown摘要
	PdfSummaryHTML  string                    `json:"pdf_summary_html"` // 渲染后的摘要
	Warnings        []string                  `json:"warnings"`         // 非致命问题
}

// NewUploadResponse 由处理结果创建上传响应
func NewUploadResponse(result *services.SummaryResult) *UploadResponse {
	return &UploadResponse{
		PagesLines:      result.PagesLines,
		ExtractedImages: result.Images,
		PdfSummary:      result.Summary,
		PdfSummaryHTML:  result.SummaryHTML,
		Warnings:        result.Warnings,
	}
}

// ChatResponse 对话接口响应
type ChatResponse struct {
	Response     string `json:"response"`
	ResponseHTML string `json:"response_html"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status string `json:"status"`
}
