package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shahidsi7/Pdf-ChatMate/api/middleware"
	"github.com/shahidsi7/Pdf-ChatMate/api/model"
	"github.com/shahidsi7/Pdf-ChatMate/internal/llm"
	"github.com/shahidsi7/Pdf-ChatMate/internal/services"
	"github.com/shahidsi7/Pdf-ChatMate/pkg/storage"
	"github.com/sirupsen/logrus"
)

// 错误消息
const (
	MsgAPIKeyMissing   = "Gemini API Key is missing"
	MsgConfigureFailed = "Failed to configure Gemini API"
	MsgNoFilePart      = "No file part"
	MsgNoSelectedFile  = "No selected file"
)

// multipart解析时保存在内存中的上限，超出部分写入临时文件
const multipartMemory = 8 << 20

// DocumentHandler 处理文档相关的API请求
type DocumentHandler struct {
	documentService *services.DocumentService // 文档服务
	fileStorage     storage.Storage           // 上传文件暂存
	tempDir         string                    // 远程存储下载目录
	maxUploadBytes  int64                     // 上传大小上限
	logger          *logrus.Logger            // 日志记录器
}

// DocumentHandlerOption 文档处理器配置选项
type DocumentHandlerOption func(*DocumentHandler)

// WithTempDir 设置远程存储下载目录
func WithTempDir(dir string) DocumentHandlerOption {
	return func(h *DocumentHandler) {
		h.tempDir = dir
	}
}

// WithMaxUploadBytes 设置上传大小上限，0表示不限制
func WithMaxUploadBytes(n int64) DocumentHandlerOption {
	return func(h *DocumentHandler) {
		h.maxUploadBytes = n
	}
}

// NewDocumentHandler 创建新的文档处理器
func NewDocumentHandler(documentService *services.DocumentService, fileStorage storage.Storage, opts ...DocumentHandlerOption) *DocumentHandler {
	h := &DocumentHandler{
		documentService: documentService,
		fileStorage:     fileStorage,
		logger:          middleware.GetLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Upload 处理文档上传请求
// POST /upload
func (h *DocumentHandler) Upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		if isTooLarge(err) {
			middleware.HandleError(c, middleware.NewValidationError(
				fmt.Sprintf("File exceeds the %d MB upload limit", h.maxUploadBytes>>20), err.Error()))
			return
		}
		h.logger.WithError(err).Debug("Upload is not a multipart form")
	}

	apiKey := c.PostForm(model.FormAPIKey)
	if apiKey == "" {
		middleware.HandleError(c, middleware.NewValidationError(MsgAPIKeyMissing))
		return
	}

	file, header, err := c.Request.FormFile(model.FormFile)
	if err != nil {
		// 未选择文件时浏览器仍会发送空文件名的file字段
		if _, ok := c.GetPostForm(model.FormFile); ok {
			middleware.HandleError(c, middleware.NewValidationError(MsgNoSelectedFile))
			return
		}
		middleware.HandleError(c, middleware.NewValidationError(MsgNoFilePart, err.Error()))
		return
	}
	defer file.Close()

	if header.Filename == "" {
		middleware.HandleError(c, middleware.NewValidationError(MsgNoSelectedFile))
		return
	}

	log := h.logger.WithFields(logrus.Fields{
		"filename":              header.Filename,
		"size":                  header.Size,
		middleware.FieldTraceID: c.GetString(middleware.TraceIDKey),
	})

	scratch, err := storage.Acquire(c.Request.Context(), h.fileStorage, file, header.Filename, h.tempDir)
	if err != nil {
		log.WithError(err).Error("Failed to store uploaded file")
		middleware.HandleError(c, middleware.NewInternalError("Failed to save uploaded file", err.Error()))
		return
	}
	defer func() {
		if err := scratch.Release(); err != nil {
			log.WithError(err).Error("Failed to remove uploaded file")
		}
	}()

	log.WithFields(logrus.Fields{
		"file_id":   scratch.Info.ID,
		"mime_type": scratch.Info.MimeType,
	}).Info("File uploaded successfully")

	result, err := h.documentService.Summarize(c.Request.Context(), scratch.LocalPath, apiKey)
	if err != nil {
		if llm.IsConfigurationError(err) {
			middleware.HandleError(c, middleware.NewInternalError(MsgConfigureFailed, err.Error()))
			return
		}
		middleware.HandleError(c, middleware.NewInternalError("Failed to process document", err.Error()))
		return
	}

	log.WithFields(logrus.Fields{
		"pages":    len(result.PagesLines),
		"images":   len(result.Images),
		"warnings": len(result.Warnings),
		"cached":   result.Cached,
	}).Info("Document processed")

	c.JSON(http.StatusOK, model.NewUploadResponse(result))
}

// isTooLarge 判断是否超出请求体大小限制
func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}
