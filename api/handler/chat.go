package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shahidsi7/Pdf-ChatMate/api/middleware"
	"github.com/shahidsi7/Pdf-ChatMate/api/model"
	"github.com/shahidsi7/Pdf-ChatMate/internal/llm"
	"github.com/shahidsi7/Pdf-ChatMate/internal/services"
	"github.com/sirupsen/logrus"
)

// MsgNoMessage 对话消息为空
const MsgNoMessage = "No message provided"

// ChatHandler 处理对话相关的API请求
type ChatHandler struct {
	chatService *services.ChatService // 聊天服务
	logger      *logrus.Logger        // 日志记录器
}

// NewChatHandler 创建新的聊天处理器
func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      middleware.GetLogger(),
	}
}

// Chat 基于文档上下文回答消息
// POST /chat
func (h *ChatHandler) Chat(c *gin.Context) {
	apiKey := c.GetHeader(model.HeaderAPIKey)
	if apiKey == "" {
		middleware.HandleError(c, middleware.NewValidationError(MsgAPIKeyMissing))
		return
	}

	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithFields(logrus.Fields{
			middleware.FieldError:   err.Error(),
			middleware.FieldTraceID: c.GetString(middleware.TraceIDKey),
		}).Warn("Invalid chat request")
		middleware.HandleError(c, middleware.NewValidationError("Invalid request body: "+err.Error()))
		return
	}

	if req.Message == "" {
		middleware.HandleError(c, middleware.NewValidationError(MsgNoMessage))
		return
	}

	result, err := h.chatService.Reply(c.Request.Context(), apiKey, services.ChatRequest{
		Message:     req.Message,
		TextContext: string(req.PdfTextContext),
		Images:      req.Images(),
		History:     req.Turns(),
	})
	if err != nil {
		var genErr *llm.GenerationError
		switch {
		case errors.Is(err, services.ErrEmptyMessage):
			middleware.HandleError(c, middleware.NewValidationError(MsgNoMessage))
		case llm.IsConfigurationError(err):
			middleware.HandleError(c, middleware.NewInternalError(MsgConfigureFailed, err.Error()))
		case errors.As(err, &genErr):
			middleware.HandleError(c, middleware.NewInternalError(
				"Error communicating with Gemini: "+genErr.Err.Error()))
		default:
			middleware.HandleError(c, middleware.NewInternalError("Internal server error", err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, model.ChatResponse{
		Response:     result.Response,
		ResponseHTML: result.ResponseHTML,
	})
}
