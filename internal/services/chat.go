package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shahidsi7/Pdf-ChatMate/internal/document"
	"github.com/shahidsi7/Pdf-ChatMate/internal/llm"
	"github.com/sirupsen/logrus"
)

// ErrEmptyMessage 对话消息为空
var ErrEmptyMessage = errors.New("no message provided")

// ChatRequest 一次对话请求
// 上下文由客户端在每一轮完整重发
type ChatRequest struct {
	Message     string      // 新消息
	TextContext string      // 文档文本上下文
	Images      []llm.Image // 文档图片上下文
	History     []llm.Turn  // 之前的对话轮次
}

// ChatResult 对话结果
type ChatResult struct {
	Response     string // Markdown回答
	ResponseHTML string // 渲染后的回答
}

// ChatService 聊天服务
// 无服务端会话状态
type ChatService struct {
	clients   ClientProvider // 模型客户端
	assembler *llm.Assembler // 提示词组装
	timeout   time.Duration  // 生成超时时间
	logger    *logrus.Logger // 日志记录器
}

// ChatOption 聊天服务配置选项
type ChatOption func(*ChatService)

// NewChatService 创建聊天服务实例
func NewChatService(clients ClientProvider, opts ...ChatOption) *ChatService {
	service := &ChatService{
		clients:   clients,
		assembler: llm.NewAssembler(),
		timeout:   2 * time.Minute,
		logger:    logrus.New(),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

// WithChatLogger 设置日志记录器
func WithChatLogger(logger *logrus.Logger) ChatOption {
	return func(s *ChatService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithChatTimeout 设置生成超时时间
func WithChatTimeout(timeout time.Duration) ChatOption {
	return func(s *ChatService) {
		s.timeout = timeout
	}
}

// WithChatAssembler 设置提示词组装器
func WithChatAssembler(assembler *llm.Assembler) ChatOption {
	return func(s *ChatService) {
		if assembler != nil {
			s.assembler = assembler
		}
	}
}

// Reply 根据文档上下文和历史回答新消息
// 配置失败返回*llm.ConfigurationError，生成失败返回*llm.GenerationError
func (s *ChatService) Reply(ctx context.Context, apiKey string, req ChatRequest) (*ChatResult, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}

	log := s.logger.WithFields(logrus.Fields{
		"fingerprint": llm.Fingerprint(apiKey),
		"text_chars":  len(req.TextContext),
		"images":      len(req.Images),
		"history":     len(req.History),
	})

	client, err := s.clients.Get(ctx, apiKey)
	if err != nil {
		log.WithError(err).Error("Failed to configure LLM client")
		return nil, err
	}

	turns := s.assembler.AssembleChat(req.TextContext, req.Images, req.History, req.Message)

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	resp, err := client.Generate(genCtx, turns)
	if err != nil {
		invalidateOnKeyError(s.clients, apiKey, err)
		log.WithError(err).Error("Chat generation failed")
		return nil, &llm.GenerationError{Model: client.Name(), Err: err}
	}

	log.WithFields(logrus.Fields{
		"turns":    len(turns),
		"tokens":   resp.TokenCount,
		"duration": time.Since(start).String(),
	}).Info("Chat reply generated")

	return &ChatResult{
		Response:     resp.Text,
		ResponseHTML: document.RenderMarkdown(resp.Text),
	}, nil
}
