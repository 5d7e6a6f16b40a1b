package services

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/shahidsi7/Pdf-ChatMate/internal/cache"
	"github.com/shahidsi7/Pdf-ChatMate/internal/document"
	"github.com/shahidsi7/Pdf-ChatMate/internal/llm"
	"github.com/sirupsen/logrus"
)

// FallbackSummary 摘要生成失败时返回的文本
const FallbackSummary = "Could not generate summary due to an API error."

// SummaryResult 文档处理结果
// 提取结果总是返回，供后续对话作为上下文
type SummaryResult struct {
	PagesLines  [][]string                // 按页分句的文本
	Images      []document.ExtractedImage // 提取的图片
	Summary     string                    // Markdown摘要
	SummaryHTML string                    // 渲染后的摘要
	Warnings    []string                  // 非致命问题
	Cached      bool                      // 摘要是否来自缓存
}

// DocumentService 文档服务
// 负责协调文本提取、图片提取和摘要生成
type DocumentService struct {
	text      TextSource     // 文本提取
	images    ImageSource    // 图片提取
	clients   ClientProvider // 模型客户端
	assembler *llm.Assembler // 提示词组装
	cache     cache.Cache    // 摘要缓存(可选)
	cacheTTL  time.Duration  // 摘要缓存过期时间
	timeout   time.Duration  // 生成超时时间
	logger    *logrus.Logger // 日志记录器
}

// DocumentOption 文档服务配置选项
type DocumentOption func(*DocumentService)

// NewDocumentService 创建一个新的文档服务
func NewDocumentService(text TextSource, images ImageSource, clients ClientProvider, opts ...DocumentOption) *DocumentService {
	srv := &DocumentService{
		text:      text,
		images:    images,
		clients:   clients,
		assembler: llm.NewAssembler(),
		timeout:   2 * time.Minute,
		logger:    logrus.New(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	return srv
}

// WithAssembler 设置提示词组装器
func WithAssembler(assembler *llm.Assembler) DocumentOption {
	return func(s *DocumentService) {
		if assembler != nil {
			s.assembler = assembler
		}
	}
}

// WithSummaryCache 设置摘要缓存
func WithSummaryCache(c cache.Cache, ttl time.Duration) DocumentOption {
	return func(s *DocumentService) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithTimeout 设置生成超时时间
func WithTimeout(timeout time.Duration) DocumentOption {
	return func(s *DocumentService) {
		s.timeout = timeout
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) DocumentOption {
	return func(s *DocumentService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Summarize 提取文档的文本和图片并生成摘要
// 只有客户端配置失败会返回错误，提取和生成失败记录在Warnings中
func (s *DocumentService) Summarize(ctx context.Context, path, apiKey string) (*SummaryResult, error) {
	log := s.logger.WithFields(logrus.Fields{
		"file":        path,
		"fingerprint": llm.Fingerprint(apiKey),
	})

	client, err := s.clients.Get(ctx, apiKey)
	if err != nil {
		log.WithError(err).Error("Failed to configure LLM client")
		return nil, err
	}

	result := &SummaryResult{
		PagesLines: [][]string{},
		Images:     []document.ExtractedImage{},
		Warnings:   []string{},
	}

	if mime, isPDF, err := document.SniffPDF(path); err == nil && !isPDF {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Uploaded file does not look like a PDF (detected %s)", mime))
	}

	var (
		wg              sync.WaitGroup
		textErr, imgErr error
		pagesLines      [][]string
		extractedImages []document.ExtractedImage
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		pagesLines, textErr = s.text.ExtractLines(path)
	}()
	go func() {
		defer wg.Done()
		extractedImages, imgErr = s.images.Extract(path)
	}()
	wg.Wait()

	if textErr != nil {
		log.WithError(textErr).Warn("Text extraction failed")
		result.Warnings = append(result.Warnings, fmt.Sprintf("Error extracting text: %v", textErr))
	} else if pagesLines != nil {
		result.PagesLines = pagesLines
	}

	if imgErr != nil {
		log.WithFields(logrus.Fields{
			"kind":  document.ImageErrorKindOf(imgErr).String(),
			"error": imgErr.Error(),
		}).Warn("Image extraction failed")
		result.Warnings = append(result.Warnings, fmt.Sprintf("Error extracting images: %v", imgErr))
	} else if extractedImages != nil {
		result.Images = extractedImages
	}

	log.WithFields(logrus.Fields{
		"pages":  len(result.PagesLines),
		"images": len(result.Images),
	}).Info("Document extracted")

	cacheKey := s.summaryKey(path, client.Name())
	if summary, ok := s.cachedSummary(ctx, cacheKey); ok {
		result.Summary = summary
		result.Cached = true
	} else {
		summary, err := s.generate(ctx, client, result)
		if err != nil {
			invalidateOnKeyError(s.clients, apiKey, err)
			log.WithError(err).Error("Summary generation failed")
			result.Warnings = append(result.Warnings, fmt.Sprintf("Error generating PDF summary: %v", err))
			result.Summary = FallbackSummary
		} else {
			result.Summary = summary
			s.storeSummary(ctx, cacheKey, summary)
		}
	}

	result.SummaryHTML = document.RenderMarkdown(result.Summary)
	return result, nil
}

// generate 组装摘要请求并调用模型
func (s *DocumentService) generate(ctx context.Context, client llm.Client, result *SummaryResult) (string, error) {
	parts := s.assembler.AssembleSummary(result.PagesLines, toLLMImages(result.Images))

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := client.Generate(genCtx, []llm.Turn{llm.UserTurn(parts...)})
	if err != nil {
		return "", &llm.GenerationError{Model: client.Name(), Err: err}
	}
	return resp.Text, nil
}

// summaryKey 计算摘要缓存键，未启用缓存或读取失败返回空
func (s *DocumentService) summaryKey(path, model string) string {
	if s.cache == nil {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to hash document for summary cache")
		return ""
	}
	return cache.SummaryKey(model, cache.DocumentHash(data))
}

func (s *DocumentService) cachedSummary(ctx context.Context, key string) (string, bool) {
	if key == "" {
		return "", false
	}
	summary, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WithError(err).Warn("Summary cache lookup failed")
		return "", false
	}
	if found {
		s.logger.WithField("key", key).Debug("Summary cache hit")
	}
	return summary, found
}

func (s *DocumentService) storeSummary(ctx context.Context, key, summary string) {
	if key == "" {
		return
	}
	if err := s.cache.Set(ctx, key, summary, s.cacheTTL); err != nil {
		s.logger.WithError(err).Warn("Failed to store summary in cache")
	}
}
