package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/shahidsi7/Pdf-ChatMate/api"
	"github.com/shahidsi7/Pdf-ChatMate/api/handler"
	"github.com/shahidsi7/Pdf-ChatMate/api/middleware"
	appconfig "github.com/shahidsi7/Pdf-ChatMate/config"
	"github.com/shahidsi7/Pdf-ChatMate/internal/cache"
	"github.com/shahidsi7/Pdf-ChatMate/internal/document"
	"github.com/shahidsi7/Pdf-ChatMate/internal/llm"
	"github.com/shahidsi7/Pdf-ChatMate/internal/services"
	"github.com/shahidsi7/Pdf-ChatMate/pkg/storage"
	"github.com/sirupsen/logrus"
)

// 命令行参数
type flags struct {
	Port       int    // 服务端口
	Mode       string // 运行模式 (debug/release)
	LogLevel   string // 日志级别
	ConfigFile string // 配置文件路径
}

func main() {
	// .env不存在时忽略
	_ = godotenv.Load()

	// 解析命令行参数
	f := parseFlags()

	cfg, err := appconfig.Load(f.ConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	applyFlags(f, cfg)

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	// 初始化日志
	logger, closer, err := setupLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to configure logger: %v\n", err)
		os.Exit(1)
	}
	defer closer()
	logger.Info("Starting PDF ChatMate...")

	ctx := context.Background()

	// 创建文件存储服务
	fileStorage, err := setupStorage(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	// 创建模型客户端池
	pool := setupLLM(cfg.LLM, logger)

	// 初始化业务服务
	assembler := setupAssembler(cfg.Prompt)
	docOptions := []services.DocumentOption{
		services.WithLogger(logger),
		services.WithTimeout(cfg.LLM.Timeout),
		services.WithAssembler(assembler),
	}
	if summaryCacheEnabled(cfg, logger) {
		summaryCache, err := setupCache(cfg.Cache)
		if err != nil {
			logger.WithError(err).Warn("Summary cache unavailable, continuing without cache")
		} else {
			docOptions = append(docOptions, services.WithSummaryCache(summaryCache, time.Duration(cfg.Cache.TTL)*time.Second))
			logger.WithField("type", cfg.Cache.Type).Info("Summary cache enabled")
		}
	}

	documentService := services.NewDocumentService(
		document.NewTextExtractor(),
		document.NewImageExtractor(),
		pool,
		docOptions...,
	)
	chatService := services.NewChatService(pool,
		services.WithChatLogger(logger),
		services.WithChatTimeout(cfg.LLM.Timeout),
		services.WithChatAssembler(assembler),
	)

	// 初始化API处理器
	docHandler := handler.NewDocumentHandler(documentService, fileStorage,
		handler.WithTempDir(cfg.Upload.Dir),
		handler.WithMaxUploadBytes(cfg.Server.MaxUploadMB<<20),
	)
	chatHandler := handler.NewChatHandler(chatService)

	// 设置路由
	r := api.SetupRouter(docHandler, chatHandler, cfg.Server.CORSOrigins)

	// 启动HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 优雅关闭
	go func() {
		logger.Infof("Server is running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 等待终止信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// parseFlags 解析命令行参数
func parseFlags() flags {
	f := flags{}

	flag.IntVar(&f.Port, "port", 5000, "Server port")
	flag.StringVar(&f.Mode, "mode", "release", "Run mode (debug/release)")
	flag.StringVar(&f.LogLevel, "log-level", "info", "Log level (debug/info/warn/error)")
	flag.StringVar(&f.ConfigFile, "config", "", "Path to config file")

	flag.Parse()
	return f
}

// applyFlags 命令行上明确设置的参数覆盖配置文件
func applyFlags(f flags, cfg *appconfig.Config) {
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "port":
			cfg.Server.Port = f.Port
		case "mode":
			cfg.Server.Mode = f.Mode
		case "log-level":
			cfg.Log.Level = f.LogLevel
		}
	})
}

// setupLogger 设置日志系统
func setupLogger(cfg appconfig.LogConfig) (*logrus.Logger, func(), error) {
	closer, err := middleware.ConfigureLogger(middleware.LogConfig{
		Level:      cfg.Level,
		File:       cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	})
	if err != nil {
		return nil, nil, err
	}
	return middleware.GetLogger(), func() { _ = closer.Close() }, nil
}

// setupStorage 设置上传文件暂存
func setupStorage(ctx context.Context, cfg *appconfig.Config) (storage.Storage, error) {
	if err := os.MkdirAll(cfg.Upload.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %v", err)
	}

	return storage.New(ctx, storage.Config{
		Type:  cfg.Storage.Type,
		Local: storage.LocalConfig{Path: cfg.Upload.Dir},
		Minio: storage.MinioConfig{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
			Bucket:    cfg.Storage.Bucket,
			Prefix:    cfg.Storage.Prefix,
		},
	})
}

// setupLLM 设置按凭证缓存的模型客户端池
func setupLLM(cfg appconfig.LLMConfig, logger *logrus.Logger) *llm.Pool {
	clientOpts := []llm.Option{
		llm.WithModel(cfg.Model),
		llm.WithTimeout(cfg.Timeout),
		llm.WithMaxRetries(cfg.MaxRetries),
		llm.WithMaxTokens(cfg.MaxTokens),
		llm.WithTemperature(cfg.Temperature),
		llm.WithTopP(cfg.TopP),
	}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, llm.WithBaseURL(cfg.Endpoint))
	}

	logger.WithFields(logrus.Fields{
		"provider":   cfg.Provider,
		"model":      cfg.Model,
		"verify_key": cfg.VerifyKey,
	}).Info("Model client pool configured")

	return llm.NewPool(cfg.Provider, cfg.ClientTTL,
		llm.WithClientOptions(clientOpts...),
		llm.WithVerify(cfg.VerifyKey),
		llm.WithPoolLogger(logger),
	)
}

// setupAssembler 根据提示词配置创建组装器
func setupAssembler(cfg appconfig.PromptConfig) *llm.Assembler {
	opts := []llm.AssemblerOption{llm.WithImageSpacers(cfg.ImageSpacers)}
	if strings.TrimSpace(cfg.SummaryInstruction) != "" {
		opts = append(opts, llm.WithInstruction(cfg.SummaryInstruction))
	}
	return llm.NewAssembler(opts...)
}

// summaryCacheEnabled 判断是否启用摘要缓存
// 缓存键不含凭证，关闭凭证校验时不启用
func summaryCacheEnabled(cfg *appconfig.Config, logger *logrus.Logger) bool {
	if !cfg.Cache.Enable {
		return false
	}
	if !cfg.LLM.VerifyKey {
		logger.Warn("Summary cache disabled because llm.verify_key is off")
		return false
	}
	return true
}

// setupCache 设置摘要缓存
func setupCache(cfg appconfig.CacheConfig) (cache.Cache, error) {
	cacheConfig := cache.DefaultConfig()
	cacheConfig.Type = cfg.Type
	cacheConfig.DefaultTTL = time.Duration(cfg.TTL) * time.Second

	if cfg.Type == "redis" {
		cacheConfig.RedisAddr = cfg.Address
		cacheConfig.RedisPassword = cfg.Password
		cacheConfig.RedisDB = cfg.DB
	}

	return cache.NewCache(cacheConfig)
}
