package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用程序配置结构体
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Storage StorageConfig `mapstructure:"storage"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Prompt  PromptConfig  `mapstructure:"prompt"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`          // 服务器主机
	Port         int           `mapstructure:"port"`          // 服务器端口
	Mode         string        `mapstructure:"mode"`          // 运行模式 debug/release/test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`  // 读取超时
	WriteTimeout time.Duration `mapstructure:"write_timeout"` // 写入超时，需覆盖摘要生成耗时
	CORSOrigins  []string      `mapstructure:"cors_origins"`  // 允许的跨域来源
	MaxUploadMB  int64         `mapstructure:"max_upload_mb"` // 上传大小上限(MB)
}

// UploadConfig 上传文件暂存配置
type UploadConfig struct {
	Dir string `mapstructure:"dir"` // 暂存目录，可由UPLOAD_FOLDER覆盖
}

// StorageConfig 存储配置
type StorageConfig struct {
	Type      string `mapstructure:"type"`     // 存储类型：local 或 minio
	Bucket    string `mapstructure:"bucket"`   // MinIO桶名称
	Prefix    string `mapstructure:"prefix"`   // MinIO对象名前缀
	Endpoint  string `mapstructure:"endpoint"` // MinIO端点
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"` // 是否使用SSL
}

// LLMConfig 大语言模型配置
// 凭证由每个请求携带，这里只有模型和传输参数
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`    // 提供商：gemini, tongyi
	Model       string        `mapstructure:"model"`       // 模型名称
	Endpoint    string        `mapstructure:"endpoint"`    // API端点，为空使用提供商默认值
	Timeout     time.Duration `mapstructure:"timeout"`     // 单次请求超时
	MaxRetries  int           `mapstructure:"max_retries"` // 最大重试次数
	MaxTokens   int           `mapstructure:"max_tokens"`  // 最大生成token数量
	Temperature float32       `mapstructure:"temperature"` // 采样温度
	TopP        float32       `mapstructure:"top_p"`       // 核采样阈值
	VerifyKey   bool          `mapstructure:"verify_key"`  // 创建客户端时是否验证凭证
	ClientTTL   time.Duration `mapstructure:"client_ttl"`  // 客户端缓存时间
}

// PromptConfig 提示词配置
type PromptConfig struct {
	SummaryInstruction string `mapstructure:"summary_instruction"` // 摘要指令，为空使用内置指令
	ImageSpacers       bool   `mapstructure:"image_spacers"`       // 每张图片后是否追加分隔文本
}

// CacheConfig 摘要缓存配置
// 仅在llm.verify_key开启时生效
type CacheConfig struct {
	Enable   bool   `mapstructure:"enable"`   // 是否启用缓存
	Type     string `mapstructure:"type"`     // 缓存类型：memory 或 redis
	Address  string `mapstructure:"address"`  // Redis地址
	Password string `mapstructure:"password"` // Redis密码
	DB       int    `mapstructure:"db"`       // Redis数据库
	TTL      int    `mapstructure:"ttl"`      // 缓存TTL（秒）
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`        // 日志级别
	File       string `mapstructure:"file"`         // 日志文件，为空只输出到标准输出
	MaxSizeMB  int    `mapstructure:"max_size_mb"`  // 单个文件最大大小
	MaxBackups int    `mapstructure:"max_backups"`  // 保留的旧文件数量
	MaxAgeDays int    `mapstructure:"max_age_days"` // 旧文件保留天数
	Compress   bool   `mapstructure:"compress"`     // 是否压缩旧文件
}

// Load 从文件和环境变量加载配置
// configPath为空或文件不存在时使用默认值
func Load(configPath string) (*Config, error) {
	var config Config

	// 初始化viper
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
				log.Printf("Warning: Config file not found at %s, using defaults", configPath)
			} else {
				return nil, fmt.Errorf("failed to read config file: %v", err)
			}
		} else {
			log.Printf("Using config file: %s", v.ConfigFileUsed())
		}
	}

	// 支持环境变量覆盖
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("upload.dir", "UPLOAD_FOLDER", "UPLOAD_DIR")

	// 解析配置到结构体
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}

	return processEnvironmentVariables(&config), nil
}

// processEnvironmentVariables 展开配置值中的${ENV}引用
func processEnvironmentVariables(cfg *Config) *Config {
	for _, field := range []*string{
		&cfg.Storage.AccessKey,
		&cfg.Storage.SecretKey,
		&cfg.Storage.Endpoint,
		&cfg.Cache.Password,
		&cfg.Cache.Address,
	} {
		*field = expandEnv(*field)
	}
	return cfg
}

// expandEnv 整个值为${NAME}时替换为环境变量，变量为空时保留原值
func expandEnv(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		if envVal := os.Getenv(value[2 : len(value)-1]); envVal != "" {
			return envVal
		}
	}
	return value
}

// setDefaults 设置配置的默认值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "60s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.cors_origins", []string{"http://localhost:8000"})
	v.SetDefault("server.max_upload_mb", 32)

	// 上传暂存默认配置
	v.SetDefault("upload.dir", "/tmp/uploads")

	// 存储默认配置
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.bucket", "pdfchatmate")
	v.SetDefault("storage.prefix", "uploads")
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.use_ssl", false)

	// LLM默认配置
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "gemini-2.0-flash")
	v.SetDefault("llm.endpoint", "")
	v.SetDefault("llm.timeout", "120s")
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.top_p", 0.95)
	v.SetDefault("llm.verify_key", true)
	v.SetDefault("llm.client_ttl", "30m")

	// 提示词默认配置
	v.SetDefault("prompt.summary_instruction", "")
	v.SetDefault("prompt.image_spacers", true)

	// 缓存默认配置
	v.SetDefault("cache.enable", true)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.address", "localhost:6379")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 86400) // 24小时

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", false)
}
