package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Pool 按凭证缓存已配置的客户端
// 同一密钥的并发构建只执行一次，凭证明文不作为键保存
type Pool struct {
	provider      string         // 提供商名称，对应RegisterClient注册的名字
	opts          []Option       // 构建客户端时附加的选项
	verify        bool           // 构建时是否校验凭证
	verifyTimeout time.Duration  // 校验超时
	clients       *gocache.Cache // 密钥摘要 -> Client
	group         singleflight.Group
	logger        *logrus.Logger
}

// PoolOption 客户端池配置选项
type PoolOption func(*Pool)

// WithClientOptions 设置构建客户端时使用的选项
func WithClientOptions(opts ...Option) PoolOption {
	return func(p *Pool) {
		p.opts = append(p.opts, opts...)
	}
}

// WithVerify 设置构建时是否校验凭证
func WithVerify(verify bool) PoolOption {
	return func(p *Pool) {
		p.verify = verify
	}
}

// WithVerifyTimeout 设置凭证校验超时
func WithVerifyTimeout(timeout time.Duration) PoolOption {
	return func(p *Pool) {
		p.verifyTimeout = timeout
	}
}

// WithPoolLogger 设置日志记录器
func WithPoolLogger(logger *logrus.Logger) PoolOption {
	return func(p *Pool) {
		p.logger = logger
	}
}

// NewPool 创建客户端池，ttl为客户端空闲过期时间
func NewPool(provider string, ttl time.Duration, opts ...PoolOption) *Pool {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	p := &Pool{
		provider:      provider,
		verify:        true,
		verifyTimeout: 10 * time.Second,
		clients:       gocache.New(ttl, ttl*2),
		logger:        logrus.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Provider 返回提供商名称
func (p *Pool) Provider() string {
	return p.provider
}

// Get 返回密钥对应的客户端，不存在时构建
// 构建或校验失败返回*ConfigurationError
func (p *Pool) Get(ctx context.Context, apiKey string) (Client, error) {
	key := credentialKey(apiKey)

	if c, found := p.clients.Get(key); found {
		p.clients.SetDefault(key, c)
		return c.(Client), nil
	}

	v, err, _ := p.group.Do(key, func() (interface{}, error) {
		if c, found := p.clients.Get(key); found {
			return c, nil
		}
		// 构建结果由所有等待者共享，不受首个调用方取消的影响
		client, err := p.build(context.WithoutCancel(ctx), apiKey)
		if err != nil {
			return nil, err
		}
		p.clients.SetDefault(key, client)
		return client, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Client), nil
}

// Invalidate 移除密钥对应的客户端
func (p *Pool) Invalidate(apiKey string) {
	p.clients.Delete(credentialKey(apiKey))
	p.logger.WithFields(logrus.Fields{
		"provider":    p.provider,
		"fingerprint": Fingerprint(apiKey),
	}).Info("Invalidated cached LLM client")
}

// Len 返回当前缓存的客户端数量
func (p *Pool) Len() int {
	return p.clients.ItemCount()
}

// build 构建并按需校验客户端
func (p *Pool) build(ctx context.Context, apiKey string) (Client, error) {
	opts := append([]Option{}, p.opts...)
	opts = append(opts, WithAPIKey(apiKey))

	client, err := NewClient(p.provider, opts...)
	if err != nil {
		return nil, &ConfigurationError{Provider: p.provider, Err: err}
	}

	if verifier, ok := client.(Verifier); ok && p.verify {
		vctx, cancel := context.WithTimeout(ctx, p.verifyTimeout)
		defer cancel()
		if err := verifier.Verify(vctx); err != nil {
			p.logger.WithFields(logrus.Fields{
				"provider":    p.provider,
				"fingerprint": Fingerprint(apiKey),
				"error":       err.Error(),
			}).Warn("LLM credential verification failed")
			return nil, &ConfigurationError{Provider: p.provider, Err: err}
		}
	}

	p.logger.WithFields(logrus.Fields{
		"provider": p.provider,
		"model":    client.Name(),
	}).Debug("Built LLM client")
	return client, nil
}

// Fingerprint 返回密钥摘要的前12位，用于日志
func Fingerprint(apiKey string) string {
	return credentialKey(apiKey)[:12]
}

// credentialKey 返回密钥的SHA-256摘要
func credentialKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}
