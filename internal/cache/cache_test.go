package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMemoryCache 测试内存缓存的基本功能
func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	cache, err := NewMemoryCache(Config{
		Type:            "memory",
		DefaultTTL:      time.Second * 2,
		CleanupInterval: time.Second,
	})
	require.NoError(t, err)

	// 测试Set和Get
	require.NoError(t, cache.Set(ctx, "key1", "value1", 0))
	val, found, err := cache.Get(ctx, "key1")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value1", val)

	// 测试不存在的键
	val, found, err = cache.Get(ctx, "non-existent")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, val)

	// 测试过期
	require.NoError(t, cache.Set(ctx, "expire-soon", "temp-value", time.Millisecond*200))
	time.Sleep(time.Millisecond * 400)
	_, found, _ = cache.Get(ctx, "expire-soon")
	assert.False(t, found)

	// 测试删除
	require.NoError(t, cache.Set(ctx, "to-delete", "delete-me", 0))
	require.NoError(t, cache.Delete(ctx, "to-delete"))
	_, found, _ = cache.Get(ctx, "to-delete")
	assert.False(t, found)

	// 测试清空
	require.NoError(t, cache.Set(ctx, "key2", "value2", 0))
	require.NoError(t, cache.Clear(ctx))
	_, found, _ = cache.Get(ctx, "key2")
	assert.False(t, found)
}

// TestRedisCache 测试Redis缓存
func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	cache, err := NewRedisCache(Config{
		Type:       "redis",
		RedisAddr:  mr.Addr(),
		DefaultTTL: time.Minute,
	})
	require.NoError(t, err)
	defer cache.(*RedisCache).Close()

	key := SummaryKey("gemini-2.0-flash", DocumentHash([]byte("%PDF-1.4")))
	require.NoError(t, cache.Set(ctx, key, "- summary", 0))

	val, found, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "- summary", val)
	assert.Equal(t, time.Minute, mr.TTL(key))

	// 测试过期
	require.NoError(t, cache.Set(ctx, "pdfchatmate:short", "v", time.Second))
	mr.FastForward(2 * time.Second)
	_, found, err = cache.Get(ctx, "pdfchatmate:short")
	require.NoError(t, err)
	assert.False(t, found)

	// 测试删除
	require.NoError(t, cache.Delete(ctx, key))
	_, found, _ = cache.Get(ctx, key)
	assert.False(t, found)

	// 清空只删除带前缀的键
	require.NoError(t, mr.Set("other:key", "keep"))
	require.NoError(t, cache.Set(ctx, GenerateCacheKey("a"), "1", 0))
	require.NoError(t, cache.Set(ctx, GenerateCacheKey("b"), "2", 0))
	require.NoError(t, cache.Clear(ctx))
	assert.False(t, mr.Exists(GenerateCacheKey("a")))
	assert.False(t, mr.Exists(GenerateCacheKey("b")))
	assert.True(t, mr.Exists("other:key"))
}

// TestRedisCacheUnreachable 测试Redis不可达
func TestRedisCacheUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisCache(Config{Type: "redis", RedisAddr: addr})
	assert.Error(t, err)
}

// TestCacheFactory 测试缓存工厂
func TestCacheFactory(t *testing.T) {
	memCache, err := NewCache(Config{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, memCache)

	// 未知类型默认使用内存缓存
	unknown, err := NewCache(Config{Type: "unknown"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, unknown)

	mr := miniredis.RunT(t)
	redisCache, err := NewCache(Config{Type: "redis", RedisAddr: mr.Addr()})
	require.NoError(t, err)
	assert.IsType(t, &RedisCache{}, redisCache)
}

// TestSummaryKey 测试摘要缓存键
func TestSummaryKey(t *testing.T) {
	hash := DocumentHash([]byte("content"))
	assert.Len(t, hash, 64)
	assert.Equal(t, hash, DocumentHash([]byte("content")))

	key := SummaryKey("gemini-2.0-flash", hash)
	assert.Equal(t, "pdfchatmate:summary:gemini-2.0-flash:"+hash, key)
	assert.NotEqual(t, key, SummaryKey("qwen-vl-plus", hash))

	assert.Equal(t, "pdfchatmate", GenerateCacheKey())
	assert.Equal(t, "pdfchatmate:a:b", GenerateCacheKey("a", "b"))
}
