package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePDF = "%PDF-1.4\n%test\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n"

// TestLocalStorage 测试本地存储实现
func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(LocalConfig{Path: t.TempDir()})
	require.NoError(t, err)

	info, err := s.Save(ctx, strings.NewReader(samplePDF), "Report.PDF")
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, "Report.PDF", info.Name)
	assert.Equal(t, int64(len(samplePDF)), info.Size)
	assert.Equal(t, "application/pdf", info.MimeType)
	assert.Equal(t, info.ID+".pdf", info.Path)

	t.Run("Get", func(t *testing.T) {
		rc, err := s.Get(ctx, info.ID)
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, samplePDF, string(data))
	})

	t.Run("Exists", func(t *testing.T) {
		ok, err := s.Exists(ctx, info.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.Exists(ctx, uuid.New().String())
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = s.Exists(ctx, "../etc/passwd")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, info.ID))
		ok, err := s.Exists(ctx, info.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		err = s.Delete(ctx, info.ID)
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

// TestAcquireLocal 测试本地存储的暂存与释放
func TestAcquireLocal(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(LocalConfig{Path: dir})
	require.NoError(t, err)

	scratch, err := Acquire(context.Background(), s, strings.NewReader(samplePDF), "doc.pdf", "")
	require.NoError(t, err)

	data, err := os.ReadFile(scratch.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, samplePDF, string(data))

	require.NoError(t, scratch.Release())
	require.NoError(t, scratch.Release())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// memoryStorage 不提供本地路径的存储，模拟远程对象存储
type memoryStorage struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{files: make(map[string][]byte)}
}

func (m *memoryStorage) Save(_ context.Context, r io.Reader, filename string) (FileInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return FileInfo{}, err
	}
	id := uuid.New().String()
	m.mu.Lock()
	m.files[id] = data
	m.mu.Unlock()
	return FileInfo{ID: id, Name: filename, Size: int64(len(data))}, nil
}

func (m *memoryStorage) Get(_ context.Context, id string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[id]
	if !ok {
		return nil, fmt.Errorf("file with id %s: %w", id, ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryStorage) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[id]; !ok {
		return fmt.Errorf("file with id %s: %w", id, ErrNotFound)
	}
	delete(m.files, id)
	return nil
}

func (m *memoryStorage) Exists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[id]
	return ok, nil
}

// TestAcquireRemote 测试远程存储下载到临时目录并在释放时清理
func TestAcquireRemote(t *testing.T) {
	tempDir := t.TempDir()
	s := newMemoryStorage()

	scratch, err := Acquire(context.Background(), s, strings.NewReader(samplePDF), "doc.pdf", tempDir)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(scratch.LocalPath, tempDir))
	assert.True(t, strings.HasSuffix(scratch.LocalPath, ".pdf"))

	data, err := os.ReadFile(scratch.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, samplePDF, string(data))

	require.NoError(t, scratch.Release())

	_, err = os.Stat(scratch.LocalPath)
	assert.True(t, os.IsNotExist(err))
	assert.Empty(t, s.files)

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// TestNew 测试存储工厂
func TestNew(t *testing.T) {
	s, err := New(context.Background(), Config{Type: "local", Local: LocalConfig{Path: t.TempDir()}})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	_, err = New(context.Background(), Config{Type: "ftp"})
	assert.Error(t, err)
}

// TestMinioStorage 测试MinIO存储
// 需要设置MINIO_ENDPOINT指向可用的MinIO服务
func TestMinioStorage(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_ENDPOINT not set, skipping MinIO tests")
	}

	ctx := context.Background()
	s, err := NewMinioStorage(ctx, MinioConfig{
		Endpoint:  endpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "pdfchatmate-test",
	})
	require.NoError(t, err)

	scratch, err := Acquire(ctx, s, strings.NewReader(samplePDF), "doc.pdf", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", scratch.Info.MimeType)

	ok, err := s.Exists(ctx, scratch.Info.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, scratch.Release())

	ok, err = s.Exists(ctx, scratch.Info.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
