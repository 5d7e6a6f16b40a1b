package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrNotFound 文件不存在
var ErrNotFound = errors.New("file not found")

// FileInfo 文件元数据结构
type FileInfo struct {
	ID       string // 文件唯一标识符
	Name     string // 原始文件名
	Size     int64  // 文件大小(字节)
	MimeType string // 按内容检测的MIME类型
	Path     string // 内部存储路径(实现相关)
}

// Storage 文件存储接口
// 上传文件在处理期间暂存于此，可以有不同实现(本地文件系统、MinIO等)
type Storage interface {
	// Save 保存文件并返回文件信息
	Save(ctx context.Context, reader io.Reader, filename string) (FileInfo, error)

	// Get 获取文件内容
	Get(ctx context.Context, id string) (io.ReadCloser, error)

	// Delete 删除文件
	Delete(ctx context.Context, id string) error

	// Exists 检查文件是否存在
	Exists(ctx context.Context, id string) (bool, error)
}

// PathResolver 能直接提供本地路径的存储
type PathResolver interface {
	LocalPath(id string) (string, error)
}

// ScratchFile 处理期间可按本地路径读取的暂存文件
type ScratchFile struct {
	Info      FileInfo
	LocalPath string

	release func() error
}

// Release 删除暂存文件，可重复调用
func (f *ScratchFile) Release() error {
	if f.release == nil {
		return nil
	}
	err := f.release()
	f.release = nil
	return err
}

// Acquire 将上传内容写入存储并返回可读的本地路径
// 调用方必须在所有退出路径上调用Release
func Acquire(ctx context.Context, s Storage, reader io.Reader, filename, tempDir string) (*ScratchFile, error) {
	info, err := s.Save(ctx, reader, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to save upload: %w", err)
	}

	deleteStored := func() error {
		if err := s.Delete(context.Background(), info.ID); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		return nil
	}

	if resolver, ok := s.(PathResolver); ok {
		path, err := resolver.LocalPath(info.ID)
		if err != nil {
			_ = deleteStored()
			return nil, err
		}
		return &ScratchFile{Info: info, LocalPath: path, release: deleteStored}, nil
	}

	// 远程存储：下载到本地临时文件
	path, err := download(ctx, s, info, tempDir)
	if err != nil {
		_ = deleteStored()
		return nil, err
	}

	return &ScratchFile{
		Info:      info,
		LocalPath: path,
		release: func() error {
			rmErr := os.Remove(path)
			if errors.Is(rmErr, os.ErrNotExist) {
				rmErr = nil
			}
			return errors.Join(rmErr, deleteStored())
		},
	}, nil
}

// download 将存储中的文件复制到临时目录
func download(ctx context.Context, s Storage, info FileInfo, tempDir string) (string, error) {
	rc, err := s.Get(ctx, info.ID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch stored upload: %w", err)
	}
	defer rc.Close()

	if tempDir != "" {
		if err := os.MkdirAll(tempDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create temp directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(tempDir, "scratch-*"+filepath.Ext(info.Name))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return tmp.Name(), nil
}

// Config 存储配置
type Config struct {
	Type  string      // local 或 minio
	Local LocalConfig // 本地存储配置
	Minio MinioConfig // MinIO存储配置
}

// New 根据配置创建存储实现
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalStorage(cfg.Local)
	case "minio":
		return NewMinioStorage(ctx, cfg.Minio)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
