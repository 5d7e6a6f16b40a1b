package document

import (
	"errors"
	"fmt"
)

// ErrDocumentOpen 文档无法打开（损坏或格式不支持）
var ErrDocumentOpen = errors.New("document cannot be opened")

// DocumentOpenError 文档打开失败错误
// 对整个文本提取调用是致命的
type DocumentOpenError struct {
	Path string // 文档路径
	Err  error  // 底层错误
}

// Error 实现error接口
func (e *DocumentOpenError) Error() string {
	return fmt.Sprintf("failed to open document %s: %v", e.Path, e.Err)
}

// Unwrap 返回底层错误
func (e *DocumentOpenError) Unwrap() error {
	return e.Err
}

// Is 使 errors.Is(err, ErrDocumentOpen) 成立
func (e *DocumentOpenError) Is(target error) bool {
	return target == ErrDocumentOpen
}

// ImageErrorKind 图片提取错误分类
type ImageErrorKind int

const (
	// KindEmptyOrCorrupted 文档为空或已损坏
	KindEmptyOrCorrupted ImageErrorKind = iota + 1
	// KindUnexpected 其他意外错误（权限、IO等）
	KindUnexpected
)

// String 返回分类名称
func (k ImageErrorKind) String() string {
	switch k {
	case KindEmptyOrCorrupted:
		return "empty_or_corrupted"
	case KindUnexpected:
		return "unexpected"
	default:
		return "unknown"
	}
}

// ImageExtractionError 图片提取错误
// 不影响整体请求，调用方应将其作为警告上报
type ImageExtractionError struct {
	Kind ImageErrorKind // 错误分类
	Err  error          // 底层错误
}

// Error 实现error接口
func (e *ImageExtractionError) Error() string {
	if e.Kind == KindEmptyOrCorrupted {
		return fmt.Sprintf("Empty or corrupted PDF - %v", e.Err)
	}
	return fmt.Sprintf("Unexpected error: %v", e.Err)
}

// Unwrap 返回底层错误
func (e *ImageExtractionError) Unwrap() error {
	return e.Err
}

// newCorruptedError 创建"空文档或已损坏"错误
func newCorruptedError(err error) *ImageExtractionError {
	return &ImageExtractionError{Kind: KindEmptyOrCorrupted, Err: err}
}

// newUnexpectedError 创建意外错误
func newUnexpectedError(err error) *ImageExtractionError {
	return &ImageExtractionError{Kind: KindUnexpected, Err: err}
}

// ImageErrorKindOf 返回错误的图片提取分类，非图片提取错误返回0
func ImageErrorKindOf(err error) ImageErrorKind {
	var imgErr *ImageExtractionError
	if errors.As(err, &imgErr) {
		return imgErr.Kind
	}
	return 0
}
