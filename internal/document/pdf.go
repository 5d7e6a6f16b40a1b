package document

import (
	"fmt"

	fitz "github.com/gen2brain/go-fitz"
)

// Page PDF单页文本
type Page struct {
	Number int    // 页码，从1开始
	Text   string // 原始文本
}

// Doc PDF文档抽象
// 由具体后端实现，便于在测试中替换
type Doc interface {
	NumPage() int
	Text(pageIndex int) (string, error) // pageIndex从0开始
	Close() error
}

// Opener 打开PDF文档
type Opener interface {
	Open(path string) (Doc, error)
}

// FitzOpener 基于go-fitz(MuPDF)的文档打开器
type FitzOpener struct{}

// Open 打开PDF文件
func (FitzOpener) Open(path string) (Doc, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// TextExtractor PDF文本提取器
// 逐页读取文本并用分句器切分
type TextExtractor struct {
	opener    Opener
	segmenter Segmenter
}

// TextOption 文本提取器配置选项
type TextOption func(*TextExtractor)

// WithOpener 设置文档打开器
func WithOpener(opener Opener) TextOption {
	return func(e *TextExtractor) {
		if opener != nil {
			e.opener = opener
		}
	}
}

// WithSegmenter 设置分句器
func WithSegmenter(segmenter Segmenter) TextOption {
	return func(e *TextExtractor) {
		if segmenter != nil {
			e.segmenter = segmenter
		}
	}
}

// NewTextExtractor 创建文本提取器，默认使用go-fitz和句号分句器
func NewTextExtractor(opts ...TextOption) *TextExtractor {
	e := &TextExtractor{
		opener:    FitzOpener{},
		segmenter: NewPeriodSegmenter(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractPages 读取文档每一页的文本
// 文档打不开返回DocumentOpenError；任意一页读取失败都会中止整个文档的提取
func (e *TextExtractor) ExtractPages(path string) ([]Page, error) {
	doc, err := e.opener.Open(path)
	if err != nil {
		return nil, &DocumentOpenError{Path: path, Err: err}
	}
	defer doc.Close()

	total := doc.NumPage()
	pages := make([]Page, 0, total)
	for i := 0; i < total; i++ {
		text, err := doc.Text(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read text of page %d: %w", i+1, err)
		}
		pages = append(pages, Page{Number: i + 1, Text: text})
	}

	return pages, nil
}

// ExtractLines 提取文档文本并按页分句
func (e *TextExtractor) ExtractLines(path string) ([][]string, error) {
	pages, err := e.ExtractPages(path)
	if err != nil {
		return nil, err
	}
	return SegmentPages(e.segmenter, pages), nil
}
