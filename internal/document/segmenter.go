package document

import (
	"strings"
)

// SentenceDelimiter 句子分隔符
const SentenceDelimiter = "."

// Segmenter 文本分句器接口
// 负责把单页原始文本切分成有序的句子单元
type Segmenter interface {
	// Segment 将一页文本切分为句子，保持原文顺序
	Segment(text string) []string
}

// PeriodSegmenter 基于句号的朴素分句器
// 缩写、小数和省略号都会被错误切分，这是已知限制
type PeriodSegmenter struct{}

// NewPeriodSegmenter 创建句号分句器
func NewPeriodSegmenter() Segmenter {
	return &PeriodSegmenter{}
}

// Segment 按句号切分文本
// 除最后一段外，非空段落会补回句号；最后一段原样保留；空段落被丢弃
func (s *PeriodSegmenter) Segment(text string) []string {
	parts := strings.Split(text, SentenceDelimiter)
	sentences := make([]string, 0, len(parts))

	for i, part := range parts {
		cleaned := strings.TrimSpace(part)
		if cleaned == "" {
			continue
		}

		if i < len(parts)-1 {
			sentences = append(sentences, cleaned+SentenceDelimiter)
		} else {
			sentences = append(sentences, cleaned)
		}
	}

	return sentences
}

// SegmentPages 对每一页分别分句
// 返回结果按页码顺序排列，第i个元素对应第i+1页
func SegmentPages(segmenter Segmenter, pages []Page) [][]string {
	result := make([][]string, 0, len(pages))
	for _, page := range pages {
		result = append(result, segmenter.Segment(page.Text))
	}
	return result
}
