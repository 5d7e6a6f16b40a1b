package document

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

// PDFMimeType PDF文档的MIME类型
const PDFMimeType = "application/pdf"

// SniffPDF 根据文件头判断文件是否为PDF
// 返回检测到的MIME类型
func SniffPDF(path string) (string, bool, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", false, fmt.Errorf("failed to detect file type: %w", err)
	}
	return mt.String(), mt.Is(PDFMimeType), nil
}
