package document

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrEmptyDocument 文档内容为空
var ErrEmptyDocument = errors.New("empty part: document has no content")

// ExtractedImage 从PDF中提取的图片
// 以(PageNum, ImageIndex)标识，不做跨页去重
type ExtractedImage struct {
	Data       string `json:"data"`        // Base64编码的图片数据
	Ext        string `json:"ext"`         // 图片格式，如png、jpeg
	PageNum    int    `json:"page_num"`    // 所在页码，从1开始
	ImageIndex int    `json:"image_index"` // 页内序号，从1开始
}

// MimeType 返回图片的MIME类型
func (img ExtractedImage) MimeType() string {
	return "image/" + img.Ext
}

// ImageExtractor 基于pdfcpu的图片提取器
type ImageExtractor struct {
	conf *model.Configuration
}

// NewImageExtractor 创建图片提取器
func NewImageExtractor() *ImageExtractor {
	conf := model.NewDefaultConfiguration()
	conf.Cmd = model.EXTRACTIMAGES
	return &ImageExtractor{conf: conf}
}

// Extract 提取文件中的全部嵌入图片
// 失败时返回空切片和分类后的ImageExtractionError，不返回部分结果
func (e *ImageExtractor) Extract(path string) ([]ExtractedImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return []ExtractedImage{}, newUnexpectedError(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return []ExtractedImage{}, newUnexpectedError(err)
	}
	if info.Size() == 0 {
		return []ExtractedImage{}, newCorruptedError(ErrEmptyDocument)
	}

	return e.ExtractFromReader(f)
}

// ExtractFromReader 从ReadSeeker中提取图片
// 顺序为页码优先，页内按对象编号排列
func (e *ImageExtractor) ExtractFromReader(rs io.ReadSeeker) (images []ExtractedImage, err error) {
	defer func() {
		if r := recover(); r != nil {
			images = []ExtractedImage{}
			err = newUnexpectedError(fmt.Errorf("panic during image extraction: %v", r))
		}
	}()

	ctx, err := api.ReadContext(rs, e.conf)
	if err != nil {
		return []ExtractedImage{}, newCorruptedError(err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return []ExtractedImage{}, newCorruptedError(err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return []ExtractedImage{}, newCorruptedError(err)
	}
	// ExtractPageImages按优化阶段收集的页面图片列表枚举
	if err := api.OptimizeContext(ctx); err != nil {
		return []ExtractedImage{}, newCorruptedError(err)
	}

	result := make([]ExtractedImage, 0)
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		pageImages, err := pdfcpu.ExtractPageImages(ctx, pageNr, false)
		if err != nil {
			return []ExtractedImage{}, newUnexpectedError(fmt.Errorf("page %d: %w", pageNr, err))
		}

		// map遍历无序，按对象编号恢复枚举顺序
		objNrs := make([]int, 0, len(pageImages))
		for objNr := range pageImages {
			objNrs = append(objNrs, objNr)
		}
		sort.Ints(objNrs)

		for i, objNr := range objNrs {
			img := pageImages[objNr]
			data, err := io.ReadAll(img)
			if err != nil {
				return []ExtractedImage{}, newUnexpectedError(fmt.Errorf("page %d image %d: %w", pageNr, i+1, err))
			}

			result = append(result, ExtractedImage{
				Data:       base64.StdEncoding.EncodeToString(data),
				Ext:        normalizeImageFormat(img.FileType, data),
				PageNum:    pageNr,
				ImageIndex: i + 1,
			})
		}
	}

	return result, nil
}

// normalizeImageFormat 规范化后端给出的格式标签
// 格式为空时根据字节内容推断
func normalizeImageFormat(fileType string, data []byte) string {
	ext := strings.ToLower(strings.TrimPrefix(fileType, "."))
	switch ext {
	case "jpg":
		return "jpeg"
	case "tif":
		return "tiff"
	case "":
		mt := mimetype.Detect(data)
		if strings.HasPrefix(mt.String(), "image/") {
			return strings.TrimPrefix(mt.String(), "image/")
		}
		return "png"
	default:
		return ext
	}
}
