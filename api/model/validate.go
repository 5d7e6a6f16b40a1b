package model

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// 模型接受的图片格式
var imageFormats = map[string]bool{
	"png":  true,
	"jpeg": true,
	"jpg":  true,
	"gif":  true,
	"webp": true,
	"bmp":  true,
	"tiff": true,
	"tif":  true,
	"jpx":  true,
}

var registerOnce sync.Once

// RegisterValidators 向gin的校验器注册自定义规则
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		err = v.RegisterValidation("imageformat", validateImageFormat)
	})
	return err
}

// validateImageFormat 校验图片格式是否受支持
func validateImageFormat(fl validator.FieldLevel) bool {
	return imageFormats[strings.ToLower(fl.Field().String())]
}

// NormalizeImageExt 规范化图片格式名称
func NormalizeImageExt(ext string) string {
	switch ext = strings.ToLower(ext); ext {
	case "jpg":
		return "jpeg"
	case "tif":
		return "tiff"
	default:
		return ext
	}
}
