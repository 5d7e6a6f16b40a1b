package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shahidsi7/Pdf-ChatMate/api/handler"
	"github.com/shahidsi7/Pdf-ChatMate/api/middleware"
	"github.com/shahidsi7/Pdf-ChatMate/api/model"
)

// DefaultCORSOrigin 默认允许的跨域来源
const DefaultCORSOrigin = "http://localhost:8000"

// SetupRouter 设置API路由
// 配置所有的API端点并应用中间件
func SetupRouter(
	docHandler *handler.DocumentHandler,
	chatHandler *handler.ChatHandler,
	corsOrigins []string,
) *gin.Engine {
	if err := model.RegisterValidators(); err != nil {
		middleware.GetLogger().WithError(err).Error("Failed to register request validators")
	}

	router := gin.New()

	// 应用全局中间件
	router.Use(middleware.SetTraceID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())
	router.Use(Cors(corsOrigins))

	// 在调试模式下记录请求体和响应体
	if gin.Mode() == gin.DebugMode {
		router.Use(middleware.RequestLogger())
	}

	router.NoRoute(middleware.NotFound())

	// 上传文档 - POST /upload
	router.POST("/upload", docHandler.Upload)

	// 文档对话 - POST /chat
	router.POST("/chat", chatHandler.Chat)

	api := router.Group("/api")
	{
		// 健康检查API
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, model.HealthResponse{Status: "ok"})
		})
	}

	return router
}

// Cors 跨域资源共享中间件
// 只对允许的来源回写Access-Control-Allow-Origin，"*"表示允许所有来源
func Cors(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		origins = []string{DefaultCORSOrigin}
	}
	allowed := make(map[string]bool, len(origins))
	allowAll := false
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowAll || allowed[origin]) {
			if allowAll {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
			}
			c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Origin, X-Requested-With, X-Trace-ID, "+model.HeaderAPIKey)
			c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
			c.Header("Access-Control-Expose-Headers", "X-Trace-ID")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
