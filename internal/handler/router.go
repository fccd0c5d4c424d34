package handler

import (
	"github.com/SergeiKhy/linkhub/internal/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter собирает роутер. customerMiddleware определяет клиента для
// закрытых эндпоинтов (API ключ или заголовок X-Customer-ID).
func NewRouter(
	linkHandler *LinkHandler,
	rateLimiter *middleware.RateLimiter,
	customerMiddleware gin.HandlerFunc,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// Middleware для логгирования
	router.Use(func(c *gin.Context) {
		c.Next()
		logger.Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("ip", c.ClientIP()),
			zap.Int("status", c.Writer.Status()),
		)
	})

	// Rate limiting для всех запросов
	router.Use(rateLimiter.Middleware())

	// API v.1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", linkHandler.Health)
		v1.GET("/links/:code/stats", linkHandler.LinkStats)

		customer := v1.Group("")
		if customerMiddleware != nil {
			customer.Use(customerMiddleware)
		}
		// Отдельный лимит на клиента поверх лимита по IP
		customer.Use(rateLimiter.MiddlewareWithKey(customerKey))

		customer.POST("/links", linkHandler.CreateLink)
		customer.GET("/links", linkHandler.ListLinks)
		customer.PUT("/links/:id", linkHandler.UpdateLink)
		customer.POST("/links/bulk-edit", linkHandler.BulkEdit)
		customer.DELETE("/links", linkHandler.DeleteLinks)
		customer.GET("/customer/stats", linkHandler.CustomerStats)
	}

	// Редирект (корневой путь) - без API key проверки
	router.GET("/:code", linkHandler.Redirect)

	return router
}

func customerKey(c *gin.Context) string {
	if id := middleware.CustomerID(c); id != "" {
		return "customer:" + id
	}
	return ""
}
