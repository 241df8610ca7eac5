package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailrelay/backend/internal/config"
	"mailrelay/backend/internal/middleware"
	"mailrelay/backend/internal/monitoring"
	"mailrelay/backend/internal/service"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config         *config.Config
	Inbound        *service.InboundService
	WebhookHandler gin.HandlerFunc // Telegram 更新回调，可以为 nil
	HealthHandler  http.Handler
	RateLimiter    *middleware.RateLimiter // 为 nil 时路由器自建一个
	Logger         *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryHandler(deps.Logger))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.HTTPMetrics())
	router.Use(middleware.BodySizeLimit(deps.Config.Inbound.MaxBodyBytes))

	corsConfig := gincors.Config{
		AllowOrigins:  deps.Config.CORS.AllowedOrigins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Inbound-Secret"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	router.Use(gincors.New(corsConfig))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "mailrelay"})
	})

	if deps.HealthHandler != nil {
		router.GET("/live", gin.WrapH(deps.HealthHandler))
		router.GET("/ready", gin.WrapH(deps.HealthHandler))
	}

	router.GET("/metrics", gin.WrapH(monitoring.HTTPHandler()))

	inboundHandler := NewInboundHandler(deps.Inbound, deps.Logger)
	rateLimiter := deps.RateLimiter
	if rateLimiter == nil {
		rateLimiter = middleware.NewRateLimiter(deps.Config.Inbound.RatePerMinute)
	}

	api := router.Group("/api")
	api.Use(rateLimiter.Handler())
	api.Use(middleware.RequireInboundSecret(deps.Config.Inbound.Secret))
	{
		api.POST("/inbound-email", inboundHandler.Receive)
	}

	if deps.WebhookHandler != nil {
		router.POST(deps.Config.Telegram.WebhookPath, deps.WebhookHandler)
	}

	return router
}
