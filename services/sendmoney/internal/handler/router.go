package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"example.com/send-money/pkg/metrics"
	"example.com/send-money/pkg/middleware"
)

// ServiceName — имя сервиса в метриках и трассах.
const ServiceName = "send-money"

// ReadinessChecker — функция проверки готовности сервиса.
type ReadinessChecker func(ctx context.Context) error

// RouterConfig — параметры для создания роутера.
type RouterConfig struct {
	Flow           PaymentFlow
	Options        Options
	Redis          *redis.Client // nil — без rate limiting
	RateLimit      int
	RateWindow     time.Duration
	ReadinessCheck ReadinessChecker
	Debug          bool
}

// NewRouter создаёт и настраивает HTTP роутер.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := RegisterValidators(); err != nil {
		return nil, err
	}

	engine := gin.New()
	engine.Use(middleware.Recovery())
	engine.Use(middleware.RequestIDs())
	engine.Use(middleware.SecurityHeaders())
	engine.Use(otelgin.Middleware(ServiceName))
	engine.Use(metrics.GinMetricsMiddleware(ServiceName))

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive"})
	})
	engine.GET("/readyz", readiness(cfg.ReadinessCheck))

	v1 := engine.Group("/api/v1")
	if cfg.Redis != nil {
		v1.Use(middleware.RateLimit(middleware.RateLimitConfig{
			Redis:  cfg.Redis,
			Prefix: "sendmoney",
			Limit:  cfg.RateLimit,
			Window: cfg.RateWindow,
		}))
	}

	h := NewPaymentHandler(cfg.Flow, cfg.Options)
	v1.GET("/service-charge", h.Quote)
	v1.POST("/payments", h.CreatePayment)
	v1.GET("/confirmation", h.Confirmation)
	v1.POST("/bank-transfer", h.BankTransfer)

	return engine, nil
}

// readiness — readiness probe; без проверки сервис считается готовым.
func readiness(check ReadinessChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := check(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
