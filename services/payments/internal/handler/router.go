package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"example.com/send-money/pkg/metrics"
	"example.com/send-money/pkg/middleware"
	"example.com/send-money/services/payments/internal/service"
)

// ServiceName — имя сервиса в метриках и трассах.
const ServiceName = "payments-api"

// RouterConfig — параметры для создания роутера.
type RouterConfig struct {
	Service        service.PaymentService
	Auth           middleware.TokenValidator // nil — без авторизации (только для тестов)
	ReadinessCheck func(ctx context.Context) error
	Debug          bool
}

// NewRouter создаёт и настраивает HTTP роутер payments API.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.Recovery())
	engine.Use(middleware.RequestIDs())
	engine.Use(otelgin.Middleware(ServiceName))
	engine.Use(metrics.GinMetricsMiddleware(ServiceName))

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive"})
	})
	engine.GET("/readyz", func(c *gin.Context) {
		if cfg.ReadinessCheck != nil {
			if err := cfg.ReadinessCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	payments := engine.Group("/payments")
	if cfg.Auth != nil {
		payments.Use(middleware.ServiceAuth(cfg.Auth))
	}

	h := NewPaymentHandler(cfg.Service)
	payments.POST("/", h.Create)
	payments.GET("/", h.List)
	payments.GET("/:ref/", h.Get)
	payments.PATCH("/:ref/", h.Patch)

	return engine
}
