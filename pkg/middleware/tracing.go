// Package middleware содержит gin middleware, общие для send-money и payments API:
// идентификаторы запроса, логирование, перехват паник, заголовки безопасности,
// rate limiting и проверку сервисных JWT.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"example.com/send-money/pkg/logger"
)

// HTTP заголовки для трассировки.
const (
	HeaderTraceID       = "X-Trace-ID"
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderRequestID     = "X-Request-ID" // алиас для Trace ID
)

// RequestIDs извлекает или генерирует trace_id и correlation_id,
// кладёт их в context запроса и логирует начало и завершение запроса.
func RequestIDs() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		traceID := firstNonEmpty(c.GetHeader(HeaderTraceID), c.GetHeader(HeaderRequestID))
		if traceID == "" {
			traceID = uuid.New().String()
		}
		correlationID := c.GetHeader(HeaderCorrelationID)
		if correlationID == "" {
			correlationID = traceID
		}

		ctx := logger.NewContextWithIDs(c.Request.Context(), traceID, correlationID)
		c.Request = c.Request.WithContext(ctx)

		c.Header(HeaderTraceID, traceID)
		c.Header(HeaderCorrelationID, correlationID)

		log := logger.FromContext(ctx)
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("client_ip", c.ClientIP()).
			Msg("Входящий запрос")

		c.Next()

		statusCode := c.Writer.Status()
		event := log.Info()
		switch {
		case statusCode >= 500:
			event = log.Error()
		case statusCode >= 400:
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("route", c.FullPath()).
			Int("status", statusCode).
			Dur("duration", time.Since(start)).
			Msg("Запрос завершён")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
