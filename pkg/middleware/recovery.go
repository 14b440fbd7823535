package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"example.com/send-money/pkg/logger"
)

// Recovery перехватывает панику в обработчике, логирует stack trace
// и отвечает 500 без деталей.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Ctx(c.Request.Context()).Error().
					Interface("panic", r).
					Str("stack", string(debug.Stack())).
					Str("path", c.Request.URL.Path).
					Msg("Перехвачена паника в HTTP обработчике")

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   "internal_error",
					"message": "Внутренняя ошибка сервера",
				})
			}
		}()

		c.Next()
	}
}
