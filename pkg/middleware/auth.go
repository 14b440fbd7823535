package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"example.com/send-money/pkg/jwt"
	"example.com/send-money/pkg/logger"
)

// ContextKeyCaller — ключ gin.Context с subject проверенного сервисного токена.
const ContextKeyCaller = "caller"

// TokenValidator проверяет сервисный токен. Реализуется *jwt.Manager.
type TokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

// ServiceAuth пропускает только запросы с валидным сервисным JWT.
func ServiceAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.FromContext(c.Request.Context())

		token := BearerToken(c)
		if token == "" {
			log.Debug().Msg("Отсутствует токен авторизации")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Требуется авторизация",
			})
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			log.Warn().Err(err).Msg("Невалидный сервисный токен")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Невалидный токен",
			})
			return
		}

		c.Set(ContextKeyCaller, claims.Subject)
		c.Next()
	}
}

// BearerToken извлекает токен из заголовка "Authorization: Bearer <token>".
func BearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
