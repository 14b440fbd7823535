package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"example.com/send-money/pkg/logger"
)

// incrWithExpire атомарно увеличивает счётчик окна и ставит TTL на первом запросе.
var incrWithExpire = redis.NewScript(`
	local current = redis.call("INCR", KEYS[1])
	if current == 1 then
		redis.call("EXPIRE", KEYS[1], ARGV[1])
	end
	return current
`)

// RateLimitConfig — конфигурация rate limiter.
type RateLimitConfig struct {
	Redis  *redis.Client
	Prefix string        // Префикс ключа, разделяет лимиты групп маршрутов
	Limit  int           // Лимит запросов (по умолчанию 60)
	Window time.Duration // Временное окно (по умолчанию 1 минута)
}

// RateLimit ограничивает число запросов с одного IP (fixed window в Redis).
// При недоступности Redis запрос пропускается (fail-open).
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limit <= 0 {
		cfg.Limit = 60
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "rate"
	}
	windowSec := int(cfg.Window.Seconds())

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := fmt.Sprintf("%s:%s", cfg.Prefix, c.ClientIP())

		count, err := incrWithExpire.Run(ctx, cfg.Redis, []string{key}, windowSec).Int()
		if err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("Ошибка проверки rate limit")
			c.Next()
			return
		}

		remaining := cfg.Limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if count > cfg.Limit {
			logger.Ctx(ctx).Warn().
				Str("client_ip", c.ClientIP()).
				Int("limit", cfg.Limit).
				Msg("Rate limit превышен")

			c.Header("Retry-After", strconv.Itoa(windowSec))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Слишком много запросов, попробуйте позже",
			})
			return
		}

		c.Next()
	}
}
