package middleware

import "github.com/gin-gonic/gin"

// SecurityHeaders добавляет заголовки безопасности ко всем ответам.
// Ответы содержат ссылки на платежи и ссылки на шлюз, поэтому не кешируются.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()

		// Запрет встраивания в iframe — защита от clickjacking
		h.Set("X-Frame-Options", "DENY")

		// Запрет MIME-type sniffing — браузер не будет "угадывать" тип контента
		h.Set("X-Content-Type-Options", "nosniff")

		// Запрет кеширования: ответы содержат ссылки на платежи
		h.Set("Cache-Control", "no-store")

		// Только HTTPS (карточные платежи)
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")

		// payment_ref передаётся в query string страницы подтверждения
		h.Set("Referrer-Policy", "no-referrer")

		// Permissions Policy — отключаем ненужные браузерные API
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

		c.Next()
	}
}
