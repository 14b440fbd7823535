package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/send-money/pkg/jwt"
	"example.com/send-money/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newEngine собирает gin engine с middleware и тестовым маршрутом.
func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"trace_id": logger.TraceIDFromContext(c.Request.Context()),
			"caller":   c.GetString(ContextKeyCaller),
		})
	})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func doGet(r http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "10.0.0.1:12345"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ==================== RequestIDs ====================

func TestRequestIDs(t *testing.T) {
	t.Run("генерирует trace_id при отсутствии", func(t *testing.T) {
		w := doGet(newEngine(RequestIDs()), "/test", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, w.Header().Get(HeaderTraceID), 36)
		assert.Equal(t, w.Header().Get(HeaderTraceID), w.Header().Get(HeaderCorrelationID))
	})

	t.Run("берёт X-Request-ID как trace_id", func(t *testing.T) {
		w := doGet(newEngine(RequestIDs()), "/test", map[string]string{HeaderRequestID: "req-42"})

		assert.Equal(t, "req-42", w.Header().Get(HeaderTraceID))
		assert.Contains(t, w.Body.String(), `"trace_id":"req-42"`)
	})
}

// ==================== Recovery ====================

func TestRecovery(t *testing.T) {
	w := doGet(newEngine(Recovery()), "/panic", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal_error")
	assert.NotContains(t, w.Body.String(), "boom", "детали паники не должны уходить клиенту")
}

// ==================== SecurityHeaders ====================

func TestSecurityHeaders(t *testing.T) {
	w := doGet(newEngine(SecurityHeaders()), "/test", nil)

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
}

// ==================== RateLimit ====================

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	r := newEngine(RateLimit(RateLimitConfig{Redis: rdb, Prefix: "test", Limit: 2, Window: time.Minute}))

	for i := 0; i < 2; i++ {
		w := doGet(r, "/test", nil)
		assert.Equal(t, http.StatusOK, w.Code, "запрос %d должен пройти", i+1)
	}

	w := doGet(r, "/test", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimit_FailOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()
	mr.Close()

	r := newEngine(RateLimit(RateLimitConfig{Redis: rdb, Limit: 1}))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doGet(r, "/test", nil).Code)
	}
}

// ==================== ServiceAuth ====================

// stubValidator — TokenValidator с фиксированным результатом.
type stubValidator struct {
	claims *jwt.Claims
	err    error
}

func (s stubValidator) ValidateToken(string) (*jwt.Claims, error) {
	return s.claims, s.err
}

func TestServiceAuth(t *testing.T) {
	ok := stubValidator{claims: &jwt.Claims{RegisteredClaims: gojwt.RegisteredClaims{Subject: "send-money"}}}
	bad := stubValidator{err: errors.New("подпись не совпадает")}

	tests := []struct {
		name       string
		validator  TokenValidator
		header     string
		wantStatus int
		wantCaller string
	}{
		{"валидный токен", ok, "Bearer abc", http.StatusOK, "send-money"},
		{"регистр схемы не важен", ok, "bearer abc", http.StatusOK, "send-money"},
		{"нет заголовка", ok, "", http.StatusUnauthorized, ""},
		{"не Bearer", ok, "Basic abc", http.StatusUnauthorized, ""},
		{"невалидный токен", bad, "Bearer abc", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}

			w := doGet(newEngine(ServiceAuth(tt.validator)), "/test", headers)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCaller != "" {
				assert.Contains(t, w.Body.String(), `"caller":"`+tt.wantCaller+`"`)
			}
		})
	}
}
