// Package metrics предоставляет Prometheus метрики обоих сервисов и HTTP сервер
// для /metrics, /healthz и /readyz.
//
// Помимо общих метрик HTTP запросов здесь собраны метрики сверки платежей:
// исходы обработки каждого платежа, длительность прохода, вызовы внешних API.
//
// Использование:
//
//	srv := metrics.NewServer(":9090", "send-money", metrics.WithReadinessCheck(check))
//	go srv.Start()
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/send-money/pkg/logger"
)

// =============================================================================
// HTTP метрики
// =============================================================================

var (
	// RequestsTotal — счётчик входящих HTTP запросов.
	// PromQL: rate(requests_total{service="send-money"}[5m])
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requests_total",
			Help: "Общее количество запросов по сервису, методу и статусу",
		},
		[]string{"service", "method", "status"},
	)

	// RequestDuration — гистограмма latency входящих запросов.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "request_duration_seconds",
			Help:    "Время выполнения запроса в секундах",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method"},
	)
)

// =============================================================================
// Метрики сверки платежей
// =============================================================================

var (
	// ReconcileOutcomesTotal — исходы сверки одного платежа.
	// outcome: taken, rejected, failed, expired, not_found, await_settlement, ignore, deferred, error.
	// source: sweep или confirmation.
	ReconcileOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sendmoney_reconcile_outcomes_total",
			Help: "Исходы сверки платежей с платёжным шлюзом",
		},
		[]string{"source", "outcome"},
	)

	// SweepRunsTotal — запуски планового прохода. result: completed, skipped, failed.
	SweepRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sendmoney_sweep_runs_total",
			Help: "Количество запусков планового прохода сверки",
		},
		[]string{"result"},
	)

	// SweepDuration — длительность одного прохода целиком.
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sendmoney_sweep_duration_seconds",
			Help:    "Длительность прохода сверки в секундах",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	// RemoteCallsTotal — вызовы внешних API. api: govpay, payments_api.
	// result: ok, not_found, timeout, auth, http_error, malformed, unavailable.
	RemoteCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sendmoney_remote_calls_total",
			Help: "Вызовы внешних HTTP API по операции и результату",
		},
		[]string{"api", "operation", "result"},
	)

	// RemoteCallDuration — latency вызовов внешних API.
	RemoteCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sendmoney_remote_call_duration_seconds",
			Help:    "Время вызова внешнего API в секундах",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
		[]string{"api", "operation"},
	)

	// NotificationsTotal — уведомления плательщику. result: sent, duplicate, error.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sendmoney_notifications_total",
			Help: "Уведомления плательщикам по типу и результату",
		},
		[]string{"kind", "result"},
	)
)

// =============================================================================
// HTTP Server для /metrics endpoint
// =============================================================================

// ReadinessChecker — функция проверки готовности сервиса.
// Возвращает nil если сервис готов принимать трафик.
type ReadinessChecker func(ctx context.Context) error

// Server — HTTP сервер для экспорта метрик Prometheus и probe-эндпоинтов.
type Server struct {
	httpServer     *http.Server
	service        string
	readinessCheck ReadinessChecker
}

// Option — функциональная опция для настройки Server.
type Option func(*Server)

// WithReadinessCheck добавляет проверку готовности для /readyz.
func WithReadinessCheck(checker ReadinessChecker) Option {
	return func(s *Server) {
		s.readinessCheck = checker
	}
}

// NewServer создаёт новый metrics server.
func NewServer(addr, service string, opts ...Option) *Server {
	s := &Server{service: service}
	for _, opt := range opts {
		opt(s)
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// routes собирает mux: /metrics, /healthz, /readyz.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	// liveness: процесс отвечает — значит жив
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"alive"}`))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if s.readinessCheck == nil {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ready"}`))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := s.readinessCheck(ctx); err != nil {
			// детали ошибки наружу не отдаём
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"not_ready"}`))
			logger.Warn().Err(err).Str("service", s.service).Msg("Readiness check не пройден")
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	return mux
}

// Start запускает HTTP сервер для метрик. Блокирующий вызов — запускать в горутине.
func (s *Server) Start() error {
	log := logger.With().Str("service", s.service).Logger()
	log.Info().Str("addr", s.httpServer.Addr).Msg("Запуск Metrics Server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully останавливает сервер.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// =============================================================================
// Вспомогательные функции для записи метрик
// =============================================================================

// RecordRequest записывает метрики входящего запроса.
func RecordRequest(service, method, status string, duration time.Duration) {
	RequestsTotal.WithLabelValues(service, method, status).Inc()
	RequestDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordRemoteCall записывает метрики вызова внешнего API.
func RecordRemoteCall(api, operation, result string, duration time.Duration) {
	RemoteCallsTotal.WithLabelValues(api, operation, result).Inc()
	RemoteCallDuration.WithLabelValues(api, operation).Observe(duration.Seconds())
}

// RecordOutcome увеличивает счётчик исходов сверки.
func RecordOutcome(source, outcome string) {
	ReconcileOutcomesTotal.WithLabelValues(source, outcome).Inc()
}

// =============================================================================
// Gin Middleware для HTTP метрик
// =============================================================================

// GinMetricsMiddleware возвращает Gin middleware для сбора HTTP метрик.
func GinMetricsMiddleware(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := "success"
		if c.Writer.Status() >= 400 {
			status = "error"
		}

		RecordRequest(service, c.FullPath(), status, time.Since(start))
	}
}
