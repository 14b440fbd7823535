package logger

import (
	"context"

	"github.com/rs/zerolog"
)

// ctxKey — приватный тип ключей контекста, исключает коллизии с другими пакетами.
type ctxKey string

const (
	// traceIDKey — идентификатор запроса, сквозной для обоих сервисов.
	traceIDKey ctxKey = "trace_id"

	// correlationIDKey — идентификатор бизнес-операции (например, одного прохода сверки).
	correlationIDKey ctxKey = "correlation_id"

	// loggerKey — настроенный логгер, переданный через context.
	loggerKey ctxKey = "logger"
)

// WithTraceID добавляет trace_id в контекст.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceIDFromContext извлекает trace_id из контекста.
// Возвращает пустую строку, если trace_id не установлен.
func TraceIDFromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(traceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// WithCorrelationID добавляет correlation_id в контекст.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

// CorrelationIDFromContext извлекает correlation_id из контекста.
func CorrelationIDFromContext(ctx context.Context) string {
	if correlationID, ok := ctx.Value(correlationIDKey).(string); ok {
		return correlationID
	}
	return ""
}

// WithLogger кладёт логгер в контекст.
//
//	ctx = logger.WithLogger(ctx, logger.With().Str("component", "sweep").Logger())
func WithLogger(ctx context.Context, l zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext возвращает логгер из контекста (или глобальный) с
// добавленными trace_id и correlation_id, если они есть в контексте.
func FromContext(ctx context.Context) zerolog.Logger {
	l := baseLogger(ctx)

	if traceID := TraceIDFromContext(ctx); traceID != "" {
		l = l.With().Str("trace_id", traceID).Logger()
	}
	if correlationID := CorrelationIDFromContext(ctx); correlationID != "" {
		l = l.With().Str("correlation_id", correlationID).Logger()
	}

	return l
}

// Ctx возвращает указатель на логгер из контекста, по аналогии с zerolog.Ctx().
func Ctx(ctx context.Context) *zerolog.Logger {
	l := FromContext(ctx)
	return &l
}

// NewContextWithIDs добавляет непустые trace_id и correlation_id в контекст.
func NewContextWithIDs(ctx context.Context, traceID, correlationID string) context.Context {
	if traceID != "" {
		ctx = WithTraceID(ctx, traceID)
	}
	if correlationID != "" {
		ctx = WithCorrelationID(ctx, correlationID)
	}
	return ctx
}

// WithPayment возвращает контекст, логгер которого помечен ссылкой на платёж.
// В логах платёж всегда идентифицируется короткой ссылкой, полная — только в payment_ref.
func WithPayment(ctx context.Context, reference, shortRef string) context.Context {
	l := baseLogger(ctx).With().
		Str("payment_ref", reference).
		Str("short_ref", shortRef).
		Logger()
	return WithLogger(ctx, l)
}

// baseLogger возвращает логгер из контекста без trace/correlation полей,
// чтобы FromContext не дублировал их при повторном вызове.
func baseLogger(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return l
	}
	return log
}
