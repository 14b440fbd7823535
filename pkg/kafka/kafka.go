// Package kafka предоставляет обёртку над kafka-go для публикации событий
// send-money (запросы на отправку уведомлений плательщикам).
// Headers trace_id / correlation_id берутся из context, чтобы потребитель
// мог связать письмо с проходом сверки или HTTP запросом.
package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// Ключи для headers сообщений Kafka.
const (
	// HeaderTraceID — идентификатор трассировки.
	HeaderTraceID = "trace_id"

	// HeaderCorrelationID — идентификатор бизнес-операции.
	HeaderCorrelationID = "correlation_id"

	// HeaderTimestamp — время публикации (RFC3339Nano, UTC).
	HeaderTimestamp = "timestamp"

	// HeaderEventType — тип события в value.
	HeaderEventType = "event_type"
)

// Config содержит настройки подключения к Kafka.
type Config struct {
	// Brokers — список адресов брокеров Kafka.
	Brokers []string
}

// Message — исходящее сообщение Kafka.
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// messageWriter — часть kafka.Writer, которая нужна Producer.
// Выделена, чтобы в тестах подменять запись в брокер.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
