package kafka

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/send-money/pkg/logger"
)

// Producer отправляет сообщения в Kafka с headers трассировки.
type Producer struct {
	writer messageWriter
}

// NewProducer создаёт Producer. Режим синхронный: Send возвращает управление
// после подтверждения лидером партиции.
func NewProducer(cfg Config) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("не указаны брокеры Kafka")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{}, // один ключ (платёж) — одна партиция
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	logger.Info().
		Strs("brokers", cfg.Brokers).
		Msg("Создан Kafka Producer")

	return &Producer{writer: writer}, nil
}

// Send отправляет сообщение. Стандартные headers (trace_id, correlation_id,
// timestamp) добавляются из context, если не заданы в msg.Headers.
func (p *Producer) Send(ctx context.Context, msg *Message) error {
	kafkaMsg := kafka.Message{
		Topic:   msg.Topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: buildHeaders(ctx, msg.Headers),
		Time:    time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, kafkaMsg); err != nil {
		logger.Ctx(ctx).Error().
			Err(err).
			Str("topic", msg.Topic).
			Str("key", string(msg.Key)).
			Msg("Ошибка отправки сообщения в Kafka")
		return fmt.Errorf("ошибка отправки в Kafka: %w", err)
	}

	logger.Ctx(ctx).Debug().
		Str("topic", msg.Topic).
		Str("key", string(msg.Key)).
		Msg("Сообщение отправлено в Kafka")

	return nil
}

// buildHeaders собирает headers: сначала стандартные из context, затем extra.
// extra перекрывает стандартные при совпадении ключа.
func buildHeaders(ctx context.Context, extra map[string]string) []kafka.Header {
	values := map[string]string{
		HeaderTimestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if traceID := logger.TraceIDFromContext(ctx); traceID != "" {
		values[HeaderTraceID] = traceID
	}
	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		values[HeaderCorrelationID] = correlationID
	}
	for k, v := range extra {
		values[k] = v
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	headers := make([]kafka.Header, 0, len(keys))
	for _, k := range keys {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(values[k])})
	}
	return headers
}

// Close закрывает соединение с Kafka.
func (p *Producer) Close() error {
	logger.Info().Msg("Закрытие Kafka Producer")

	if err := p.writer.Close(); err != nil {
		logger.Error().Err(err).Msg("Ошибка при закрытии Kafka Producer")
		return fmt.Errorf("ошибка закрытия producer: %w", err)
	}

	return nil
}
