// Package notify — отправка писем плательщику. send-money не рендерит
// письма: он публикует событие NotificationRequested в Kafka, письмо
// собирает и отправляет внешний сервис рассылки.
//
// Письмо каждого типа по платежу отправляется один раз: первая запись
// фиксируется в Redis (SET NX), повторные попытки от планового прохода и
// от возврата плательщика отбрасываются.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"example.com/send-money/pkg/kafka"
	"example.com/send-money/pkg/logger"
	"example.com/send-money/pkg/metrics"
	"example.com/send-money/services/sendmoney/internal/domain"
)

// EventTypeNotificationRequested — тип события в Kafka.
const EventTypeNotificationRequested = "NotificationRequested"

const (
	claimKeyPrefix = "sendmoney:notification:"

	// DefaultClaimTTL — сколько хранится отметка об отправке.
	DefaultClaimTTL = 30 * 24 * time.Hour
)

// Publisher доставляет запрос на отправку письма.
type Publisher interface {
	Publish(ctx context.Context, n domain.Notification) error
}

// =============================================================================
// Dispatcher
// =============================================================================

// Dispatcher отправляет письмо не более одного раза на (платёж, тип письма).
type Dispatcher struct {
	redis     *redis.Client // nil — без дедупликации
	publisher Publisher
	ttl       time.Duration
}

// NewDispatcher создаёт Dispatcher.
func NewDispatcher(rdb *redis.Client, publisher Publisher) *Dispatcher {
	return &Dispatcher{redis: rdb, publisher: publisher, ttl: DefaultClaimTTL}
}

// Send отправляет письмо. sent == false без ошибки: письмо уже отправлялось.
func (d *Dispatcher) Send(ctx context.Context, n domain.Notification) (bool, error) {
	log := logger.Ctx(ctx).With().
		Str("payment_ref", n.Reference).
		Str("kind", string(n.Kind)).
		Logger()

	claimed, err := d.claim(ctx, n)
	if err != nil {
		// лучше второе письмо, чем ни одного
		log.Warn().Err(err).Msg("Ошибка Redis при проверке повторной отправки, отправляем письмо")
		claimed = true
	}
	if !claimed {
		log.Debug().Msg("Письмо по платежу уже отправлялось")
		metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "duplicate").Inc()
		return false, nil
	}

	if err := d.publisher.Publish(ctx, n); err != nil {
		d.release(ctx, n)
		metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "error").Inc()
		return false, fmt.Errorf("ошибка публикации уведомления: %w", err)
	}

	metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "sent").Inc()
	log.Info().Msg("Запрошена отправка письма плательщику")
	return true, nil
}

func (d *Dispatcher) claim(ctx context.Context, n domain.Notification) (bool, error) {
	if d.redis == nil {
		return true, nil
	}
	return d.redis.SetNX(ctx, claimKey(n), time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
}

// release снимает отметку, чтобы следующая попытка могла отправить письмо.
func (d *Dispatcher) release(ctx context.Context, n domain.Notification) {
	if d.redis == nil {
		return
	}
	if err := d.redis.Del(ctx, claimKey(n)).Err(); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("payment_ref", n.Reference).Msg("Не удалось снять отметку отправки письма")
	}
}

func claimKey(n domain.Notification) string {
	return claimKeyPrefix + n.Reference + ":" + string(n.Kind)
}

// =============================================================================
// Kafka
// =============================================================================

// Event — событие NotificationRequested.
type Event struct {
	EventID    string       `json:"event_id"`
	EventType  string       `json:"event_type"`
	Reference  string       `json:"payment_ref"`
	Recipient  string       `json:"recipient"`
	Kind       string       `json:"kind"`
	Context    EventContext `json:"context"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// EventContext — данные для шаблона письма.
type EventContext struct {
	ShortReference string `json:"short_payment_ref"`
	PrisonerName   string `json:"prisoner_name"`
	Amount         string `json:"amount"` // в фунтах, "17.00"
}

// NewEvent собирает событие из уведомления.
func NewEvent(n domain.Notification) Event {
	return Event{
		EventID:   uuid.New().String(),
		EventType: EventTypeNotificationRequested,
		Reference: n.Reference,
		Recipient: n.Recipient,
		Kind:      string(n.Kind),
		Context: EventContext{
			ShortReference: n.Context.ShortReference,
			PrisonerName:   n.Context.PrisonerName,
			Amount:         n.Context.AmountMajorUnits.StringFixed(2),
		},
		OccurredAt: time.Now().UTC(),
	}
}

// MessageSender — отправка сообщения в Kafka (kafka.Producer).
type MessageSender interface {
	Send(ctx context.Context, msg *kafka.Message) error
}

// KafkaPublisher публикует NotificationRequested в топик.
// Ключ сообщения — ссылка платежа, события платежа попадают в одну партицию.
type KafkaPublisher struct {
	sender MessageSender
	topic  string
}

// NewKafkaPublisher создаёт KafkaPublisher.
func NewKafkaPublisher(sender MessageSender, topic string) *KafkaPublisher {
	return &KafkaPublisher{sender: sender, topic: topic}
}

// Publish сериализует событие и отправляет его в Kafka.
func (p *KafkaPublisher) Publish(ctx context.Context, n domain.Notification) error {
	value, err := json.Marshal(NewEvent(n))
	if err != nil {
		return fmt.Errorf("ошибка сериализации события: %w", err)
	}

	return p.sender.Send(ctx, &kafka.Message{
		Topic:   p.topic,
		Key:     []byte(n.Reference),
		Value:   value,
		Headers: map[string]string{kafka.HeaderEventType: EventTypeNotificationRequested},
	})
}

// =============================================================================
// Log
// =============================================================================

// LogPublisher только логирует запрос на письмо. Используется, когда Kafka
// не настроена (локальный запуск).
type LogPublisher struct{}

// Publish пишет уведомление в лог.
func (LogPublisher) Publish(ctx context.Context, n domain.Notification) error {
	logger.Ctx(ctx).Info().
		Str("payment_ref", n.Reference).
		Str("kind", string(n.Kind)).
		Str("short_ref", n.Context.ShortReference).
		Str("amount", n.Context.AmountMajorUnits.StringFixed(2)).
		Msg("Уведомление плательщику (Kafka не настроена, только лог)")
	return nil
}
