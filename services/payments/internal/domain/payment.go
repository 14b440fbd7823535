package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus — статус платежа.
type PaymentStatus string

const (
	// PaymentStatusPending — платёж создан, итог в шлюзе ещё не известен.
	PaymentStatusPending PaymentStatus = "pending"

	// PaymentStatusTaken — деньги списаны.
	PaymentStatusTaken PaymentStatus = "taken"

	// PaymentStatusRejected — платёж отменён или отклонён проверкой.
	PaymentStatusRejected PaymentStatus = "rejected"

	// PaymentStatusFailed — шлюз не смог провести платёж.
	PaymentStatusFailed PaymentStatus = "failed"

	// PaymentStatusExpired — окно capture истекло.
	PaymentStatusExpired PaymentStatus = "expired"
)

// IsTerminal возвращает true для конечных статусов.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusTaken, PaymentStatusRejected, PaymentStatusFailed, PaymentStatusExpired:
		return true
	default:
		return false
	}
}

// IsValid проверяет, что статус входит в закрытый набор.
func (s PaymentStatus) IsValid() bool {
	return s == PaymentStatusPending || s.IsTerminal()
}

// =============================================================================
// Допустимые переходы состояний
// =============================================================================

// allowedTransitions — из pending в любой конечный статус; конечные статусы не меняются.
var allowedTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {
		PaymentStatusTaken,
		PaymentStatusRejected,
		PaymentStatusFailed,
		PaymentStatusExpired,
	},
}

// =============================================================================
// Payment — доменная сущность
// =============================================================================

// SecurityCheck — вердикт проверки платежа. Заполняется внешней подсистемой.
type SecurityCheck struct {
	Status       string
	UserActioned bool
}

// BillingAddress — адрес плательщика из данных карты.
type BillingAddress struct {
	Line1    string `json:"line1,omitempty"`
	Line2    string `json:"line2,omitempty"`
	City     string `json:"city,omitempty"`
	Postcode string `json:"postcode,omitempty"`
	Country  string `json:"country,omitempty"`
}

// Card — данные карты; каждое поле записывается один раз.
type Card struct {
	CardholderName string
	CardBrand      string
	FirstDigits    string
	LastDigits     string
	ExpiryDate     string
	BillingAddress *BillingAddress
}

// Payment — платёж заключённому.
type Payment struct {
	UUID           string        // ссылка платежа
	ProcessorID    *string       // id платежа в шлюзе
	Status         PaymentStatus // текущий статус
	Amount         int64         // в пенсах, без сервисного сбора
	ServiceCharge  int64         // в пенсах
	RecipientName  string
	PrisonerNumber string
	PrisonerDOB    time.Time
	Email          *string
	WorldpayID     *string
	Card           Card
	ReceivedAt     *time.Time
	SecurityCheck  *SecurityCheck
	CreatedAt      time.Time
	ModifiedAt     time.Time
}

// NewPayment создаёт pending платёж с новой uuid ссылкой.
func NewPayment(amount, serviceCharge int64, recipientName, prisonerNumber string, prisonerDOB time.Time) (*Payment, error) {
	p := &Payment{
		UUID:           uuid.New().String(),
		Status:         PaymentStatusPending,
		Amount:         amount,
		ServiceCharge:  serviceCharge,
		RecipientName:  recipientName,
		PrisonerNumber: prisonerNumber,
		PrisonerDOB:    prisonerDOB,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate проверяет корректность полей платежа.
func (p *Payment) Validate() error {
	if p.Amount <= 0 {
		return ErrInvalidAmount
	}
	if p.ServiceCharge < 0 {
		return fmt.Errorf("%w: service_charge отрицательный", ErrInvalidPayment)
	}
	if p.PrisonerNumber == "" {
		return fmt.Errorf("%w: prisoner_number обязателен", ErrInvalidPayment)
	}
	if p.PrisonerDOB.IsZero() {
		return fmt.Errorf("%w: prisoner_dob обязателен", ErrInvalidPayment)
	}
	return nil
}

// CanTransitionTo проверяет, допустим ли переход в указанный статус.
func (p *Payment) CanTransitionTo(target PaymentStatus) bool {
	for _, allowed := range allowedTransitions[p.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}

// =============================================================================
// Update — частичное обновление (merge)
// =============================================================================

// Update — поля PATCH запроса. nil — поле не передано.
type Update struct {
	Status         *PaymentStatus
	ProcessorID    *string
	Email          *string
	WorldpayID     *string
	CardholderName *string
	CardBrand      *string
	FirstDigits    *string
	LastDigits     *string
	ExpiryDate     *string
	BillingAddress *BillingAddress
	ReceivedAt     *time.Time
}

// Apply сливает обновление с платежом.
//
// Статус меняется только из pending в конечный; повтор текущего статуса
// ничего не меняет. Идентификаторы, email и данные карты записываются один раз:
// то же значение ничего не меняет, другое поверх заданного — ErrFieldConflict.
// received_at можно менять, пока платёж pending.
//
// Возвращает true, если платёж изменился. При ошибке платёж не меняется.
func (p *Payment) Apply(u Update) (bool, error) {
	next := *p
	changed := false

	if u.Status != nil && *u.Status != p.Status {
		if !u.Status.IsValid() {
			return false, fmt.Errorf("%w: %q", ErrInvalidStatus, *u.Status)
		}
		if !p.CanTransitionTo(*u.Status) {
			return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, *u.Status)
		}
		next.Status = *u.Status
		changed = true
	}

	fields := []struct {
		name  string
		dst   **string
		value *string
	}{
		{"processor_id", &next.ProcessorID, u.ProcessorID},
		{"email", &next.Email, u.Email},
		{"worldpay_id", &next.WorldpayID, u.WorldpayID},
	}
	for _, f := range fields {
		ok, err := setOnce(f.dst, f.value, f.name)
		if err != nil {
			return false, err
		}
		changed = changed || ok
	}

	cardFields := []struct {
		name  string
		dst   *string
		value *string
	}{
		{"cardholder_name", &next.Card.CardholderName, u.CardholderName},
		{"card_brand", &next.Card.CardBrand, u.CardBrand},
		{"card_number_first_digits", &next.Card.FirstDigits, u.FirstDigits},
		{"card_number_last_digits", &next.Card.LastDigits, u.LastDigits},
		{"card_expiry_date", &next.Card.ExpiryDate, u.ExpiryDate},
	}
	for _, f := range cardFields {
		ok, err := setOnceString(f.dst, f.value, f.name)
		if err != nil {
			return false, err
		}
		changed = changed || ok
	}

	if a := u.BillingAddress; a != nil {
		switch {
		case next.Card.BillingAddress == nil:
			addr := *a
			next.Card.BillingAddress = &addr
			changed = true
		case *next.Card.BillingAddress != *a:
			return false, fmt.Errorf("%w: billing_address", ErrFieldConflict)
		}
	}

	if u.ReceivedAt != nil {
		at := StoredInstant(*u.ReceivedAt)
		switch {
		case p.ReceivedAt != nil && p.ReceivedAt.Equal(at):
		case p.Status == PaymentStatusPending || p.ReceivedAt == nil:
			next.ReceivedAt = &at
			changed = true
		default:
			return false, fmt.Errorf("%w: received_at", ErrFieldConflict)
		}
	}

	if changed {
		*p = next
	}
	return changed, nil
}

// StoredInstant приводит момент к виду, в котором его хранит MySQL:
// UTC, точность до микросекунды (datetime(6)).
func StoredInstant(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func setOnce(dst **string, value *string, name string) (bool, error) {
	if value == nil || *value == "" {
		return false, nil
	}
	switch {
	case *dst == nil || **dst == "":
		v := *value
		*dst = &v
		return true, nil
	case **dst == *value:
		return false, nil
	default:
		return false, fmt.Errorf("%w: %s", ErrFieldConflict, name)
	}
}

func setOnceString(dst *string, value *string, name string) (bool, error) {
	if value == nil || *value == "" {
		return false, nil
	}
	switch *dst {
	case "":
		*dst = *value
		return true, nil
	case *value:
		return false, nil
	default:
		return false, fmt.Errorf("%w: %s", ErrFieldConflict, name)
	}
}
