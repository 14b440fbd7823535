// Package repository содержит реализацию доступа к данным API платежей.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/send-money/services/payments/internal/domain"
)

// PaymentRepository определяет интерфейс для работы с платежами в БД.
type PaymentRepository interface {
	// Create сохраняет новый платёж.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByUUID возвращает платёж по ссылке.
	GetByUUID(ctx context.Context, uuid string) (*domain.Payment, error)

	// List возвращает страницу платежей и общее количество по фильтру.
	List(ctx context.Context, filter ListFilter) ([]*domain.Payment, int64, error)

	// Update блокирует строку платежа, применяет fn и сохраняет результат,
	// если fn вернул true. Выполняется в транзакции.
	Update(ctx context.Context, uuid string, fn func(p *domain.Payment) (bool, error)) (*domain.Payment, error)
}

// ListFilter — фильтр списка платежей. Нулевые поля не ограничивают выборку.
type ListFilter struct {
	Status         *domain.PaymentStatus
	ModifiedBefore *time.Time
	Offset         int
	Limit          int
}

// =============================================================================
// GORM модель
// =============================================================================

// PaymentModel — GORM модель для таблицы payments.
type PaymentModel struct {
	UUID           string                 `gorm:"column:uuid;type:varchar(36);primaryKey"`
	ProcessorID    *string                `gorm:"column:processor_id;type:varchar(250);uniqueIndex"`
	Status         string                 `gorm:"column:status;type:varchar(50);not null;index:idx_status_modified"`
	Amount         int64                  `gorm:"column:amount;not null"`
	ServiceCharge  int64                  `gorm:"column:service_charge;not null;default:0"`
	RecipientName  string                 `gorm:"column:recipient_name;type:varchar(250)"`
	PrisonerNumber string                 `gorm:"column:prisoner_number;type:varchar(250);not null"`
	PrisonerDOB    time.Time              `gorm:"column:prisoner_dob;type:date;not null"`
	Email          *string                `gorm:"column:email;type:varchar(254)"`
	WorldpayID     *string                `gorm:"column:worldpay_id;type:varchar(250)"`
	CardholderName string                 `gorm:"column:cardholder_name;type:varchar(250)"`
	CardBrand      string                 `gorm:"column:card_brand;type:varchar(250)"`
	FirstDigits    string                 `gorm:"column:card_number_first_digits;type:varchar(6)"`
	LastDigits     string                 `gorm:"column:card_number_last_digits;type:varchar(4)"`
	ExpiryDate     string                 `gorm:"column:card_expiry_date;type:varchar(5)"`
	BillingAddress *domain.BillingAddress `gorm:"column:billing_address;type:json;serializer:json"`
	ReceivedAt     *time.Time             `gorm:"column:received_at;type:datetime(6)"`
	SecurityStatus *string                `gorm:"column:security_check_status;type:varchar(50)"`
	UserActioned   bool                   `gorm:"column:security_check_user_actioned;not null;default:false"`
	CreatedAt      time.Time              `gorm:"column:created_at;type:datetime(6);autoCreateTime"`
	ModifiedAt     time.Time              `gorm:"column:modified_at;type:datetime(6);autoUpdateTime;index:idx_status_modified"`
}

// TableName возвращает имя таблицы в БД.
func (PaymentModel) TableName() string {
	return "payments"
}

// toDomain конвертирует GORM модель в доменную сущность.
func (m *PaymentModel) toDomain() *domain.Payment {
	p := &domain.Payment{
		UUID:           m.UUID,
		ProcessorID:    m.ProcessorID,
		Status:         domain.PaymentStatus(m.Status),
		Amount:         m.Amount,
		ServiceCharge:  m.ServiceCharge,
		RecipientName:  m.RecipientName,
		PrisonerNumber: m.PrisonerNumber,
		PrisonerDOB:    m.PrisonerDOB,
		Email:          m.Email,
		WorldpayID:     m.WorldpayID,
		Card: domain.Card{
			CardholderName: m.CardholderName,
			CardBrand:      m.CardBrand,
			FirstDigits:    m.FirstDigits,
			LastDigits:     m.LastDigits,
			ExpiryDate:     m.ExpiryDate,
			BillingAddress: m.BillingAddress,
		},
		ReceivedAt: m.ReceivedAt,
		CreatedAt:  m.CreatedAt,
		ModifiedAt: m.ModifiedAt,
	}
	if m.SecurityStatus != nil {
		p.SecurityCheck = &domain.SecurityCheck{Status: *m.SecurityStatus, UserActioned: m.UserActioned}
	}
	return p
}

// paymentModelFromDomain конвертирует доменную сущность в GORM модель.
func paymentModelFromDomain(p *domain.Payment) *PaymentModel {
	m := &PaymentModel{
		UUID:           p.UUID,
		ProcessorID:    p.ProcessorID,
		Status:         string(p.Status),
		Amount:         p.Amount,
		ServiceCharge:  p.ServiceCharge,
		RecipientName:  p.RecipientName,
		PrisonerNumber: p.PrisonerNumber,
		PrisonerDOB:    p.PrisonerDOB,
		Email:          p.Email,
		WorldpayID:     p.WorldpayID,
		CardholderName: p.Card.CardholderName,
		CardBrand:      p.Card.CardBrand,
		FirstDigits:    p.Card.FirstDigits,
		LastDigits:     p.Card.LastDigits,
		ExpiryDate:     p.Card.ExpiryDate,
		BillingAddress: p.Card.BillingAddress,
		ReceivedAt:     p.ReceivedAt,
		CreatedAt:      p.CreatedAt,
		ModifiedAt:     p.ModifiedAt,
	}
	if p.SecurityCheck != nil {
		m.SecurityStatus = &p.SecurityCheck.Status
		m.UserActioned = p.SecurityCheck.UserActioned
	}
	return m
}

// =============================================================================
// Реализация репозитория
// =============================================================================

// paymentRepository — GORM реализация PaymentRepository.
type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository создаёт новый репозиторий платежей.
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// Create сохраняет новый платёж.
func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	model := paymentModelFromDomain(payment)

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}

	payment.CreatedAt = model.CreatedAt
	payment.ModifiedAt = model.ModifiedAt
	return nil
}

// GetByUUID возвращает платёж по ссылке.
func (r *paymentRepository) GetByUUID(ctx context.Context, uuid string) (*domain.Payment, error) {
	var model PaymentModel

	if err := r.db.WithContext(ctx).
		Where("uuid = ?", uuid).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}

	return model.toDomain(), nil
}

// List возвращает страницу платежей, старые первыми.
func (r *paymentRepository) List(ctx context.Context, filter ListFilter) ([]*domain.Payment, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		if filter.Status != nil {
			db = db.Where("status = ?", string(*filter.Status))
		}
		if filter.ModifiedBefore != nil {
			db = db.Where("modified_at < ?", filter.ModifiedBefore.UTC())
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).
		Model(&PaymentModel{}).
		Scopes(scope).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []PaymentModel
	if err := r.db.WithContext(ctx).
		Scopes(scope).
		Order("created_at ASC, uuid ASC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}

	payments := make([]*domain.Payment, 0, len(models))
	for i := range models {
		payments = append(payments, models[i].toDomain())
	}

	return payments, total, nil
}

// Update применяет fn к платежу под блокировкой строки (SELECT ... FOR UPDATE).
func (r *paymentRepository) Update(ctx context.Context, uuid string, fn func(p *domain.Payment) (bool, error)) (*domain.Payment, error) {
	var result *domain.Payment

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model PaymentModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("uuid = ?", uuid).
			First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrPaymentNotFound
			}
			return err
		}

		payment := model.toDomain()
		changed, err := fn(payment)
		if err != nil {
			return err
		}
		if !changed {
			result = payment
			return nil
		}

		updated := paymentModelFromDomain(payment)
		updated.ModifiedAt = time.Now().UTC()

		if err := tx.Model(&PaymentModel{}).
			Where("uuid = ?", uuid).
			Updates(changedColumns(updated)).Error; err != nil {
			if isDuplicateKeyError(err) {
				return domain.ErrFieldConflict
			}
			return err
		}

		payment.ModifiedAt = updated.ModifiedAt
		result = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// changedColumns — столбцы, которые может изменить merge патч.
func changedColumns(m *PaymentModel) map[string]interface{} {
	return map[string]interface{}{
		"status":                   m.Status,
		"processor_id":             m.ProcessorID,
		"email":                    m.Email,
		"worldpay_id":              m.WorldpayID,
		"cardholder_name":          m.CardholderName,
		"card_brand":               m.CardBrand,
		"card_number_first_digits": m.FirstDigits,
		"card_number_last_digits":  m.LastDigits,
		"card_expiry_date":         m.ExpiryDate,
		"billing_address":          billingAddressJSON(m.BillingAddress),
		"received_at":              m.ReceivedAt,
		"modified_at":              m.ModifiedAt,
	}
}

// billingAddressJSON — значение столбца billing_address для Updates по map,
// где сериализатор модели не применяется.
func billingAddressJSON(a *domain.BillingAddress) interface{} {
	if a == nil {
		return nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil
	}
	return string(data)
}

// isDuplicateKeyError проверяет, является ли ошибка дубликатом ключа.
// MySQL возвращает ошибку с кодом 1062 при попытке вставить дубликат.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(errMsg, "Duplicate entry") ||
		strings.Contains(errMsg, "1062")
}
