package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	domain "github.com/PsylineServices/psy-scheduler/internal/domain/payment"
	"github.com/PsylineServices/psy-scheduler/internal/models"
)

type PaymentGormRepository struct {
	db *gorm.DB
}

func NewPaymentGormRepository(db *gorm.DB) *PaymentGormRepository {
	return &PaymentGormRepository{db: db}
}

func (r *PaymentGormRepository) CreatePayment(
	ctx context.Context,
	p *models.Payment,
) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentGormRepository) GetByProviderPaymentID(
	ctx context.Context,
	provider string,
	providerPaymentID string,
) (*models.Payment, error) {

	var p models.Payment
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_payment_id = ?", provider, providerPaymentID).
		First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}

	return &p, nil
}

func (r *PaymentGormRepository) GetByIdempotencyKey(
	ctx context.Context,
	key string,
) (*models.Payment, error) {

	var p models.Payment
	if err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		First(&p).Error; err != nil {
		return nil, err
	}

	return &p, nil
}

// UpdateStatus applies one real-world status change at most once. A second
// "succeeded" event for the same payment matches zero rows and is absorbed
// upstream as already_processed.
func (r *PaymentGormRepository) UpdateStatus(
	ctx context.Context,
	provider string,
	providerPaymentID string,
	from domain.Status,
	to domain.Status,
	failureCategory string,
	now time.Time,
) (bool, error) {

	fields := map[string]any{
		"status": to,
	}
	if to == domain.StatusSucceeded {
		fields["confirmed_at"] = now
	}
	if failureCategory != "" {
		fields["failure_category"] = failureCategory
	}

	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where(
			"provider = ? AND provider_payment_id = ? AND status = ?",
			provider, providerPaymentID, from,
		).
		Updates(fields)

	return res.RowsAffected > 0, res.Error
}

// Compile-time check
var _ domain.Repository = (*PaymentGormRepository)(nil)
