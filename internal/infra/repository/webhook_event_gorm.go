package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/PsylineServices/psy-scheduler/internal/domain/payment"
	"github.com/PsylineServices/psy-scheduler/internal/models"
)

type WebhookEventGormRepository struct {
	db *gorm.DB
}

func NewWebhookEventGormRepository(db *gorm.DB) *WebhookEventGormRepository {
	return &WebhookEventGormRepository{db: db}
}

// MarkReceived inserts if absent in one statement; the unique index on
// (provider, provider_event_id) is the arbiter under concurrent delivery.
func (r *WebhookEventGormRepository) MarkReceived(
	ctx context.Context,
	provider string,
	eventID string,
	eventType string,
	payload string,
) (bool, error) {

	ev := models.WebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       eventType,
		Payload:         payload,
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&ev)

	return res.RowsAffected > 0, res.Error
}

func (r *WebhookEventGormRepository) IsProcessed(
	ctx context.Context,
	provider string,
	eventID string,
) (bool, error) {

	var ev models.WebhookEvent
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_event_id = ?", provider, eventID).
		First(&ev).Error; err != nil {
		return false, err
	}

	return ev.ProcessedAt != nil, nil
}

func (r *WebhookEventGormRepository) MarkProcessed(
	ctx context.Context,
	provider string,
	eventID string,
	now time.Time,
) error {

	return r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("provider = ? AND provider_event_id = ?", provider, eventID).
		Update("processed_at", now).Error
}

// Compile-time check
var _ domain.WebhookEventRepository = (*WebhookEventGormRepository)(nil)
