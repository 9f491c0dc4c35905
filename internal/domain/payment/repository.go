package payment

import (
	"context"
	"time"

	"github.com/PsylineServices/psy-scheduler/internal/models"
)

type Repository interface {
	CreatePayment(ctx context.Context, p *models.Payment) error

	// GetByProviderPaymentID returns ErrPaymentNotFound when no payment
	// carries that provider reference; any other error is an
	// infrastructure failure.
	GetByProviderPaymentID(ctx context.Context, provider, providerPaymentID string) (*models.Payment, error)

	GetByIdempotencyKey(ctx context.Context, key string) (*models.Payment, error)

	// Conditional update keyed by (provider, provider_payment_id) and the
	// expected prior status. Zero rows means the status already advanced.
	UpdateStatus(
		ctx context.Context,
		provider string,
		providerPaymentID string,
		from Status,
		to Status,
		failureCategory string,
		now time.Time,
	) (bool, error)
}

// WebhookEventRepository deduplicates provider deliveries. MarkReceived is an
// atomic insert-if-absent; check-then-insert as two calls would race under
// concurrent delivery of the same event.
type WebhookEventRepository interface {
	MarkReceived(ctx context.Context, provider, eventID, eventType, payload string) (bool, error)

	IsProcessed(ctx context.Context, provider, eventID string) (bool, error)

	MarkProcessed(ctx context.Context, provider, eventID string, now time.Time) error
}
