package payment

import (
	"context"
	"errors"

	"go.uber.org/zap"

	domain "github.com/PsylineServices/psy-scheduler/internal/domain/payment"
	"github.com/PsylineServices/psy-scheduler/internal/events"
	"github.com/PsylineServices/psy-scheduler/internal/timezone"
)

// ======================================================
// OUTCOME
// ======================================================

type Outcome string

const (
	OutcomeProcessed        Outcome = "processed"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeUnknownPayment   Outcome = "unknown_payment"
)

// ======================================================
// INPUT
// ======================================================

// WebhookInput is the provider event after signature verification and JSON
// decoding; the handler owns both of those.
type WebhookInput struct {
	Provider          string
	EventID           string
	EventType         string
	ProviderPaymentID string
	Status            string
	FailureCategory   string
	RawPayload        string
}

// Confirmer is the booking-side hook: the sole place payment success turns
// into a confirmed appointment.
type Confirmer interface {
	Execute(ctx context.Context, appointmentID uint) (bool, error)
}

// ======================================================
// USE CASE
// ======================================================

type ReconcileWebhook struct {
	payments  domain.Repository
	events    domain.WebhookEventRepository
	confirmer Confirmer
	bus       events.Bus
	logger    *zap.Logger
}

func NewReconcileWebhook(
	payments domain.Repository,
	webhookEvents domain.WebhookEventRepository,
	confirmer Confirmer,
	bus events.Bus,
	logger *zap.Logger,
) *ReconcileWebhook {
	return &ReconcileWebhook{
		payments:  payments,
		events:    webhookEvents,
		confirmer: confirmer,
		bus:       bus,
		logger:    logger,
	}
}

// Execute is safe to re-invoke with the same event: every write is either an
// insert-if-absent or a conditional update, and the processed marker is set
// only after all downstream effects succeeded. Any returned error means the
// provider should retry (HTTP 5xx).
func (uc *ReconcileWebhook) Execute(
	ctx context.Context,
	in WebhookInput,
) (Outcome, error) {

	// --------------------------------------------------
	// 1. Dedup: atomic insert-if-absent
	// --------------------------------------------------
	isNew, err := uc.events.MarkReceived(
		ctx,
		in.Provider,
		in.EventID,
		in.EventType,
		in.RawPayload,
	)
	if err != nil {
		return "", err
	}

	if !isNew {
		processed, err := uc.events.IsProcessed(ctx, in.Provider, in.EventID)
		if err != nil {
			return "", err
		}
		if processed {
			return OutcomeAlreadyProcessed, nil
		}
		// Received but never finished: a crash or 5xx interrupted the
		// previous delivery. Fall through and run the handler again.
	}

	// --------------------------------------------------
	// 2. Resolve the payment
	// --------------------------------------------------
	p, err := uc.payments.GetByProviderPaymentID(ctx, in.Provider, in.ProviderPaymentID)
	if errors.Is(err, domain.ErrPaymentNotFound) {
		// Acknowledged but logged: retrying a permanently unknown reference
		// forever would be a retry storm into a black hole.
		uc.logger.Warn("webhook for unknown payment",
			zap.String("provider", in.Provider),
			zap.String("provider_payment_id", in.ProviderPaymentID),
		)
		return OutcomeUnknownPayment, nil
	}
	if err != nil {
		// a lookup failure is not an unknown payment; 5xx keeps the
		// provider retrying
		return "", err
	}

	// --------------------------------------------------
	// 3. Conditional status update
	// --------------------------------------------------
	target := mapStatus(in.Status)
	if target == "" {
		// event types we do not track are absorbed silently
		if err := uc.events.MarkProcessed(ctx, in.Provider, in.EventID, timezone.Now()); err != nil {
			return "", err
		}
		return OutcomeProcessed, nil
	}

	applied, err := uc.payments.UpdateStatus(
		ctx,
		in.Provider,
		in.ProviderPaymentID,
		domain.StatusPending,
		target,
		in.FailureCategory,
		timezone.Now(),
	)
	if err != nil {
		return "", err
	}

	// --------------------------------------------------
	// 4. Booking side effect (idempotent per the state
	//    machine; runs on retries too, so an event that
	//    advanced the payment and then crashed still
	//    completes its downstream work)
	// --------------------------------------------------
	if target == domain.StatusSucceeded {
		// Publish on the applied transition before the confirmer: if the
		// confirmer fails and the delivery is retried, applied is false the
		// second time and the event is not lost or doubled.
		if applied {
			uc.bus.Publish(events.Event{
				Name:          events.PaymentSucceeded,
				AppointmentID: p.AppointmentID,
				PaymentID:     p.ID,
				OccurredAt:    timezone.Now(),
			})
		}

		if _, err := uc.confirmer.Execute(ctx, p.AppointmentID); err != nil {
			return "", err
		}
	}

	if target == domain.StatusCanceled || target == domain.StatusFailed {
		if applied {
			uc.bus.Publish(events.Event{
				Name:          events.PaymentFailed,
				AppointmentID: p.AppointmentID,
				PaymentID:     p.ID,
				OccurredAt:    timezone.Now(),
				Metadata:      map[string]any{"category": in.FailureCategory},
			})
		}
	}

	// --------------------------------------------------
	// 5. Mark processed only after the effects landed
	// --------------------------------------------------
	if err := uc.events.MarkProcessed(ctx, in.Provider, in.EventID, timezone.Now()); err != nil {
		return "", err
	}

	if !applied {
		return OutcomeAlreadyProcessed, nil
	}
	return OutcomeProcessed, nil
}

func mapStatus(providerStatus string) domain.Status {
	switch providerStatus {
	case "succeeded":
		return domain.StatusSucceeded
	case "canceled":
		return domain.StatusCanceled
	case "failed":
		return domain.StatusFailed
	default:
		return ""
	}
}
