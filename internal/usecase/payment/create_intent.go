package payment

import (
	"context"

	"github.com/google/uuid"

	bookingdomain "github.com/PsylineServices/psy-scheduler/internal/domain/booking"
	domain "github.com/PsylineServices/psy-scheduler/internal/domain/payment"
	"github.com/PsylineServices/psy-scheduler/internal/httperr"
	"github.com/PsylineServices/psy-scheduler/internal/models"
)

// ======================================================
// INPUT
// ======================================================

type CreateIntentInput struct {
	PsychologistID uint
	AppointmentID  uint
	IdempotencyKey string
}

// ======================================================
// USE CASE
// ======================================================

type CreateIntent struct {
	payments domain.Repository
	appts    bookingdomain.AppointmentRepository
	services bookingdomain.ServiceRepository
	provider string
}

func NewCreateIntent(
	payments domain.Repository,
	appts bookingdomain.AppointmentRepository,
	services bookingdomain.ServiceRepository,
) *CreateIntent {
	return &CreateIntent{
		payments: payments,
		appts:    appts,
		services: services,
		provider: "yookassa",
	}
}

// Execute creates the pending payment row the provider webhook will later
// reconcile against. A retried call with the same idempotency key returns
// the existing payment instead of creating a second one.
func (uc *CreateIntent) Execute(
	ctx context.Context,
	in CreateIntentInput,
) (*models.Payment, error) {

	// Ownership first: an appointment of another practice does not exist
	// from this caller's point of view, idempotency key or not.
	ap, err := uc.appts.GetAppointmentForPsychologist(ctx, in.AppointmentID, in.PsychologistID)
	if err != nil {
		return nil, httperr.ErrBusiness("appointment_not_found")
	}

	if in.IdempotencyKey != "" {
		if existing, err := uc.payments.GetByIdempotencyKey(ctx, in.IdempotencyKey); err == nil {
			if existing.AppointmentID != in.AppointmentID {
				return nil, httperr.ErrBusiness("idempotency_key_conflict")
			}
			return existing, nil
		}
	}

	if bookingdomain.Status(ap.Status) != bookingdomain.StatusPendingPayment {
		return nil, httperr.ErrBusiness("invalid_state")
	}

	svc, err := uc.services.GetService(ctx, ap.ServiceID)
	if err != nil {
		return nil, httperr.ErrBusiness("service_not_found")
	}

	p := &models.Payment{
		AppointmentID:     ap.ID,
		Provider:          uc.provider,
		ProviderPaymentID: uuid.NewString(),
		Amount:            svc.Price,
		Currency:          svc.Currency,
		Status:            string(domain.StatusPending),
	}
	if in.IdempotencyKey != "" {
		key := in.IdempotencyKey
		p.IdempotencyKey = &key
	}

	if err := uc.payments.CreatePayment(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}
