package booking

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/PsylineServices/psy-scheduler/internal/audit"
	domain "github.com/PsylineServices/psy-scheduler/internal/domain/booking"
	"github.com/PsylineServices/psy-scheduler/internal/events"
	"github.com/PsylineServices/psy-scheduler/internal/mailer"
	"github.com/PsylineServices/psy-scheduler/internal/models"
	"github.com/PsylineServices/psy-scheduler/internal/timezone"
)

type ConfirmAppointment struct {
	slots   domain.SlotRepository
	appts   domain.AppointmentRepository
	clients domain.ClientRepository
	bus     events.Bus
	mail    mailer.Sender
	audit   *audit.Dispatcher
	logger  *zap.Logger
}

func NewConfirmAppointment(
	slots domain.SlotRepository,
	appts domain.AppointmentRepository,
	clients domain.ClientRepository,
	bus events.Bus,
	mail mailer.Sender,
	auditDisp *audit.Dispatcher,
	logger *zap.Logger,
) *ConfirmAppointment {
	return &ConfirmAppointment{
		slots:   slots,
		appts:   appts,
		clients: clients,
		bus:     bus,
		mail:    mail,
		audit:   auditDisp,
		logger:  logger,
	}
}

// Execute reports whether this call caused the transition. A false return
// means the appointment is already confirmed (or past confirmation); the
// caller must short-circuit without re-sending notifications.
func (uc *ConfirmAppointment) Execute(
	ctx context.Context,
	appointmentID uint,
) (bool, error) {

	now := timezone.Now()

	// Load before the transition: a failing read here leaves the row
	// untouched, so the provider's retry re-attempts the whole confirm.
	ap, err := uc.appts.GetAppointment(ctx, appointmentID)
	if err != nil {
		return false, err
	}

	won, err := uc.appts.ConfirmIfPending(ctx, appointmentID, now)
	if err != nil {
		return false, err
	}
	if !won {
		// A previous attempt may have died between the appointment
		// transition and the slot update; finish the slot before
		// short-circuiting.
		fresh, err := uc.appts.GetAppointment(ctx, appointmentID)
		if err != nil {
			return false, err
		}
		st := domain.Status(fresh.Status)
		if st == domain.StatusConfirmed || st == domain.StatusCompleted {
			if _, err := uc.slots.ConfirmSlot(ctx, fresh.SlotID); err != nil {
				return false, err
			}
		}
		return false, nil
	}

	// Slot follows the appointment; if this lost (sweeper released the hold
	// first, which cannot happen after a won confirm) it just no-ops.
	var slotErr error
	if _, err := uc.slots.ConfirmSlot(ctx, ap.SlotID); err != nil {
		slotErr = err
		uc.logger.Warn("slot confirm failed",
			zap.Uint("slot_id", ap.SlotID),
			zap.Error(err),
		)
	}

	// Side effects are guarded by the won transition above: at most once.
	// Delivery is best-effort; the booking is already correct.
	uc.bus.Publish(events.Event{
		Name:          events.AppointmentConfirmed,
		AppointmentID: ap.ID,
		OccurredAt:    now,
	})

	uc.sendConfirmationEmail(ctx, ap)

	uc.audit.Dispatch(audit.Event{
		Action:   "appointment_confirmed",
		Entity:   "appointment",
		EntityID: &ap.ID,
	})

	// Surfacing the slot failure keeps the caller retrying; the repair
	// branch above completes the slot on redelivery without repeating the
	// side effects.
	if slotErr != nil {
		return true, slotErr
	}

	return true, nil
}

func (uc *ConfirmAppointment) sendConfirmationEmail(ctx context.Context, ap *models.Appointment) {
	client, err := uc.clients.GetClient(ctx, ap.ClientID)
	if err != nil {
		uc.logger.Warn("confirmation email skipped", zap.Error(err))
		return
	}
	if client.Email == "" {
		return
	}

	body := fmt.Sprintf(
		"Your consultation is confirmed for %s.",
		ap.StartTime.In(timezone.Location(ap.Timezone)).Format("2006-01-02 15:04"),
	)

	if err := uc.mail.SendEmail(ctx, client.Email, "Consultation confirmed", body); err != nil {
		uc.logger.Warn("confirmation email failed",
			zap.Uint("appointment_id", ap.ID),
			zap.Error(err),
		)
	}
}
