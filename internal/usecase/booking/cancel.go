package booking

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/PsylineServices/psy-scheduler/internal/audit"
	domain "github.com/PsylineServices/psy-scheduler/internal/domain/booking"
	"github.com/PsylineServices/psy-scheduler/internal/events"
	"github.com/PsylineServices/psy-scheduler/internal/httperr"
	"github.com/PsylineServices/psy-scheduler/internal/models"
	"github.com/PsylineServices/psy-scheduler/internal/timezone"
)

type CancelAppointment struct {
	slots  domain.SlotRepository
	appts  domain.AppointmentRepository
	bus    events.Bus
	audit  *audit.Dispatcher
	logger *zap.Logger

	// cancelling a confirmed appointment is allowed only up to this long
	// before its start
	cutoff time.Duration
}

func NewCancelAppointment(
	slots domain.SlotRepository,
	appts domain.AppointmentRepository,
	bus events.Bus,
	auditDisp *audit.Dispatcher,
	logger *zap.Logger,
	cutoff time.Duration,
) *CancelAppointment {
	return &CancelAppointment{
		slots:  slots,
		appts:  appts,
		bus:    bus,
		audit:  auditDisp,
		logger: logger,
		cutoff: cutoff,
	}
}

func (uc *CancelAppointment) Execute(
	ctx context.Context,
	psychologistID uint,
	appointmentID uint,
	reason string,
) (*models.Appointment, error) {

	ap, err := uc.appts.GetAppointmentForPsychologist(ctx, appointmentID, psychologistID)
	if err != nil {
		return nil, httperr.ErrBusiness("appointment_not_found")
	}

	if err := domain.CanCancel(domain.Status(ap.Status)); err != nil {
		return nil, err
	}

	now := timezone.Now()

	// confirmed appointments are cancellable only while they start at or
	// after this threshold
	minStart := now.Add(uc.cutoff)

	if domain.Status(ap.Status) == domain.StatusConfirmed && ap.StartTime.Before(minStart) {
		return nil, httperr.ErrBusiness("cancel_cutoff_passed")
	}

	// The predicate decides every race at once: a concurrent confirmation,
	// a duplicate cancel, and the cutoff itself. The read above only names
	// the error; the update is authoritative.
	won, err := uc.appts.CancelIfActive(ctx, ap.ID, reason, now, minStart)
	if err != nil {
		return nil, err
	}
	if !won {
		fresh, err := uc.appts.GetAppointmentForPsychologist(ctx, appointmentID, psychologistID)
		if err == nil && domain.Status(fresh.Status) == domain.StatusConfirmed {
			return nil, httperr.ErrBusiness("cancel_cutoff_passed")
		}
		return nil, httperr.ErrBusiness("invalid_state")
	}

	if _, err := uc.slots.ReleaseSlot(ctx, ap.SlotID); err != nil {
		uc.logger.Warn("slot release failed",
			zap.Uint("slot_id", ap.SlotID),
			zap.Error(err),
		)
	}

	uc.bus.Publish(events.Event{
		Name:          events.AppointmentCancelled,
		AppointmentID: ap.ID,
		OccurredAt:    now,
		Metadata:      map[string]any{"reason": reason},
	})

	uc.audit.Dispatch(audit.Event{
		UserID:   &psychologistID,
		Action:   "appointment_cancelled",
		Entity:   "appointment",
		EntityID: &ap.ID,
	})

	ap.Status = string(domain.StatusCancelled)
	ap.CancelReason = reason
	ap.CancelledAt = &now

	return ap, nil
}
