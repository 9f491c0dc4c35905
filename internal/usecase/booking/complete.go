package booking

import (
	"context"

	"github.com/PsylineServices/psy-scheduler/internal/audit"
	domain "github.com/PsylineServices/psy-scheduler/internal/domain/booking"
	"github.com/PsylineServices/psy-scheduler/internal/events"
	"github.com/PsylineServices/psy-scheduler/internal/httperr"
	"github.com/PsylineServices/psy-scheduler/internal/models"
	"github.com/PsylineServices/psy-scheduler/internal/timezone"
)

type CompleteAppointment struct {
	appts domain.AppointmentRepository
	bus   events.Bus
	audit *audit.Dispatcher
}

func NewCompleteAppointment(
	appts domain.AppointmentRepository,
	bus events.Bus,
	auditDisp *audit.Dispatcher,
) *CompleteAppointment {
	return &CompleteAppointment{
		appts: appts,
		bus:   bus,
		audit: auditDisp,
	}
}

func (uc *CompleteAppointment) Execute(
	ctx context.Context,
	psychologistID uint,
	appointmentID uint,
) (*models.Appointment, error) {

	ap, err := uc.appts.GetAppointmentForPsychologist(ctx, appointmentID, psychologistID)
	if err != nil {
		return nil, httperr.ErrBusiness("appointment_not_found")
	}

	now := timezone.Now()
	if now.Before(ap.EndTime) {
		return nil, httperr.ErrBusiness("not_finished_yet")
	}

	won, err := uc.appts.CompleteIfConfirmed(ctx, ap.ID, now)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, httperr.ErrBusiness("invalid_state")
	}

	uc.bus.Publish(events.Event{
		Name:          events.AppointmentCompleted,
		AppointmentID: ap.ID,
		OccurredAt:    now,
	})

	uc.audit.Dispatch(audit.Event{
		UserID:   &psychologistID,
		Action:   "appointment_completed",
		Entity:   "appointment",
		EntityID: &ap.ID,
	})

	ap.Status = string(domain.StatusCompleted)
	ap.CompletedAt = &now

	return ap, nil
}
