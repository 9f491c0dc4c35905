package booking

import (
	"context"
	"time"

	"github.com/PsylineServices/psy-scheduler/internal/audit"
	domain "github.com/PsylineServices/psy-scheduler/internal/domain/booking"
	"github.com/PsylineServices/psy-scheduler/internal/events"
	"github.com/PsylineServices/psy-scheduler/internal/httperr"
	"github.com/PsylineServices/psy-scheduler/internal/models"
	"github.com/PsylineServices/psy-scheduler/internal/timezone"
)

// ======================================================
// INPUT
// ======================================================

type CreateAppointmentInput struct {
	ServiceID uint
	SlotID    uint

	ClientName  string
	ClientPhone string
	ClientEmail string

	Notes string
}

// ======================================================
// USE CASE
// ======================================================

type CreateAppointment struct {
	slots    domain.SlotRepository
	appts    domain.AppointmentRepository
	clients  domain.ClientRepository
	services domain.ServiceRepository
	bus      events.Bus
	audit    *audit.Dispatcher

	minAdvance time.Duration
}

func NewCreateAppointment(
	slots domain.SlotRepository,
	appts domain.AppointmentRepository,
	clients domain.ClientRepository,
	services domain.ServiceRepository,
	bus events.Bus,
	auditDisp *audit.Dispatcher,
	minAdvance time.Duration,
) *CreateAppointment {
	return &CreateAppointment{
		slots:      slots,
		appts:      appts,
		clients:    clients,
		services:   services,
		bus:        bus,
		audit:      auditDisp,
		minAdvance: minAdvance,
	}
}

// ======================================================
// EXECUTE
// ======================================================

func (uc *CreateAppointment) Execute(
	ctx context.Context,
	in CreateAppointmentInput,
) (*models.Appointment, error) {

	// --------------------------------------------------
	// 1. Service
	// --------------------------------------------------
	svc, err := uc.services.GetService(ctx, in.ServiceID)
	if err != nil {
		return nil, httperr.ErrBusiness("service_not_found")
	}
	if !svc.Active {
		return nil, httperr.ErrBusiness("service_not_found")
	}

	// --------------------------------------------------
	// 2. Slot (existence + ownership checks only; the
	//    reservation itself decides the race below)
	// --------------------------------------------------
	slot, err := uc.slots.GetSlot(ctx, in.SlotID)
	if err != nil {
		return nil, httperr.ErrBusiness("slot_not_found")
	}
	if slot.ServiceID != svc.ID {
		return nil, httperr.ErrBusiness("slot_service_mismatch")
	}

	now := timezone.Now()
	if slot.StartTime.Before(now.Add(uc.minAdvance)) {
		return nil, httperr.ErrBusiness("too_soon")
	}

	// --------------------------------------------------
	// 3. Client (get or create)
	// --------------------------------------------------
	client, err := uc.clients.GetOrCreateClient(
		ctx,
		in.ClientName,
		in.ClientPhone,
		in.ClientEmail,
	)
	if err != nil {
		return nil, err
	}

	// --------------------------------------------------
	// 4. Reservation: one conditional update, one winner
	// --------------------------------------------------
	won, err := uc.slots.ReserveSlot(ctx, slot.ID, in.ClientPhone, now)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, httperr.ErrBusiness("slot_taken")
	}

	// --------------------------------------------------
	// 5. Appointment row (compensate the hold on failure)
	// --------------------------------------------------
	ap := &models.Appointment{
		PsychologistID: slot.PsychologistID,
		ServiceID:      svc.ID,
		SlotID:         slot.ID,
		ClientID:       client.ID,
		StartTime:      slot.StartTime,
		EndTime:        slot.EndTime,
		Timezone:       timezone.DefaultTimezone,
		Status:         string(domain.InitialStatus(svc.Prepayment)),
		Notes:          in.Notes,
	}

	if err := uc.appts.CreateAppointment(ctx, ap); err != nil {
		if _, relErr := uc.slots.ReleaseSlot(ctx, slot.ID); relErr != nil {
			// sweeper picks the orphaned hold up after the TTL
			return nil, err
		}
		return nil, err
	}

	// --------------------------------------------------
	// 6. Side effects
	// --------------------------------------------------
	uc.bus.Publish(events.Event{
		Name:          events.AppointmentCreated,
		AppointmentID: ap.ID,
		OccurredAt:    now,
	})

	uc.audit.Dispatch(audit.Event{
		Action:   "appointment_created",
		Entity:   "appointment",
		EntityID: &ap.ID,
	})

	return ap, nil
}
