package booking_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domain "github.com/PsylineServices/psy-scheduler/internal/domain/booking"
	"github.com/PsylineServices/psy-scheduler/internal/events"
	"github.com/PsylineServices/psy-scheduler/internal/httperr"
	"github.com/PsylineServices/psy-scheduler/internal/models"
	"github.com/PsylineServices/psy-scheduler/internal/usecase/booking"
)

func seedAppointment(
	t *testing.T,
	slots *fakeSlotRepo,
	appts *fakeApptRepo,
	status domain.Status,
	start time.Time,
) *models.Appointment {
	t.Helper()

	slot := seedFreeSlot(t, slots, 1, start)
	won, err := slots.ReserveSlot(context.Background(), slot.ID, "+79990001122", time.Now())
	require.NoError(t, err)
	require.True(t, won)

	if status == domain.StatusConfirmed || status == domain.StatusCompleted {
		_, err = slots.ConfirmSlot(context.Background(), slot.ID)
		require.NoError(t, err)
	}

	ap := &models.Appointment{
		PsychologistID: 1,
		ServiceID:      1,
		SlotID:         slot.ID,
		ClientID:       1,
		StartTime:      start,
		EndTime:        start.Add(50 * time.Minute),
		Status:         string(status),
	}
	require.NoError(t, appts.CreateAppointment(context.Background(), ap))
	return ap
}

// confirmDuringCancelRepo confirms the appointment right after the first
// read, modeling a payment webhook landing between the read and the cancel.
type confirmDuringCancelRepo struct {
	*fakeApptRepo
	slots *fakeSlotRepo
	once  sync.Once
}

func (r *confirmDuringCancelRepo) GetAppointmentForPsychologist(ctx context.Context, id, psychologistID uint) (*models.Appointment, error) {
	ap, err := r.fakeApptRepo.GetAppointmentForPsychologist(ctx, id, psychologistID)
	if err == nil {
		r.once.Do(func() {
			_, _ = r.fakeApptRepo.ConfirmIfPending(ctx, ap.ID, time.Now())
			_, _ = r.slots.ConfirmSlot(ctx, ap.SlotID)
		})
	}
	return ap, err
}

func TestCancelAppointment(t *testing.T) {
	cutoff := 24 * time.Hour

	t.Run("cancels a pending appointment and frees the slot", func(t *testing.T) {
		slots := newFakeSlotRepo()
		appts := newFakeApptRepo()
		bus := &fakeBus{}
		ap := seedAppointment(t, slots, appts, domain.StatusPending, time.Now().Add(48*time.Hour))

		uc := booking.NewCancelAppointment(slots, appts, bus, nopAudit(), zap.NewNop(), cutoff)

		out, err := uc.Execute(context.Background(), 1, ap.ID, "client_request")
		require.NoError(t, err)

		assert.Equal(t, string(domain.StatusCancelled), out.Status)
		assert.Equal(t, "client_request", out.CancelReason)
		assert.Equal(t, string(domain.SlotFree), slots.state(ap.SlotID))
		assert.Equal(t, 1, bus.count(events.AppointmentCancelled))
	})

	t.Run("confirmed appointment inside the cutoff window is kept", func(t *testing.T) {
		slots := newFakeSlotRepo()
		appts := newFakeApptRepo()
		// starts in 2h, cutoff is 24h
		ap := seedAppointment(t, slots, appts, domain.StatusConfirmed, time.Now().Add(2*time.Hour))

		uc := booking.NewCancelAppointment(slots, appts, &fakeBus{}, nopAudit(), zap.NewNop(), cutoff)

		_, err := uc.Execute(context.Background(), 1, ap.ID, "changed_my_mind")
		assert.True(t, httperr.IsBusiness(err, "cancel_cutoff_passed"))
		assert.Equal(t, string(domain.StatusConfirmed), appts.status(ap.ID))
	})

	t.Run("confirmation racing the cancel applies the cutoff", func(t *testing.T) {
		slots := newFakeSlotRepo()
		inner := newFakeApptRepo()
		// read shows pending, but the payment lands before the cancel;
		// starts in 2h, inside the 24h cutoff
		ap := seedAppointment(t, slots, inner, domain.StatusPending, time.Now().Add(2*time.Hour))

		appts := &confirmDuringCancelRepo{fakeApptRepo: inner, slots: slots}
		uc := booking.NewCancelAppointment(slots, appts, &fakeBus{}, nopAudit(), zap.NewNop(), cutoff)

		_, err := uc.Execute(context.Background(), 1, ap.ID, "changed_my_mind")
		assert.True(t, httperr.IsBusiness(err, "cancel_cutoff_passed"))
		assert.Equal(t, string(domain.StatusConfirmed), inner.status(ap.ID))
		assert.Equal(t, string(domain.SlotConfirmed), slots.state(ap.SlotID))
	})

	t.Run("confirmed appointment outside the cutoff is cancellable", func(t *testing.T) {
		slots := newFakeSlotRepo()
		appts := newFakeApptRepo()
		ap := seedAppointment(t, slots, appts, domain.StatusConfirmed, time.Now().Add(72*time.Hour))

		uc := booking.NewCancelAppointment(slots, appts, &fakeBus{}, nopAudit(), zap.NewNop(), cutoff)

		out, err := uc.Execute(context.Background(), 1, ap.ID, "client_request")
		require.NoError(t, err)
		assert.Equal(t, string(domain.StatusCancelled), out.Status)
		assert.Equal(t, string(domain.SlotFree), slots.state(ap.SlotID))
	})

	t.Run("already cancelled appointment is rejected", func(t *testing.T) {
		slots := newFakeSlotRepo()
		appts := newFakeApptRepo()
		ap := seedAppointment(t, slots, appts, domain.StatusCancelled, time.Now().Add(48*time.Hour))

		uc := booking.NewCancelAppointment(slots, appts, &fakeBus{}, nopAudit(), zap.NewNop(), cutoff)

		_, err := uc.Execute(context.Background(), 1, ap.ID, "again")
		assert.True(t, httperr.IsBusiness(err, "invalid_state"))
	})

	t.Run("foreign appointment is not found", func(t *testing.T) {
		slots := newFakeSlotRepo()
		appts := newFakeApptRepo()
		ap := seedAppointment(t, slots, appts, domain.StatusPending, time.Now().Add(48*time.Hour))

		uc := booking.NewCancelAppointment(slots, appts, &fakeBus{}, nopAudit(), zap.NewNop(), cutoff)

		_, err := uc.Execute(context.Background(), 99, ap.ID, "not_mine")
		assert.True(t, httperr.IsBusiness(err, "appointment_not_found"))
	})
}

func TestCompleteAppointment(t *testing.T) {
	t.Run("completes a finished confirmed appointment", func(t *testing.T) {
		slots := newFakeSlotRepo()
		appts := newFakeApptRepo()
		bus := &fakeBus{}
		ap := seedAppointment(t, slots, appts, domain.StatusConfirmed, time.Now().Add(-2*time.Hour))

		uc := booking.NewCompleteAppointment(appts, bus, nopAudit())

		out, err := uc.Execute(context.Background(), 1, ap.ID)
		require.NoError(t, err)
		assert.Equal(t, string(domain.StatusCompleted), out.Status)
		assert.Equal(t, 1, bus.count(events.AppointmentCompleted))
	})

	t.Run("appointment still in progress is rejected", func(t *testing.T) {
		slots := newFakeSlotRepo()
		appts := newFakeApptRepo()
		ap := seedAppointment(t, slots, appts, domain.StatusConfirmed, time.Now().Add(time.Hour))

		uc := booking.NewCompleteAppointment(appts, &fakeBus{}, nopAudit())

		_, err := uc.Execute(context.Background(), 1, ap.ID)
		assert.True(t, httperr.IsBusiness(err, "not_finished_yet"))
	})

	t.Run("pending appointment cannot be completed", func(t *testing.T) {
		slots := newFakeSlotRepo()
		appts := newFakeApptRepo()
		ap := seedAppointment(t, slots, appts, domain.StatusPending, time.Now().Add(-2*time.Hour))

		uc := booking.NewCompleteAppointment(appts, &fakeBus{}, nopAudit())

		_, err := uc.Execute(context.Background(), 1, ap.ID)
		assert.True(t, httperr.IsBusiness(err, "invalid_state"))
	})
}
