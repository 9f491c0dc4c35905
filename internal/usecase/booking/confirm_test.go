package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domain "github.com/PsylineServices/psy-scheduler/internal/domain/booking"
	"github.com/PsylineServices/psy-scheduler/internal/events"
	"github.com/PsylineServices/psy-scheduler/internal/models"
	"github.com/PsylineServices/psy-scheduler/internal/usecase/booking"
)

type confirmFixture struct {
	slots  *fakeSlotRepo
	appts  *fakeApptRepo
	bus    *fakeBus
	mail   *fakeMailer
	uc     *booking.ConfirmAppointment
	apptID uint
	slotID uint
}

func newConfirmFixture(t *testing.T, status domain.Status) *confirmFixture {
	t.Helper()

	slots := newFakeSlotRepo()
	appts := newFakeApptRepo()
	bus := &fakeBus{}
	mail := &fakeMailer{}

	appts.addClient(&models.Client{ID: 1, Name: "Anna", Phone: "+79990001122", Email: "anna@example.com"})

	start := time.Now().Add(48 * time.Hour)
	slot := seedFreeSlot(t, slots, 1, start)
	won, err := slots.ReserveSlot(context.Background(), slot.ID, "+79990001122", time.Now())
	require.NoError(t, err)
	require.True(t, won)

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

	uc := booking.NewConfirmAppointment(slots, appts, appts, bus, mail, nopAudit(), zap.NewNop())

	return &confirmFixture{
		slots:  slots,
		appts:  appts,
		bus:    bus,
		mail:   mail,
		uc:     uc,
		apptID: ap.ID,
		slotID: slot.ID,
	}
}

func TestConfirmAppointment(t *testing.T) {
	t.Run("confirms a pending_payment appointment", func(t *testing.T) {
		f := newConfirmFixture(t, domain.StatusPendingPayment)

		won, err := f.uc.Execute(context.Background(), f.apptID)
		require.NoError(t, err)
		assert.True(t, won)

		assert.Equal(t, string(domain.StatusConfirmed), f.appts.status(f.apptID))
		assert.Equal(t, string(domain.SlotConfirmed), f.slots.state(f.slotID))
		assert.Equal(t, 1, f.bus.count(events.AppointmentConfirmed))
		assert.Equal(t, 1, f.mail.count())
	})

	t.Run("second confirm is a no-op", func(t *testing.T) {
		f := newConfirmFixture(t, domain.StatusPending)

		won, err := f.uc.Execute(context.Background(), f.apptID)
		require.NoError(t, err)
		require.True(t, won)

		won, err = f.uc.Execute(context.Background(), f.apptID)
		require.NoError(t, err)
		assert.False(t, won)

		assert.Equal(t, 1, f.bus.count(events.AppointmentConfirmed))
		assert.Equal(t, 1, f.mail.count(), "no duplicate confirmation email")
	})

	t.Run("cancelled appointment cannot be confirmed", func(t *testing.T) {
		f := newConfirmFixture(t, domain.StatusCancelled)

		won, err := f.uc.Execute(context.Background(), f.apptID)
		require.NoError(t, err)
		assert.False(t, won)
		assert.Equal(t, 0, f.mail.count())
	})

	t.Run("client without email gets no email but the confirm still lands", func(t *testing.T) {
		f := newConfirmFixture(t, domain.StatusPending)
		f.appts.addClient(&models.Client{ID: 1, Name: "Anna", Phone: "+79990001122"})

		won, err := f.uc.Execute(context.Background(), f.apptID)
		require.NoError(t, err)
		assert.True(t, won)
		assert.Equal(t, 0, f.mail.count())
	})
}

// Concurrent confirmations of the same appointment: one caller wins the
// transition and side effects fire exactly once.
func TestConfirmAppointmentConcurrent(t *testing.T) {
	const workers = 30

	f := newConfirmFixture(t, domain.StatusPendingPayment)

	var wg sync.WaitGroup
	wins := make(chan bool, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := f.uc.Execute(context.Background(), f.apptID)
			require.NoError(t, err)
			wins <- won
		}()
	}

	wg.Wait()
	close(wins)

	winners := 0
	for won := range wins {
		if won {
			winners++
		}
	}

	assert.Equal(t, 1, winners)
	assert.Equal(t, string(domain.StatusConfirmed), f.appts.status(f.apptID))
	assert.Equal(t, 1, f.bus.count(events.AppointmentConfirmed))
	assert.Equal(t, 1, f.mail.count())
}

// brokenSlotRepo fails ConfirmSlot a set number of times before recovering.
type brokenSlotRepo struct {
	*fakeSlotRepo
	mu       sync.Mutex
	failures int
}

func (r *brokenSlotRepo) ConfirmSlot(ctx context.Context, id uint) (bool, error) {
	r.mu.Lock()
	if r.failures > 0 {
		r.failures--
		r.mu.Unlock()
		return false, errors.New("write: connection reset by peer")
	}
	r.mu.Unlock()
	return r.fakeSlotRepo.ConfirmSlot(ctx, id)
}

// A confirm that wins the transition but loses the slot update surfaces the
// failure so the delivery is retried, and the retry finishes the slot
// without repeating the one-time effects.
func TestConfirmAppointmentSlotFailureRecovers(t *testing.T) {
	f := newConfirmFixture(t, domain.StatusPendingPayment)

	broken := &brokenSlotRepo{fakeSlotRepo: f.slots, failures: 1}
	uc := booking.NewConfirmAppointment(broken, f.appts, f.appts, f.bus, f.mail, nopAudit(), zap.NewNop())

	won, err := uc.Execute(context.Background(), f.apptID)
	require.Error(t, err, "the caller must see the failure and retry")
	assert.True(t, won)
	assert.Equal(t, string(domain.StatusConfirmed), f.appts.status(f.apptID))
	assert.Equal(t, string(domain.SlotReserved), f.slots.state(f.slotID))
	assert.Equal(t, 1, f.bus.count(events.AppointmentConfirmed))
	assert.Equal(t, 1, f.mail.count())

	won, err = uc.Execute(context.Background(), f.apptID)
	require.NoError(t, err)
	assert.False(t, won)
	assert.Equal(t, string(domain.SlotConfirmed), f.slots.state(f.slotID), "retry repairs the slot")
	assert.Equal(t, 1, f.bus.count(events.AppointmentConfirmed), "no duplicate event")
	assert.Equal(t, 1, f.mail.count(), "no duplicate email")
}

// brokenReadApptRepo fails appointment reads a set number of times.
type brokenReadApptRepo struct {
	*fakeApptRepo
	mu       sync.Mutex
	failures int
}

func (r *brokenReadApptRepo) GetAppointment(ctx context.Context, id uint) (*models.Appointment, error) {
	r.mu.Lock()
	if r.failures > 0 {
		r.failures--
		r.mu.Unlock()
		return nil, errors.New("read: connection reset by peer")
	}
	r.mu.Unlock()
	return r.fakeApptRepo.GetAppointment(ctx, id)
}

// A read failure happens before the transition, so nothing moves and the
// retry performs the whole confirm, effects included.
func TestConfirmAppointmentReadFailureStaysRetryable(t *testing.T) {
	f := newConfirmFixture(t, domain.StatusPendingPayment)

	broken := &brokenReadApptRepo{fakeApptRepo: f.appts, failures: 1}
	uc := booking.NewConfirmAppointment(f.slots, broken, f.appts, f.bus, f.mail, nopAudit(), zap.NewNop())

	won, err := uc.Execute(context.Background(), f.apptID)
	require.Error(t, err)
	assert.False(t, won)
	assert.Equal(t, string(domain.StatusPendingPayment), f.appts.status(f.apptID))
	assert.Equal(t, 0, f.bus.count(events.AppointmentConfirmed))
	assert.Equal(t, 0, f.mail.count())

	won, err = uc.Execute(context.Background(), f.apptID)
	require.NoError(t, err)
	assert.True(t, won)
	assert.Equal(t, string(domain.StatusConfirmed), f.appts.status(f.apptID))
	assert.Equal(t, string(domain.SlotConfirmed), f.slots.state(f.slotID))
	assert.Equal(t, 1, f.bus.count(events.AppointmentConfirmed))
	assert.Equal(t, 1, f.mail.count())
}
