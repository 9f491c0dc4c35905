package booking

import (
	"context"
	"time"

	"github.com/PsylineServices/psy-scheduler/internal/models"
)

// SlotRepository owns the slot ledger. Reserve/Release/Confirm are single
// conditional updates; the boolean reports whether this call won the
// transition. Contention is an expected outcome, not an error.
type SlotRepository interface {
	GetSlot(ctx context.Context, id uint) (*models.Slot, error)

	CreateSlot(ctx context.Context, slot *models.Slot) error

	DeleteFreeSlot(ctx context.Context, id uint, psychologistID uint) (bool, error)

	// free -> reserved, stamping reserved_at/reserved_by
	ReserveSlot(ctx context.Context, id uint, by string, now time.Time) (bool, error)

	// reserved|confirmed -> free, clearing the reservation stamp
	ReleaseSlot(ctx context.Context, id uint) (bool, error)

	// reserved -> confirmed
	ConfirmSlot(ctx context.Context, id uint) (bool, error)

	// reserved -> free, only when reserved_at < cutoff
	ReleaseIfExpired(ctx context.Context, id uint, cutoff time.Time) (bool, error)

	ListExpiredHolds(ctx context.Context, cutoff time.Time) ([]models.Slot, error)

	ListFreeSlots(ctx context.Context, serviceID uint, from, to time.Time) ([]models.Slot, error)

	ListSlots(ctx context.Context, psychologistID uint, from, to time.Time) ([]models.Slot, error)

	// Overlap against non-free slots of the same psychologist; used when
	// publishing new slots, never for reservation.
	HasOverlappingSlot(ctx context.Context, psychologistID uint, start, end time.Time) (bool, error)
}

type AppointmentRepository interface {
	GetAppointment(ctx context.Context, id uint) (*models.Appointment, error)

	GetAppointmentForPsychologist(ctx context.Context, id uint, psychologistID uint) (*models.Appointment, error)

	GetAppointmentBySlot(ctx context.Context, slotID uint) (*models.Appointment, error)

	CreateAppointment(ctx context.Context, ap *models.Appointment) error

	// pending|pending_payment -> confirmed; the only path to confirmed.
	ConfirmIfPending(ctx context.Context, id uint, now time.Time) (bool, error)

	// pending|pending_payment -> cancelled always; confirmed -> cancelled
	// only when start_time >= minStart, so the cancellation cutoff is part
	// of the same predicate that decides the race.
	CancelIfActive(ctx context.Context, id uint, reason string, now time.Time, minStart time.Time) (bool, error)

	// pending|pending_payment -> cancelled. The sweeper's cancel: a payment
	// confirmation racing the sweep always keeps the appointment.
	CancelIfPendingHold(ctx context.Context, id uint, reason string, now time.Time) (bool, error)

	// confirmed -> completed
	CompleteIfConfirmed(ctx context.Context, id uint, now time.Time) (bool, error)

	ListAppointmentsForPeriod(ctx context.Context, psychologistID uint, start, end time.Time) ([]models.Appointment, error)
}

type ClientRepository interface {
	GetClient(ctx context.Context, id uint) (*models.Client, error)

	GetOrCreateClient(ctx context.Context, name, phone, email string) (*models.Client, error)

	// reports whether a client with that phone existed
	LinkTelegramChat(ctx context.Context, phone string, chatID int64) (bool, error)
}

type ServiceRepository interface {
	GetService(ctx context.Context, id uint) (*models.ConsultService, error)
}
