package booking

import (
	"context"
	"time"

	"go.uber.org/zap"

	domain "github.com/PsylineServices/psy-scheduler/internal/domain/booking"
	"github.com/PsylineServices/psy-scheduler/internal/events"
	"github.com/PsylineServices/psy-scheduler/internal/timezone"
)

// ReleaseExpiredHolds returns reserved slots whose hold outlived the TTL back
// to free, cancelling the pending appointment that held them. Every step is a
// conditional update, so a confirmation landing mid-sweep wins cleanly.
type ReleaseExpiredHolds struct {
	slots  domain.SlotRepository
	appts  domain.AppointmentRepository
	bus    events.Bus
	logger *zap.Logger

	holdTTL time.Duration
}

func NewReleaseExpiredHolds(
	slots domain.SlotRepository,
	appts domain.AppointmentRepository,
	bus events.Bus,
	logger *zap.Logger,
	holdTTL time.Duration,
) *ReleaseExpiredHolds {
	return &ReleaseExpiredHolds{
		slots:   slots,
		appts:   appts,
		bus:     bus,
		logger:  logger,
		holdTTL: holdTTL,
	}
}

func (uc *ReleaseExpiredHolds) Execute(ctx context.Context) (int, error) {
	now := timezone.Now()
	cutoff := now.Add(-uc.holdTTL)

	expired, err := uc.slots.ListExpiredHolds(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	released := 0

	for _, slot := range expired {
		ap, err := uc.appts.GetAppointmentBySlot(ctx, slot.ID)
		if err == nil && ap != nil {
			// The narrow predicate decides the race: a confirmation landing
			// between the list and here matches zero rows, never this read.
			cancelled, err := uc.appts.CancelIfPendingHold(ctx, ap.ID, "hold_expired", now)
			if err != nil {
				uc.logger.Warn("expired hold cancel failed",
					zap.Uint("appointment_id", ap.ID),
					zap.Error(err),
				)
				continue
			}
			if !cancelled && domain.Status(ap.Status) != domain.StatusCancelled {
				// the appointment advanced concurrently; leave the slot alone
				continue
			}

			uc.bus.Publish(events.Event{
				Name:          events.AppointmentCancelled,
				AppointmentID: ap.ID,
				OccurredAt:    now,
				Metadata:      map[string]any{"reason": "hold_expired"},
			})
		}

		// Same predicate discipline as the reservation itself: only a hold
		// still reserved and still expired goes back to free.
		ok, err := uc.slots.ReleaseIfExpired(ctx, slot.ID, cutoff)
		if err != nil {
			uc.logger.Warn("expired hold release failed",
				zap.Uint("slot_id", slot.ID),
				zap.Error(err),
			)
			continue
		}
		if ok {
			released++
		}
	}

	return released, nil
}
