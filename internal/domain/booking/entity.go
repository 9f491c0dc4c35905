package booking

import (
	"time"

	"github.com/PsylineServices/psy-scheduler/internal/models"
)

// ===============================
// Domain Actions
// ===============================

// These mutate the in-memory model only; durable transitions go through the
// conditional updates on the repository.

func Cancel(ap *models.Appointment, reason string, now time.Time) error {
	if err := CanCancel(Status(ap.Status)); err != nil {
		return err
	}

	ap.Status = string(StatusCancelled)
	ap.CancelReason = reason
	ap.CancelledAt = &now
	return nil
}

func Complete(ap *models.Appointment, now time.Time) error {
	if err := CanComplete(Status(ap.Status)); err != nil {
		return err
	}

	ap.Status = string(StatusCompleted)
	ap.CompletedAt = &now
	return nil
}
