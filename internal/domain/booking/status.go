package booking

import "github.com/PsylineServices/psy-scheduler/internal/httperr"

// ===============================
// Slot state
// ===============================

type SlotState string

const (
	SlotFree      SlotState = "free"
	SlotReserved  SlotState = "reserved"
	SlotConfirmed SlotState = "confirmed"
)

// ===============================
// Appointment status
// ===============================

type Status string

const (
	StatusPending        Status = "pending"
	StatusPendingPayment Status = "pending_payment"
	StatusConfirmed      Status = "confirmed"
	StatusCancelled      Status = "cancelled"
	StatusCompleted      Status = "completed"
)

// ConfirmableStatuses are the only statuses ConfirmIfPending may leave.
var ConfirmableStatuses = []Status{StatusPending, StatusPendingPayment}

// PendingHoldStatuses are the statuses in which an appointment still only
// holds its slot. The sweeper may cancel from here and nowhere else.
var PendingHoldStatuses = []Status{StatusPending, StatusPendingPayment}

// CancellableStatuses lists where Cancel is reachable from. For confirmed
// appointments the cancellation cutoff is part of the update predicate.
var CancellableStatuses = []Status{StatusPending, StatusPendingPayment, StatusConfirmed}

// ===============================
// Validations
// ===============================

func CanCancel(current Status) error {
	for _, s := range CancellableStatuses {
		if current == s {
			return nil
		}
	}
	return httperr.ErrBusiness("invalid_state")
}

func CanComplete(current Status) error {
	if current != StatusConfirmed {
		return httperr.ErrBusiness("invalid_state")
	}
	return nil
}

// InitialStatus depends on whether the service takes prepayment.
func InitialStatus(prepayment bool) Status {
	if prepayment {
		return StatusPendingPayment
	}
	return StatusPending
}
