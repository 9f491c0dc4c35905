package booking

import (
	"time"

	"github.com/PsylineServices/psy-scheduler/internal/httperr"
)

// ===============================
// TimeSlot value type
// ===============================

// TimeSlot is a half-open interval [Start, End). Immutable, no identity.
type TimeSlot struct {
	Start time.Time
	End   time.Time
}

func NewTimeSlot(start, end time.Time) (TimeSlot, error) {
	if !end.After(start) {
		return TimeSlot{}, httperr.ErrBusiness("invalid_interval")
	}
	return TimeSlot{Start: start, End: end}, nil
}

// Overlaps is true iff the intervals share any instant. Adjacent intervals
// (a.End == b.Start) do not overlap.
func (ts TimeSlot) Overlaps(other TimeSlot) bool {
	return ts.Start.Before(other.End) && ts.End.After(other.Start)
}

func (ts TimeSlot) Duration() time.Duration {
	return ts.End.Sub(ts.Start)
}
