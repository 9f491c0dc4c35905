package payment

// ===============================
// Payment status
// ===============================

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusCanceled  Status = "canceled"
	StatusFailed    Status = "failed"
)

// Terminal statuses absorb further webhook events for the same payment.
func IsTerminal(s Status) bool {
	return s == StatusSucceeded || s == StatusCanceled || s == StatusFailed
}
