package payment

import "errors"

// ErrPaymentNotFound distinguishes a genuinely unknown payment reference
// from an infrastructure failure during lookup. Only the former may be
// acknowledged to the provider; the latter must surface so the delivery
// is retried.
var ErrPaymentNotFound = errors.New("payment not found")
