package models

import "time"

type Payment struct {
	ID uint `gorm:"primaryKey" json:"id"`

	AppointmentID uint        `gorm:"index" json:"appointment_id"`
	Appointment   Appointment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`

	// (provider, provider_payment_id) is the dedup key for webhook replay.
	Provider          string `gorm:"size:20;not null;index:ux_payments_provider_payment,unique,priority:1" json:"provider"`
	ProviderPaymentID string `gorm:"size:100;not null;index:ux_payments_provider_payment,unique,priority:2" json:"provider_payment_id"`

	Amount   float64 `json:"amount"`
	Currency string  `gorm:"size:3;default:'RUB'" json:"currency"`

	Status          string `gorm:"size:20;default:'pending'" json:"status"`
	FailureCategory string `gorm:"size:50" json:"failure_category"`

	IdempotencyKey *string `gorm:"size:100;uniqueIndex" json:"idempotency_key"`

	CreatedAt   time.Time  `json:"created_at"`
	ConfirmedAt *time.Time `json:"confirmed_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
