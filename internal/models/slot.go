package models

import "time"

// Slot is one bookable interval in the ledger. All state changes go through
// conditional updates; the row is the mutual-exclusion boundary.
type Slot struct {
	ID uint `gorm:"primaryKey" json:"id"`

	PsychologistID uint `gorm:"index:idx_slots_psy_start" json:"psychologist_id"`
	ServiceID      uint `gorm:"index" json:"service_id"`

	StartTime time.Time `gorm:"index:idx_slots_psy_start" json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	State string `gorm:"size:20;default:'free';index" json:"state"`

	ReservedAt *time.Time `json:"reserved_at"`
	ReservedBy string     `gorm:"size:100" json:"reserved_by"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
