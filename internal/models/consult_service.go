package models

import "time"

type ConsultService struct {
	ID             uint `gorm:"primaryKey" json:"id"`
	PsychologistID uint `gorm:"index" json:"psychologist_id"`
	Psychologist   User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`

	Name        string  `gorm:"size:100;not null" json:"name"`
	Description string  `gorm:"size:255" json:"description"`
	DurationMin int     `json:"duration_min"`
	Price       float64 `json:"price"`
	Currency    string  `gorm:"size:3;default:'RUB'" json:"currency"`

	// Prepayment services enter pending_payment and are confirmed by the
	// payment webhook; the rest are confirmed manually.
	Prepayment bool `gorm:"default:false" json:"prepayment"`
	Active     bool `gorm:"default:true" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
