package models

import "time"

// WebhookEvent stores provider deliveries with dedup metadata. A row that
// exists but has ProcessedAt nil is a delivery we accepted and then failed
// mid-handler; the provider's retry re-enters processing for it.
type WebhookEvent struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Provider        string `gorm:"size:20;not null;index:ux_webhook_events_provider_event,unique,priority:1" json:"provider"`
	ProviderEventID string `gorm:"size:191;not null;index:ux_webhook_events_provider_event,unique,priority:2" json:"provider_event_id"`

	EventType string `gorm:"size:100" json:"event_type"`
	Payload   string `gorm:"type:text" json:"payload"`

	ProcessedAt *time.Time `json:"processed_at"`
	CreatedAt   time.Time  `json:"created_at"`
}
