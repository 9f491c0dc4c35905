package models

import "time"

// IdempotencyRecord caches the outcome of a keyed request so a retry replays
// the stored response instead of re-executing side effects. RequestHash keeps
// "same key, different payload" detectable.
type IdempotencyRecord struct {
	Key string `gorm:"size:100;primaryKey" json:"key"`

	RequestHash string `gorm:"size:64;not null" json:"request_hash"`
	StatusCode  int    `json:"status_code"`
	Result      string `gorm:"type:text" json:"result"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}
