package models

import (
	"time"

	"gorm.io/datatypes"
)

// Usage stores one completed or failed exchange for cost accounting.
//
// Exactly one row is written per exchange. Failed exchanges keep an audit
// trail with Error set and zeroed token/cost fields.
type Usage struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID   string `gorm:"type:text;not null;index"` // Opaque user identifier.
	Category string `gorm:"type:text;not null;index"` // Request class, e.g. "chat".
	Model    string `gorm:"type:text;not null"`       // Upstream model identifier.

	PromptTokens     int `gorm:"not null;default:0"` // Estimated prompt tokens.
	CompletionTokens int `gorm:"not null;default:0"` // Estimated completion tokens.
	TotalTokens      int `gorm:"not null;default:0"` // Estimated total tokens.

	CostMicros int64 `gorm:"not null;default:0"` // Estimated cost in micro-USD.

	RequestMetadata  datatypes.JSON // Opaque request audit payload.
	ResponseMetadata datatypes.JSON // Opaque response audit payload.

	Error string `gorm:"type:text"` // Failure message, empty on success.

	CreatedAt time.Time `gorm:"autoCreateTime;index"` // Record timestamp.
}
