package models

import "time"

// RateLimitEvent records one admitted request for sliding-window counting.
//
// Rows are append-only. The limiter only ever queries a trailing window, so
// old rows age out of every decision without an explicit delete; retention
// cleanup is an operational concern, not a correctness one.
type RateLimitEvent struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID   string `gorm:"type:text;not null;index:idx_rate_limit_events_lookup,priority:1"` // Opaque user identifier.
	Category string `gorm:"type:text;not null;index:idx_rate_limit_events_lookup,priority:2"` // Request class, e.g. "chat".

	CreatedAt time.Time `gorm:"not null;index:idx_rate_limit_events_lookup,priority:3"` // Admission timestamp.
}
