package ratelimit

import (
	"context"
	"time"
)

// Decision describes the outcome of a quota check.
//
// Decisions are computed fresh on every check and never cached; concurrent
// admissions must be visible to the next checker immediately.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Quota defines a sliding-window admission budget for one category.
type Quota struct {
	Limit  int
	Window time.Duration
}

// EventStore persists and counts admission events.
type EventStore interface {
	// CountSince returns the number of events for (userID, category) with
	// created_at >= since.
	CountSince(ctx context.Context, userID, category string, since time.Time) (int64, error)
	// OldestSince returns the creation time of the oldest event in the
	// window, or ok=false when the window is empty.
	OldestSince(ctx context.Context, userID, category string, since time.Time) (time.Time, bool, error)
	// Insert appends one admission event for (userID, category).
	Insert(ctx context.Context, userID, category string) error
}

// Result describes the outcome of a burst limiter check.
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// BurstLimiter provides fixed-window per-second checks.
type BurstLimiter interface {
	Allow(ctx context.Context, key string, limit int, now time.Time) (Result, error)
}
