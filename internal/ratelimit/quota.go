package ratelimit

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// QuotaLimiter enforces a persisted sliding-window quota per (user, category).
//
// Check and Record are deliberately separate calls: callers must check before
// doing any expensive work and record only once the upstream call is actually
// being made, so a request rejected for other reasons never burns a slot.
// Two concurrent requests can both observe the last free slot; the quota is
// advisory under that race. Callers needing a hard ceiling layer the atomic
// burst limiter (Manager) in front.
type QuotaLimiter struct {
	store  EventStore
	quotas map[string]Quota
	nowFn  func() time.Time

	// bypass admits everything without touching the store. Development
	// only; it is never used as a fallback on store errors.
	bypass bool
}

// NewQuotaLimiter constructs a QuotaLimiter with default dependencies when nil.
func NewQuotaLimiter(store EventStore, quotas map[string]Quota, bypass bool, nowFn func() time.Time) *QuotaLimiter {
	if nowFn == nil {
		nowFn = time.Now
	}
	if quotas == nil {
		quotas = map[string]Quota{}
	}
	return &QuotaLimiter{
		store:  store,
		quotas: quotas,
		nowFn:  nowFn,
		bypass: bypass,
	}
}

// Check decides whether a new (userID, category) request is admitted.
//
// The decision fails closed: when the event count cannot be read the request
// is denied, because an unknown quota state must not default to permissive
// for calls that cost real money.
func (l *QuotaLimiter) Check(ctx context.Context, userID, category string) (Decision, error) {
	now := l.nowFn().UTC()
	quota, ok := l.quotas[category]
	if !ok || quota.Limit <= 0 || quota.Window <= 0 {
		return Decision{}, fmt.Errorf("rate limit: unknown category %q", category)
	}
	if l.bypass {
		return Decision{Allowed: true, Remaining: quota.Limit, ResetAt: now.Add(quota.Window)}, nil
	}

	windowStart := now.Add(-quota.Window)

	count, errCount := l.store.CountSince(ctx, userID, category, windowStart)
	if errCount != nil {
		log.WithError(errCount).WithFields(log.Fields{
			"user_id":  userID,
			"category": category,
		}).Warn("rate limit: count failed, denying request")
		return Decision{Allowed: false, Remaining: 0, ResetAt: now.Add(quota.Window)}, errCount
	}

	resetAt := now.Add(quota.Window)
	if oldest, okOldest, errOldest := l.store.OldestSince(ctx, userID, category, windowStart); errOldest == nil && okOldest {
		resetAt = oldest.Add(quota.Window)
	}

	remaining := quota.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count < int64(quota.Limit),
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

// Record appends one admission event for (userID, category).
func (l *QuotaLimiter) Record(ctx context.Context, userID, category string) error {
	if l.bypass {
		return nil
	}
	return l.store.Insert(ctx, userID, category)
}
