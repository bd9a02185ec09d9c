package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		result, errAllow := limiter.Allow(ctx, "u:1:c:chat", 2, now)
		if errAllow != nil {
			t.Fatalf("allow %d: %v", i, errAllow)
		}
		if !result.Allowed {
			t.Fatalf("allow %d: expected admission", i)
		}
	}

	result, errAllow := limiter.Allow(ctx, "u:1:c:chat", 2, now)
	if errAllow != nil {
		t.Fatalf("allow over limit: %v", errAllow)
	}
	if result.Allowed {
		t.Fatalf("expected denial within the same second")
	}

	// Next second opens a fresh window.
	result, errAllow = limiter.Allow(ctx, "u:1:c:chat", 2, now.Add(time.Second))
	if errAllow != nil {
		t.Fatalf("allow next second: %v", errAllow)
	}
	if !result.Allowed {
		t.Fatalf("expected admission in the next window")
	}
}

func TestMemoryLimiterZeroLimitAllows(t *testing.T) {
	limiter := NewMemoryLimiter()
	result, errAllow := limiter.Allow(context.Background(), "u:1:c:chat", 0, time.Now())
	if errAllow != nil {
		t.Fatalf("allow: %v", errAllow)
	}
	if !result.Allowed {
		t.Fatalf("expected zero limit to mean unlimited")
	}
}

func TestManagerFallsBackToMemory(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	manager := NewManager(func() BurstSettings {
		return BurstSettings{PerSecond: 1}
	}, func() time.Time { return now }, nil)
	ctx := context.Background()

	key := BurstKey("7", "chat")
	if result, errAllow := manager.Allow(ctx, key); errAllow != nil || !result.Allowed {
		t.Fatalf("expected first request admitted, allowed=%v err=%v", result.Allowed, errAllow)
	}
	if result, errAllow := manager.Allow(ctx, key); errAllow != nil || result.Allowed {
		t.Fatalf("expected second request denied, allowed=%v err=%v", result.Allowed, errAllow)
	}
}

func TestManagerDisabledAdmitsAll(t *testing.T) {
	manager := NewManager(func() BurstSettings { return BurstSettings{} }, nil, nil)
	for i := 0; i < 10; i++ {
		result, errAllow := manager.Allow(context.Background(), BurstKey("7", "chat"))
		if errAllow != nil || !result.Allowed {
			t.Fatalf("expected admission with burst disabled")
		}
	}
}

func TestBurstKey(t *testing.T) {
	if key := BurstKey("7", "chat"); key != "u:7:c:chat" {
		t.Fatalf("unexpected key %q", key)
	}
	if key := BurstKey("", "chat"); key != "" {
		t.Fatalf("expected empty key for empty user, got %q", key)
	}
}
