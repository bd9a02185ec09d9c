package ratelimit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/lessonloop/gateway/internal/db"
)

func openTestStore(t *testing.T) *GormEventStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "gateway-test.db")
	conn, errOpen := db.Open(dsn)
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return NewGormEventStore(conn)
}

func TestGormEventStoreCountAndOldest(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	since := time.Now().UTC().Add(-time.Minute)

	count, errCount := store.CountSince(ctx, "t-1", "chat", since)
	if errCount != nil {
		t.Fatalf("count empty: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("expected 0 events, got %d", count)
	}
	if _, ok, errOldest := store.OldestSince(ctx, "t-1", "chat", since); errOldest != nil || ok {
		t.Fatalf("expected empty window, ok=%v err=%v", ok, errOldest)
	}

	for i := 0; i < 3; i++ {
		if errInsert := store.Insert(ctx, "t-1", "chat"); errInsert != nil {
			t.Fatalf("insert %d: %v", i, errInsert)
		}
	}
	if errInsert := store.Insert(ctx, "t-1", "image"); errInsert != nil {
		t.Fatalf("insert image: %v", errInsert)
	}
	if errInsert := store.Insert(ctx, "t-2", "chat"); errInsert != nil {
		t.Fatalf("insert other user: %v", errInsert)
	}

	count, errCount = store.CountSince(ctx, "t-1", "chat", since)
	if errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 3 {
		t.Fatalf("expected 3 chat events for t-1, got %d", count)
	}

	oldest, ok, errOldest := store.OldestSince(ctx, "t-1", "chat", since)
	if errOldest != nil || !ok {
		t.Fatalf("oldest: ok=%v err=%v", ok, errOldest)
	}
	if oldest.Before(since) {
		t.Fatalf("oldest %s precedes window start %s", oldest, since)
	}
}

func TestGormEventStoreWindowBound(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if errInsert := store.Insert(ctx, "t-1", "chat"); errInsert != nil {
		t.Fatalf("insert: %v", errInsert)
	}

	// A window starting in the future excludes everything written so far.
	count, errCount := store.CountSince(ctx, "t-1", "chat", time.Now().UTC().Add(time.Minute))
	if errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("expected event outside window to be ignored, got %d", count)
	}
}
