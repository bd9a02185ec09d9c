package usage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/lessonloop/gateway/internal/db"
	"github.com/lessonloop/gateway/internal/models"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "gateway-test.db")
	conn, errOpen := db.Open(dsn)
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func TestTrackerPersistsSuccessfulExchange(t *testing.T) {
	conn := openTestDB(t)
	tracker := NewTracker(conn, Pricing{
		"gpt-4o": {InputPerMillion: 2.50, OutputPerMillion: 10.00},
	})

	tracker.Schedule(Record{
		UserID:           "t-1",
		Category:         "chat",
		Model:            "gpt-4o",
		PromptTokens:     1000,
		CompletionTokens: 500,
		RequestMetadata:  map[string]any{"message_chars": 42},
		ResponseMetadata: map[string]any{"finish_reason": "stop"},
	})
	tracker.Drain()

	var row models.Usage
	if errFirst := conn.First(&row).Error; errFirst != nil {
		t.Fatalf("load usage row: %v", errFirst)
	}
	if row.UserID != "t-1" || row.Category != "chat" || row.Model != "gpt-4o" {
		t.Fatalf("unexpected identity fields: %+v", row)
	}
	if row.PromptTokens != 1000 || row.CompletionTokens != 500 || row.TotalTokens != 1500 {
		t.Fatalf("unexpected token fields: %+v", row)
	}
	// 1000 in at $2.50/M + 500 out at $10/M = $0.0075 = 7500 micros.
	if row.CostMicros != 7500 {
		t.Fatalf("expected 7500 micros, got %d", row.CostMicros)
	}
	if row.Error != "" {
		t.Fatalf("expected no error, got %q", row.Error)
	}
	if len(row.RequestMetadata) == 0 || len(row.ResponseMetadata) == 0 {
		t.Fatalf("expected metadata persisted")
	}
}

func TestTrackerPersistsFailedExchangeWithZeroedCost(t *testing.T) {
	conn := openTestDB(t)
	tracker := NewTracker(conn, nil)

	tracker.Schedule(Record{
		UserID:           "t-1",
		Category:         "chat",
		Model:            "gpt-4o",
		PromptTokens:     1000,
		CompletionTokens: 250,
		Err:              errors.New("upstream stream failed"),
	})
	tracker.Drain()

	var row models.Usage
	if errFirst := conn.First(&row).Error; errFirst != nil {
		t.Fatalf("load usage row: %v", errFirst)
	}
	if row.Error != "upstream stream failed" {
		t.Fatalf("expected error persisted, got %q", row.Error)
	}
	if row.PromptTokens != 0 || row.CompletionTokens != 0 || row.TotalTokens != 0 || row.CostMicros != 0 {
		t.Fatalf("expected zeroed token/cost fields on failure: %+v", row)
	}
}

func TestTrackerWritesOnceDrainWaits(t *testing.T) {
	conn := openTestDB(t)
	tracker := NewTracker(conn, nil)

	for i := 0; i < 5; i++ {
		tracker.Schedule(Record{UserID: "t-1", Category: "chat", Model: "m"})
	}
	tracker.Drain()

	var count int64
	if errCount := conn.Model(&models.Usage{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 5 {
		t.Fatalf("expected 5 rows after drain, got %d", count)
	}
}

func TestTrackerSwallowsPersistenceFailure(t *testing.T) {
	// A nil DB stands in for a broken store: the schedule path must not
	// panic or surface the failure.
	tracker := NewTracker(nil, nil)
	tracker.Schedule(Record{UserID: "t-1", Category: "chat", Model: "m"})
	tracker.Drain()
}
