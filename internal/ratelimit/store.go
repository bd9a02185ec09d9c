package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/lessonloop/gateway/internal/models"
	"gorm.io/gorm"
)

// GormEventStore persists admission events via GORM.
type GormEventStore struct {
	db *gorm.DB
}

// NewGormEventStore constructs a GormEventStore.
func NewGormEventStore(db *gorm.DB) *GormEventStore {
	return &GormEventStore{db: db}
}

// CountSince counts events for (userID, category) created at or after since.
func (s *GormEventStore) CountSince(ctx context.Context, userID, category string, since time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("rate limit store: not initialized")
	}
	var count int64
	if errCount := s.db.WithContext(ctx).
		Model(&models.RateLimitEvent{}).
		Where("user_id = ? AND category = ? AND created_at >= ?", userID, category, since).
		Count(&count).Error; errCount != nil {
		return 0, fmt.Errorf("rate limit store: count: %w", errCount)
	}
	return count, nil
}

// OldestSince returns the oldest event timestamp inside the window.
func (s *GormEventStore) OldestSince(ctx context.Context, userID, category string, since time.Time) (time.Time, bool, error) {
	if s == nil || s.db == nil {
		return time.Time{}, false, fmt.Errorf("rate limit store: not initialized")
	}

	// row holds the oldest timestamp lookup result.
	var row struct {
		CreatedAt time.Time
	}
	errTake := s.db.WithContext(ctx).
		Model(&models.RateLimitEvent{}).
		Select("created_at").
		Where("user_id = ? AND category = ? AND created_at >= ?", userID, category, since).
		Order("created_at ASC").
		Take(&row).Error
	if errTake != nil {
		if errTake == gorm.ErrRecordNotFound {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("rate limit store: oldest: %w", errTake)
	}
	return row.CreatedAt, true, nil
}

// Insert appends one admission event.
func (s *GormEventStore) Insert(ctx context.Context, userID, category string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("rate limit store: not initialized")
	}
	event := models.RateLimitEvent{
		UserID:    userID,
		Category:  category,
		CreatedAt: time.Now().UTC(),
	}
	if errCreate := s.db.WithContext(ctx).Create(&event).Error; errCreate != nil {
		return fmt.Errorf("rate limit store: insert: %w", errCreate)
	}
	return nil
}

var _ EventStore = (*GormEventStore)(nil)
