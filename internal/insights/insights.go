// Package insights ranks students that need teacher attention and exposes
// them as prompt enrichment records.
package insights

import (
	"context"
	"fmt"

	"github.com/lessonloop/gateway/internal/models"
	"gorm.io/gorm"
)

// StudentInsight is one ranked enrichment record for prompt assembly.
type StudentInsight struct {
	Name               string
	PriorityScore      float64
	AttendanceRate     float64
	AverageGrade       float64
	MissingAssignments int
	Concerns           string
	Strengths          string
}

// PriorityLabel buckets the ranking score into a human-readable label.
func (s StudentInsight) PriorityLabel() string {
	switch {
	case s.PriorityScore >= 0.75:
		return "needs attention"
	case s.PriorityScore >= 0.4:
		return "monitor"
	default:
		return "on track"
	}
}

// Source supplies top-priority enrichment records for a teacher.
type Source interface {
	TopPriority(ctx context.Context, teacherID string, limit int) ([]StudentInsight, error)
}

// GormSource reads student summaries maintained by the roster pipeline.
type GormSource struct {
	db *gorm.DB
}

// NewGormSource constructs a GormSource.
func NewGormSource(db *gorm.DB) *GormSource {
	return &GormSource{db: db}
}

// TopPriority returns the highest-priority student records for a teacher.
func (s *GormSource) TopPriority(ctx context.Context, teacherID string, limit int) ([]StudentInsight, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("insights: not initialized")
	}
	if limit <= 0 {
		return nil, nil
	}

	var rows []models.StudentRecord
	if errFind := s.db.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("priority_score DESC, id ASC").
		Limit(limit).
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("insights: query: %w", errFind)
	}

	out := make([]StudentInsight, 0, len(rows))
	for _, row := range rows {
		out = append(out, StudentInsight{
			Name:               row.Name,
			PriorityScore:      row.PriorityScore,
			AttendanceRate:     row.AttendanceRate,
			AverageGrade:       row.AverageGrade,
			MissingAssignments: row.MissingAssignments,
			Concerns:           row.Concerns,
			Strengths:          row.Strengths,
		})
	}
	return out, nil
}

var _ Source = (*GormSource)(nil)
