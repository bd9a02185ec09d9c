package models

import "time"

// StudentRecord stores the per-student summary the roster pipeline maintains.
//
// The gateway only reads these rows to enrich assistant prompts; the roster
// CRUD surface that writes them lives in the main application.
type StudentRecord struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TeacherID string `gorm:"type:text;not null;index"` // Owning teacher identifier.
	Name      string `gorm:"type:text;not null"`       // Student display name.

	PriorityScore      float64 `gorm:"not null;default:0"` // Ranking score, higher means more attention needed.
	AttendanceRate     float64 `gorm:"not null;default:0"` // Attendance fraction in [0,1].
	AverageGrade       float64 `gorm:"not null;default:0"` // Mean grade percentage.
	MissingAssignments int     `gorm:"not null;default:0"` // Outstanding assignment count.

	Concerns  string `gorm:"type:text"` // Free-text concern notes.
	Strengths string `gorm:"type:text"` // Free-text strength notes.

	CreatedAt time.Time `gorm:"autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"autoUpdateTime"` // Last update timestamp.
}
