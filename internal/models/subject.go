package models

import "time"

// SubjectOffering is a subject a teacher offers, with its own rate.
type SubjectOffering struct {
	ID          string    `db:"id" json:"id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	Subject     string    `db:"subject" json:"subject"`
	Level       *string   `db:"level" json:"level,omitempty"`
	Description *string   `db:"description" json:"description,omitempty"`
	HourlyRate  int64     `db:"hourly_rate" json:"hourly_rate"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
