package models

import "time"

// VerificationStatus tracks the moderation state of a teacher profile.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationApproved VerificationStatus = "APPROVED"
	VerificationRejected VerificationStatus = "REJECTED"
)

// Teacher represents a tutor profile offering lessons on the platform.
// StartTime/EndTime strings on availability rules are interpreted in the
// teacher's Timezone.
type Teacher struct {
	ID                 string             `db:"id" json:"id"`
	UserID             string             `db:"user_id" json:"user_id"`
	Email              string             `db:"email" json:"email"`
	FullName           string             `db:"full_name" json:"full_name"`
	Bio                *string            `db:"bio" json:"bio,omitempty"`
	Phone              *string            `db:"phone" json:"phone,omitempty"`
	Timezone           string             `db:"timezone" json:"timezone"`
	MinNoticeHours     int                `db:"min_notice_hours" json:"min_notice_hours"`
	MaxAdvanceDays     int                `db:"max_advance_days" json:"max_advance_days"`
	HourlyRate         int64              `db:"hourly_rate" json:"hourly_rate"`
	Currency           string             `db:"currency" json:"currency"`
	VerificationStatus VerificationStatus `db:"verification_status" json:"verification_status"`
	Active             bool               `db:"active" json:"active"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updated_at"`
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search    string
	Active    *bool
	Verified  *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
