package models

import "time"

// BookingStatus enumerates the booking lifecycle.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCompleted BookingStatus = "COMPLETED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// Blocks reports whether a booking in this status occupies its time window.
func (s BookingStatus) Blocks() bool {
	return s == BookingPending || s == BookingConfirmed
}

// Booking represents a reserved lesson. StartAt/EndAt are absolute UTC
// instants, unlike availability rules which are wall-clock.
type Booking struct {
	ID                string        `db:"id" json:"id"`
	TeacherID         string        `db:"teacher_id" json:"teacher_id"`
	StudentID         string        `db:"student_id" json:"student_id"`
	SubjectOfferingID *string       `db:"subject_offering_id" json:"subject_offering_id,omitempty"`
	StartAt           time.Time     `db:"start_at" json:"start_at"`
	EndAt             time.Time     `db:"end_at" json:"end_at"`
	Status            BookingStatus `db:"status" json:"status"`
	Price             int64         `db:"price" json:"price"`
	Currency          string        `db:"currency" json:"currency"`
	Note              *string       `db:"note" json:"note,omitempty"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`
}

// BookingFilter captures filtering options for listing bookings.
type BookingFilter struct {
	TeacherID string
	StudentID string
	Status    *BookingStatus
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}
