package models

import "time"

// RuleType discriminates the two availability rule variants.
type RuleType string

const (
	// RuleRecurring repeats weekly on Weekday.
	RuleRecurring RuleType = "recurring"
	// RuleOneOff applies to exactly one calendar Date. A one-off with
	// IsOpen=false models a blackout for that date.
	RuleOneOff RuleType = "one_off"
)

// AvailabilityRule is an open or closed time-of-day interval owned by a
// teacher. Weekday is set iff Type is recurring (0 = Sunday); Date is set
// iff Type is one_off. StartTime/EndTime are HH:MM wall-clock strings in
// the teacher's timezone, with StartTime < EndTime.
type AvailabilityRule struct {
	ID        string     `db:"id" json:"id"`
	TeacherID string     `db:"teacher_id" json:"teacher_id"`
	Type      RuleType   `db:"rule_type" json:"type"`
	Weekday   *int       `db:"weekday" json:"weekday,omitempty"`
	Date      *time.Time `db:"rule_date" json:"date,omitempty"`
	StartTime string     `db:"start_time" json:"start_time"`
	EndTime   string     `db:"end_time" json:"end_time"`
	IsOpen    bool       `db:"is_open" json:"is_open"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}
