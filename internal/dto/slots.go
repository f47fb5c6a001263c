package dto

import "time"

// Slot is a derived bookable interval; it is never persisted.
type Slot struct {
	StartAt   time.Time `json:"startAt"`
	EndAt     time.Time `json:"endAt"`
	Duration  int       `json:"duration"`
	Available bool      `json:"available"`
}

// SlotQuery carries the resolved inputs for slot generation. Now is
// injected by the caller so generation stays a pure function of state.
type SlotQuery struct {
	TeacherID         string
	StartDate         time.Time
	EndDate           time.Time
	Duration          int
	SubjectOfferingID string
	Now               time.Time
}

// SlotTeacherInfo echoes the booking policy applied during generation.
type SlotTeacherInfo struct {
	ID             string `json:"id"`
	MinNoticeHours int    `json:"min_notice_hours"`
	MaxAdvanceDays int    `json:"max_advance_days"`
	Timezone       string `json:"timezone"`
}

// SlotsResponse is the payload for the slots endpoint. Cached reports
// whether the result was served from the slot cache; it never leaves
// the process.
type SlotsResponse struct {
	Slots    []Slot          `json:"slots"`
	Timezone string          `json:"timezone"`
	Duration int             `json:"duration"`
	Teacher  SlotTeacherInfo `json:"teacher"`
	Cached   bool            `json:"-"`
}
