package dto

import (
	"time"

	"github.com/ustozhub/ustozhub-api/internal/models"
)

// DaySchedule groups the rules and bookings that touch one calendar day.
type DaySchedule struct {
	Date     time.Time                 `json:"date"`
	Rules    []models.AvailabilityRule `json:"rules"`
	Bookings []models.Booking          `json:"bookings"`
}

// ScheduleResponse is the payload for the per-day schedule view.
type ScheduleResponse struct {
	TeacherID string        `json:"teacher_id"`
	Timezone  string        `json:"timezone"`
	Days      []DaySchedule `json:"days"`
}
