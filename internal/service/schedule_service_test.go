package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ustozhub/ustozhub-api/internal/models"
	appErrors "github.com/ustozhub/ustozhub-api/pkg/errors"
	"github.com/ustozhub/ustozhub-api/pkg/export"
)

func newScheduleFixture(rules []models.AvailabilityRule, bookings []models.Booking) *ScheduleService {
	teachers := &mockSlotTeacherReader{items: map[string]*models.Teacher{
		"t1": approvedTeacher("Asia/Tashkent"),
	}}
	return NewScheduleService(
		teachers,
		&mockSlotRuleReader{rules: rules},
		&mockSlotBookingReader{bookings: bookings},
		export.NewPDFExporter(),
		zap.NewNop(),
	)
}

func TestScheduleServiceGetRange(t *testing.T) {
	tz, err := time.LoadLocation("Asia/Tashkent")
	require.NoError(t, err)

	booking := models.Booking{
		ID:      "b1",
		StartAt: time.Date(2025, 6, 2, 9, 0, 0, 0, tz),
		EndAt:   time.Date(2025, 6, 2, 10, 0, 0, 0, tz),
		Status:  models.BookingConfirmed,
	}
	service := newScheduleFixture([]models.AvailabilityRule{mondayRule("09:00", "11:00")}, []models.Booking{booking})

	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC)
	schedule, err := service.GetRange(context.Background(), "t1", start, end)
	require.NoError(t, err)
	require.Len(t, schedule.Days, 3)

	monday := schedule.Days[0]
	assert.Len(t, monday.Rules, 1)
	assert.Len(t, monday.Bookings, 1)
	assert.Equal(t, "b1", monday.Bookings[0].ID)

	// Tuesday and Wednesday carry no recurring rules and no bookings.
	assert.Empty(t, schedule.Days[1].Rules)
	assert.Empty(t, schedule.Days[1].Bookings)
	assert.Empty(t, schedule.Days[2].Bookings)
	assert.Equal(t, "Asia/Tashkent", schedule.Timezone)
}

func TestScheduleServiceGetRangeOneOffOverride(t *testing.T) {
	monday := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	closed := models.AvailabilityRule{
		ID:        "r2",
		TeacherID: "t1",
		Type:      models.RuleOneOff,
		Date:      &monday,
		StartTime: "00:00",
		EndTime:   "23:59",
		IsOpen:    false,
	}
	service := newScheduleFixture([]models.AvailabilityRule{mondayRule("09:00", "11:00"), closed}, nil)

	schedule, err := service.GetRange(context.Background(), "t1", monday, monday)
	require.NoError(t, err)
	require.Len(t, schedule.Days, 1)
	require.Len(t, schedule.Days[0].Rules, 1)
	assert.False(t, schedule.Days[0].Rules[0].IsOpen)
}

func TestScheduleServiceGetRangeInvertedDates(t *testing.T) {
	service := newScheduleFixture(nil, nil)

	_, err := service.GetRange(context.Background(), "t1",
		time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceExportPDF(t *testing.T) {
	service := newScheduleFixture([]models.AvailabilityRule{mondayRule("09:00", "11:00")}, nil)

	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	payload, err := service.ExportPDF(context.Background(), "t1", start, start)
	require.NoError(t, err)
	assert.NotEmpty(t, payload)
	assert.Equal(t, "%PDF", string(payload[:4]))
}
