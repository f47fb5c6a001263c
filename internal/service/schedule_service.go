package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ustozhub/ustozhub-api/internal/dto"
	"github.com/ustozhub/ustozhub-api/internal/models"
	appErrors "github.com/ustozhub/ustozhub-api/pkg/errors"
	"github.com/ustozhub/ustozhub-api/pkg/export"
	"github.com/ustozhub/ustozhub-api/pkg/timeutil"
)

type scheduleBookingReader interface {
	ListBlockingInRange(ctx context.Context, teacherID string, from, to time.Time) ([]models.Booking, error)
}

// ScheduleService assembles a teacher's per-day calendar view. Unlike the
// slot generator it does no carving and applies no notice or horizon
// filtering; it simply shows what is on the books.
type ScheduleService struct {
	teachers availabilityTeacherReader
	rules    slotRuleReader
	bookings scheduleBookingReader
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewScheduleService wires schedule dependencies.
func NewScheduleService(
	teachers availabilityTeacherReader,
	rules slotRuleReader,
	bookings scheduleBookingReader,
	pdf *export.PDFExporter,
	logger *zap.Logger,
) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		teachers: teachers,
		rules:    rules,
		bookings: bookings,
		pdf:      pdf,
		logger:   logger,
	}
}

// GetRange buckets the teacher's rules and bookings per calendar day over
// an inclusive civil date range.
func (s *ScheduleService) GetRange(ctx context.Context, teacherID string, startDate, endDate time.Time) (*dto.ScheduleResponse, error) {
	if startDate.IsZero() || endDate.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startDate and endDate are required")
	}
	if endDate.Before(startDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must not precede startDate")
	}

	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	loc, err := time.LoadLocation(teacher.Timezone)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "invalid teacher timezone")
	}

	rules, err := s.rules.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability rules")
	}
	recurring, oneOff := bucketRules(rules)

	firstDay := timeutil.Clock{}.At(startDate, loc)
	lastDay := timeutil.Clock{}.At(endDate, loc)

	bookings, err := s.bookings.ListBlockingInRange(ctx, teacherID, firstDay, lastDay.AddDate(0, 0, 1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}

	response := &dto.ScheduleResponse{
		TeacherID: teacherID,
		Timezone:  teacher.Timezone,
		Days:      []dto.DaySchedule{},
	}

	for day := firstDay; !day.After(lastDay); day = day.AddDate(0, 0, 1) {
		entry := dto.DaySchedule{
			Date:     day,
			Rules:    []models.AvailabilityRule{},
			Bookings: []models.Booking{},
		}
		entry.Rules = append(entry.Rules, selectDayRules(day, recurring, oneOff)...)
		for _, booking := range bookings {
			if timeutil.SameDate(booking.StartAt, day, loc) {
				entry.Bookings = append(entry.Bookings, booking)
			}
		}
		response.Days = append(response.Days, entry)
	}

	return response, nil
}

// ExportPDF renders the range as a printable schedule document.
func (s *ScheduleService) ExportPDF(ctx context.Context, teacherID string, startDate, endDate time.Time) ([]byte, error) {
	if s.pdf == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "pdf exporter unavailable")
	}

	schedule, err := s.GetRange(ctx, teacherID, startDate, endDate)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"Date", "Open Hours", "Bookings"},
	}
	for _, day := range schedule.Days {
		var hours string
		for _, rule := range day.Rules {
			if !rule.IsOpen {
				continue
			}
			if hours != "" {
				hours += ", "
			}
			hours += rule.StartTime + "-" + rule.EndTime
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":       day.Date.Format("Mon 2006-01-02"),
			"Open Hours": hours,
			"Bookings":   strconv.Itoa(len(day.Bookings)),
		})
	}

	title := fmt.Sprintf("Schedule %s - %s", startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	payload, err := s.pdf.Render(dataset, title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule pdf")
	}
	return payload, nil
}
