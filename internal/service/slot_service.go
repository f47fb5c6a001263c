package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ustozhub/ustozhub-api/internal/dto"
	"github.com/ustozhub/ustozhub-api/internal/models"
	"github.com/ustozhub/ustozhub-api/pkg/config"
	appErrors "github.com/ustozhub/ustozhub-api/pkg/errors"
	"github.com/ustozhub/ustozhub-api/pkg/timeutil"
)

type slotTeacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type slotRuleReader interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.AvailabilityRule, error)
}

type slotBookingReader interface {
	ListBlockingInRange(ctx context.Context, teacherID string, from, to time.Time) ([]models.Booking, error)
}

type slotOfferingReader interface {
	FindByID(ctx context.Context, id string) (*models.SubjectOffering, error)
}

type slotCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// SlotService derives bookable slots from availability rules, booking
// policy and existing bookings. Slots are never persisted.
type SlotService struct {
	teachers  slotTeacherReader
	rules     slotRuleReader
	bookings  slotBookingReader
	offerings slotOfferingReader
	cache     slotCache
	cfg       config.BookingConfig
	logger    *zap.Logger
}

// NewSlotService wires slot generation dependencies.
func NewSlotService(
	teachers slotTeacherReader,
	rules slotRuleReader,
	bookings slotBookingReader,
	offerings slotOfferingReader,
	cache slotCache,
	cfg config.BookingConfig,
	logger *zap.Logger,
) *SlotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlotStepMinutes <= 0 {
		cfg.SlotStepMinutes = 30
	}
	if len(cfg.AllowedDurations) == 0 {
		cfg.AllowedDurations = []int{30, 60, 90, 120}
	}
	return &SlotService{
		teachers:  teachers,
		rules:     rules,
		bookings:  bookings,
		offerings: offerings,
		cache:     cache,
		cfg:       cfg,
		logger:    logger,
	}
}

// Generate computes the open slots for a teacher over an inclusive civil
// date range. query.Now anchors the notice and advance-horizon checks, so
// the result is a pure function of the stored state and the query.
func (s *SlotService) Generate(ctx context.Context, query dto.SlotQuery) (*dto.SlotsResponse, error) {
	if err := s.validateQuery(query); err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("slots:%s:%s:%s:%d:%s",
		query.TeacherID,
		query.StartDate.Format("2006-01-02"),
		query.EndDate.Format("2006-01-02"),
		query.Duration,
		query.SubjectOfferingID,
	)
	useCache := s.cache != nil && query.Now.IsZero()
	if useCache {
		var cached dto.SlotsResponse
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			cached.Cached = true
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("slot cache read failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}

	teacher, err := s.loadBookableTeacher(ctx, query.TeacherID)
	if err != nil {
		return nil, err
	}

	if query.SubjectOfferingID != "" && s.offerings != nil {
		offering, err := s.offerings.FindByID(ctx, query.SubjectOfferingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "subject offering not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject offering")
		}
		if offering.TeacherID != teacher.ID || !offering.Active {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject offering not found")
		}
	}

	loc, err := time.LoadLocation(teacher.Timezone)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "invalid teacher timezone")
	}

	now := query.Now
	if now.IsZero() {
		now = time.Now()
	}

	// Civil dates anchor by their calendar components, not by instant, so
	// a date parsed in UTC stays the same date in the teacher's zone.
	firstDay := timeutil.Clock{}.At(query.StartDate, loc)
	lastDay := timeutil.Clock{}.At(query.EndDate, loc)
	horizon := timeutil.StartOfDay(now, loc).AddDate(0, 0, teacher.MaxAdvanceDays)
	if horizon.Before(lastDay) {
		lastDay = horizon
	}

	response := &dto.SlotsResponse{
		Slots:    []dto.Slot{},
		Timezone: teacher.Timezone,
		Duration: query.Duration,
		Teacher: dto.SlotTeacherInfo{
			ID:             teacher.ID,
			MinNoticeHours: teacher.MinNoticeHours,
			MaxAdvanceDays: teacher.MaxAdvanceDays,
			Timezone:       teacher.Timezone,
		},
	}
	if lastDay.Before(firstDay) {
		return response, nil
	}

	rules, err := s.rules.ListByTeacher(ctx, query.TeacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability rules")
	}
	recurring, oneOff := bucketRules(rules)

	blocking, err := s.bookings.ListBlockingInRange(ctx, query.TeacherID, firstDay, lastDay.AddDate(0, 0, 1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings")
	}

	earliestStart := now.Add(time.Duration(teacher.MinNoticeHours) * time.Hour)

	for day := firstDay; !day.After(lastDay); day = day.AddDate(0, 0, 1) {
		dayRules := selectDayRules(day, recurring, oneOff)
		for _, rule := range dayRules {
			if !rule.IsOpen {
				continue
			}
			slots, err := s.carveRule(rule, day, loc, query.Duration)
			if err != nil {
				s.logger.Warn("skipping malformed availability rule",
					zap.String("rule_id", rule.ID), zap.Error(err))
				continue
			}
			for _, slot := range slots {
				if slot.StartAt.Before(earliestStart) {
					continue
				}
				if overlapsAnyBooking(slot, blocking) {
					continue
				}
				response.Slots = append(response.Slots, slot)
			}
		}
	}

	if useCache {
		if err := s.cache.Set(ctx, cacheKey, response, s.cfg.SlotCacheTTL); err != nil {
			s.logger.Warn("slot cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return response, nil
}

// InvalidateTeacher drops every cached slot response for a teacher. It is
// called after any availability or booking write.
func (s *SlotService) InvalidateTeacher(ctx context.Context, teacherID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, fmt.Sprintf("slots:%s:*", teacherID)); err != nil {
		s.logger.Warn("slot cache invalidation failed", zap.String("teacher_id", teacherID), zap.Error(err))
	}
}

func (s *SlotService) validateQuery(query dto.SlotQuery) error {
	if query.TeacherID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "teacher id is required")
	}
	if query.StartDate.IsZero() || query.EndDate.IsZero() {
		return appErrors.Clone(appErrors.ErrValidation, "startDate and endDate are required")
	}
	if query.EndDate.Before(query.StartDate) {
		return appErrors.Clone(appErrors.ErrValidation, "endDate must not precede startDate")
	}
	if s.cfg.MaxRangeDays > 0 && timeutil.DaysBetween(query.StartDate, query.EndDate, time.UTC) > s.cfg.MaxRangeDays {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("date range must not exceed %d days", s.cfg.MaxRangeDays))
	}
	if !s.durationAllowed(query.Duration) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duration %d is not offered", query.Duration))
	}
	return nil
}

func (s *SlotService) durationAllowed(duration int) bool {
	for _, allowed := range s.cfg.AllowedDurations {
		if duration == allowed {
			return true
		}
	}
	return false
}

func (s *SlotService) loadBookableTeacher(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.teachers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if !teacher.Active || teacher.VerificationStatus != models.VerificationApproved {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	return teacher, nil
}

// carveRule cuts duration-minute slots out of an open rule on the given
// day, stepping by the configured granularity. The last slot must end at
// or before the rule's end time.
func (s *SlotService) carveRule(rule models.AvailabilityRule, day time.Time, loc *time.Location, duration int) ([]dto.Slot, error) {
	start, err := timeutil.ParseClock(rule.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := timeutil.ParseClock(rule.EndTime)
	if err != nil {
		return nil, err
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("rule %s has empty interval %s-%s", rule.ID, rule.StartTime, rule.EndTime)
	}

	var slots []dto.Slot
	for m := start.Minutes(); m+duration <= end.Minutes(); m += s.cfg.SlotStepMinutes {
		slotStart := timeutil.Clock{Hour: m / 60, Minute: m % 60}.At(day, loc)
		slotEnd := timeutil.Clock{Hour: (m + duration) / 60, Minute: (m + duration) % 60}.At(day, loc)
		slots = append(slots, dto.Slot{
			StartAt:   slotStart,
			EndAt:     slotEnd,
			Duration:  duration,
			Available: true,
		})
	}
	return slots, nil
}

// bucketRules splits rules into recurring-by-weekday and one-off-by-date
// lookups, each sorted by start time.
func bucketRules(rules []models.AvailabilityRule) (map[int][]models.AvailabilityRule, map[string][]models.AvailabilityRule) {
	recurring := make(map[int][]models.AvailabilityRule)
	oneOff := make(map[string][]models.AvailabilityRule)
	for _, rule := range rules {
		switch rule.Type {
		case models.RuleRecurring:
			if rule.Weekday != nil {
				recurring[*rule.Weekday] = append(recurring[*rule.Weekday], rule)
			}
		case models.RuleOneOff:
			if rule.Date != nil {
				key := rule.Date.Format("2006-01-02")
				oneOff[key] = append(oneOff[key], rule)
			}
		}
	}
	for weekday := range recurring {
		sortRulesByStart(recurring[weekday])
	}
	for key := range oneOff {
		sortRulesByStart(oneOff[key])
	}
	return recurring, oneOff
}

// selectDayRules picks the rules in force on a calendar day. Any one-off
// dated that day fully replaces the weekday's recurring rules, so a single
// closed one-off blacks out the entire day.
func selectDayRules(day time.Time, recurring map[int][]models.AvailabilityRule, oneOff map[string][]models.AvailabilityRule) []models.AvailabilityRule {
	if rules, ok := oneOff[day.Format("2006-01-02")]; ok && len(rules) > 0 {
		return rules
	}
	return recurring[int(day.Weekday())]
}

func sortRulesByStart(rules []models.AvailabilityRule) {
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].StartTime < rules[j].StartTime
	})
}

func overlapsAnyBooking(slot dto.Slot, bookings []models.Booking) bool {
	for _, booking := range bookings {
		if !booking.Status.Blocks() {
			continue
		}
		if timeutil.Overlaps(slot.StartAt, slot.EndAt, booking.StartAt, booking.EndAt) {
			return true
		}
	}
	return false
}
