package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ustozhub/ustozhub-api/internal/models"
	"github.com/ustozhub/ustozhub-api/pkg/config"
	"github.com/ustozhub/ustozhub-api/pkg/jobs"
	"github.com/ustozhub/ustozhub-api/pkg/notify"
)

type notificationTeacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// NotificationService consumes booking lifecycle jobs and delivers
// notifications through the configured notifier.
type NotificationService struct {
	notifier notify.Notifier
	teachers notificationTeacherReader
	enabled  bool
	logger   *zap.Logger
}

// NewNotificationService wires notification delivery dependencies.
func NewNotificationService(notifier notify.Notifier, teachers notificationTeacherReader, cfg config.NotificationsConfig, logger *zap.Logger) *NotificationService {
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{notifier: notifier, teachers: teachers, enabled: cfg.Enabled, logger: logger}
}

// HandleJob is the queue handler for booking notification jobs.
func (s *NotificationService) HandleJob(ctx context.Context, job jobs.Job) error {
	if !s.enabled {
		return nil
	}

	booking, ok := job.Payload.(*models.Booking)
	if !ok {
		s.logger.Warn("dropping notification job with unexpected payload", zap.String("type", job.Type))
		return nil
	}

	var subject string
	switch job.Type {
	case JobBookingCreated:
		subject = "New booking request"
	case JobBookingCancelled:
		subject = "Booking cancelled"
	default:
		s.logger.Warn("dropping notification job with unknown type", zap.String("type", job.Type))
		return nil
	}

	teacher, err := s.teachers.FindByID(ctx, booking.TeacherID)
	if err != nil {
		return fmt.Errorf("load teacher for notification: %w", err)
	}

	msg := notify.Message{
		To:      teacher.Email,
		Subject: subject,
		Body: fmt.Sprintf("Lesson %s from %s to %s",
			booking.ID,
			booking.StartAt.Format("2006-01-02 15:04"),
			booking.EndAt.Format("15:04"),
		),
	}
	if err := s.notifier.SendEmail(ctx, msg); err != nil {
		return err
	}

	// Cancellations are time sensitive, so they also go out by SMS when
	// the teacher has a phone on file.
	if job.Type == JobBookingCancelled && teacher.Phone != nil && *teacher.Phone != "" {
		sms := msg
		sms.To = *teacher.Phone
		if err := s.notifier.SendSMS(ctx, sms); err != nil {
			s.logger.Warn("sms delivery failed", zap.String("booking_id", booking.ID), zap.Error(err))
		}
	}
	return nil
}
