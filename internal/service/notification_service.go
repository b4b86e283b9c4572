package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TrashMob-eco/trashmob-api/internal/models"
	"github.com/TrashMob-eco/trashmob-api/pkg/jobs"
)

// Notification job types.
const (
	NotificationMetricsSubmitted = "metrics.submitted"
	NotificationMetricsReviewed  = "metrics.reviewed"
	NotificationPartnerRequested = "partner.requested"
	NotificationPartnerResponded = "partner.responded"
)

// Notification is the payload dispatched to the configured sender.
type Notification struct {
	Type        string `json:"type"`
	RecipientID string `json:"recipient_id,omitempty"`
	EventID     string `json:"event_id,omitempty"`
	SubjectID   string `json:"subject_id,omitempty"`
	Message     string `json:"message"`
}

// NotificationSender delivers a notification to its recipient.
type NotificationSender interface {
	Send(ctx context.Context, n Notification) error
}

// LogSender is the default sender: it records notifications in the log.
// Email/push delivery plugs in behind the same interface.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender constructs a log-backed sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the notification.
func (s *LogSender) Send(_ context.Context, n Notification) error {
	s.logger.Info("notification",
		zap.String("type", n.Type),
		zap.String("recipient_id", n.RecipientID),
		zap.String("event_id", n.EventID),
		zap.String("subject_id", n.SubjectID),
		zap.String("message", n.Message))
	return nil
}

// NotificationService dispatches workflow notifications through a background
// queue so submission and review paths never block on delivery. It implements
// MetricsNotifier and PartnerNotifier.
type NotificationService struct {
	queue     *jobs.Queue
	sender    NotificationSender
	telemetry *TelemetryService
	logger    *zap.Logger
	enabled   bool
}

// NewNotificationService constructs the service and its queue. Call Start
// before enqueueing and Stop on shutdown.
func NewNotificationService(sender NotificationSender, telemetry *TelemetryService, cfg jobs.QueueConfig, enabled bool, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = NewLogSender(logger)
	}
	s := &NotificationService{
		sender:    sender,
		telemetry: telemetry,
		logger:    logger,
		enabled:   enabled,
	}
	cfg.Logger = logger
	s.queue = jobs.NewQueue("notifications", s.handle, cfg)
	return s
}

// Start begins background dispatch.
func (s *NotificationService) Start(ctx context.Context) {
	if !s.enabled {
		return
	}
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	if !s.enabled {
		return
	}
	s.queue.Stop()
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(Notification)
	if !ok {
		return fmt.Errorf("unexpected payload type %T for job %s", job.Payload, job.ID)
	}
	return s.sender.Send(ctx, n)
}

func (s *NotificationService) enqueue(n Notification) {
	if !s.enabled {
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: n.Type, Payload: n}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue notification",
			zap.String("type", n.Type),
			zap.Error(err))
		return
	}
	s.telemetry.RecordJobEnqueued(n.Type)
}

// MetricsSubmitted notifies the event lead that a submission arrived.
func (s *NotificationService) MetricsSubmitted(m *models.EventAttendeeMetrics) {
	if m == nil {
		return
	}
	s.enqueue(Notification{
		Type:      NotificationMetricsSubmitted,
		EventID:   m.EventID,
		SubjectID: m.ID,
		Message:   "a cleanup report was submitted and is awaiting review",
	})
}

// MetricsReviewed notifies the submitter of the review outcome.
func (s *NotificationService) MetricsReviewed(m *models.EventAttendeeMetrics) {
	if m == nil {
		return
	}
	s.enqueue(Notification{
		Type:        NotificationMetricsReviewed,
		RecipientID: m.UserID,
		EventID:     m.EventID,
		SubjectID:   m.ID,
		Message:     fmt.Sprintf("your cleanup report was %s", m.Status),
	})
}

// PartnerRequested notifies a partner of a new service request.
func (s *NotificationService) PartnerRequested(req *models.PartnerServiceRequest) {
	if req == nil {
		return
	}
	s.enqueue(Notification{
		Type:        NotificationPartnerRequested,
		RecipientID: req.PartnerID,
		EventID:     req.EventID,
		SubjectID:   req.ID,
		Message:     fmt.Sprintf("a %s request was opened for an upcoming event", req.ServiceType),
	})
}

// PartnerResponded notifies the requester of the partner's response.
func (s *NotificationService) PartnerResponded(req *models.PartnerServiceRequest) {
	if req == nil {
		return
	}
	s.enqueue(Notification{
		Type:        NotificationPartnerResponded,
		RecipientID: req.CreatedBy,
		EventID:     req.EventID,
		SubjectID:   req.ID,
		Message:     fmt.Sprintf("a partner %s the service request", req.Status),
	})
}
