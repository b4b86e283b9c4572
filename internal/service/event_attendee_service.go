package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/TrashMob-eco/trashmob-api/internal/models"
	appErrors "github.com/TrashMob-eco/trashmob-api/pkg/errors"
)

type attendeeRepository interface {
	FindByEventAndUser(ctx context.Context, eventID, userID string) (*models.EventAttendee, error)
	IsAttending(ctx context.Context, eventID, userID string) (bool, error)
	CountActive(ctx context.Context, eventID string) (int, error)
	ListByEvent(ctx context.Context, eventID string) ([]models.EventAttendeeRecord, error)
	ListByUser(ctx context.Context, userID string) ([]models.AttendeeEventRecord, error)
	Create(ctx context.Context, attendee *models.EventAttendee) error
	Update(ctx context.Context, attendee *models.EventAttendee) error
}

type attendeeEventStore interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
	Update(ctx context.Context, event *models.Event) error
}

// EventAttendeeService manages event registrations and capacity.
type EventAttendeeService struct {
	repo   attendeeRepository
	events attendeeEventStore
	logger *zap.Logger
}

// NewEventAttendeeService constructs the service.
func NewEventAttendeeService(repo attendeeRepository, events attendeeEventStore, logger *zap.Logger) *EventAttendeeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventAttendeeService{repo: repo, events: events, logger: logger}
}

// Register signs a user up for an active event, reactivating a previously
// canceled registration when one exists. Filling the last slot flips the
// event to full.
func (s *EventAttendeeService) Register(ctx context.Context, eventID, userID string) (*models.EventAttendee, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	switch event.Status {
	case models.EventStatusCanceled:
		return nil, appErrors.ErrEventCanceled
	case models.EventStatusFull:
		return nil, appErrors.ErrEventFull
	case models.EventStatusCompleted:
		return nil, appErrors.Clone(appErrors.ErrConflict, "completed events are closed for registration")
	}

	active, err := s.repo.CountActive(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendees")
	}
	if active >= event.MaxParticipants {
		return nil, appErrors.ErrEventFull
	}

	now := time.Now().UTC()
	existing, err := s.repo.FindByEventAndUser(ctx, eventID, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}

	var attendee *models.EventAttendee
	if existing != nil {
		if existing.Active() {
			return nil, appErrors.Clone(appErrors.ErrConflict, "user is already registered for this event")
		}
		existing.CanceledAt = nil
		existing.SignUpDate = now
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reactivate registration")
		}
		attendee = existing
	} else {
		attendee = &models.EventAttendee{EventID: eventID, UserID: userID, SignUpDate: now}
		if err := s.repo.Create(ctx, attendee); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create registration")
		}
	}

	if active+1 >= event.MaxParticipants && event.Status == models.EventStatusActive {
		event.Status = models.EventStatusFull
		event.LastUpdatedBy = userID
		if err := s.events.Update(ctx, event); err != nil {
			s.logger.Warn("failed to mark event full", zap.String("event_id", eventID), zap.Error(err))
		}
	}
	return attendee, nil
}

// Unregister soft-cancels a registration, reopening a full event.
func (s *EventAttendeeService) Unregister(ctx context.Context, eventID, userID string) error {
	attendee, err := s.repo.FindByEventAndUser(ctx, eventID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	if !attendee.Active() {
		return appErrors.Clone(appErrors.ErrConflict, "registration is already canceled")
	}

	now := time.Now().UTC()
	attendee.CanceledAt = &now
	if err := s.repo.Update(ctx, attendee); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel registration")
	}

	event, err := s.events.FindByID(ctx, eventID)
	if err == nil && event.Status == models.EventStatusFull {
		event.Status = models.EventStatusActive
		event.LastUpdatedBy = userID
		if err := s.events.Update(ctx, event); err != nil {
			s.logger.Warn("failed to reopen event", zap.String("event_id", eventID), zap.Error(err))
		}
	}
	return nil
}

// IsAttending reports whether the user holds an active registration.
func (s *EventAttendeeService) IsAttending(ctx context.Context, eventID, userID string) (bool, error) {
	attending, err := s.repo.IsAttending(ctx, eventID, userID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check attendance")
	}
	return attending, nil
}

// ListByEvent returns active attendees with user metadata.
func (s *EventAttendeeService) ListByEvent(ctx context.Context, eventID string) ([]models.EventAttendeeRecord, error) {
	records, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendees")
	}
	return records, nil
}

// ListByUser returns the events a user is registered for.
func (s *EventAttendeeService) ListByUser(ctx context.Context, userID string) ([]models.AttendeeEventRecord, error) {
	records, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registrations")
	}
	return records, nil
}
