package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/TrashMob-eco/trashmob-api/internal/models"
	appErrors "github.com/TrashMob-eco/trashmob-api/pkg/errors"
)

type eventRepository interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error)
	Create(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event) error
}

// CreateEventRequest is the payload for creating a cleanup event.
type CreateEventRequest struct {
	Name            string    `json:"name" validate:"required,min=3,max=128"`
	Description     string    `json:"description" validate:"required"`
	EventDate       time.Time `json:"event_date" validate:"required"`
	DurationHours   int       `json:"duration_hours" validate:"required,min=1,max=24"`
	StreetAddress   *string   `json:"street_address"`
	City            string    `json:"city" validate:"required"`
	Region          string    `json:"region" validate:"required"`
	PostalCode      *string   `json:"postal_code"`
	Latitude        *float64  `json:"latitude" validate:"omitempty,latitude"`
	Longitude       *float64  `json:"longitude" validate:"omitempty,longitude"`
	MaxParticipants int       `json:"max_participants" validate:"required,min=1"`
}

// UpdateEventRequest mirrors the create payload for edits.
type UpdateEventRequest = CreateEventRequest

// EventService orchestrates the cleanup event lifecycle.
type EventService struct {
	repo      eventRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEventService constructs the service.
func NewEventService(repo eventRepository, validate *validator.Validate, logger *zap.Logger) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{repo: repo, validator: validate, logger: logger}
}

// Get returns a single event.
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

// List returns events with pagination.
func (s *EventService) List(ctx context.Context, filter models.EventFilter) ([]models.Event, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	events, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return events, pagination, nil
}

// Create registers a new event owned by the caller.
func (s *EventService) Create(ctx context.Context, req CreateEventRequest, creatorID string) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}

	event := &models.Event{
		Name:            req.Name,
		Description:     req.Description,
		EventDate:       req.EventDate.UTC(),
		DurationHours:   req.DurationHours,
		Status:          models.EventStatusActive,
		StreetAddress:   req.StreetAddress,
		City:            req.City,
		Region:          req.Region,
		PostalCode:      req.PostalCode,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		MaxParticipants: req.MaxParticipants,
		CreatedBy:       creatorID,
		LastUpdatedBy:   creatorID,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	return event, nil
}

// Update edits an event. Canceled and completed events are immutable.
func (s *EventService) Update(ctx context.Context, id string, req UpdateEventRequest, editorID string) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}

	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.Status == models.EventStatusCanceled || event.Status == models.EventStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "canceled or completed events cannot be edited")
	}

	event.Name = req.Name
	event.Description = req.Description
	event.EventDate = req.EventDate.UTC()
	event.DurationHours = req.DurationHours
	event.StreetAddress = req.StreetAddress
	event.City = req.City
	event.Region = req.Region
	event.PostalCode = req.PostalCode
	event.Latitude = req.Latitude
	event.Longitude = req.Longitude
	event.MaxParticipants = req.MaxParticipants
	event.LastUpdatedBy = editorID
	if err := s.repo.Update(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}
	return event, nil
}

// Cancel marks an event canceled with a reason.
func (s *EventService) Cancel(ctx context.Context, id, reason, editorID string) (*models.Event, error) {
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cancellation reason is required")
	}

	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.Status == models.EventStatusCanceled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "event is already canceled")
	}
	if event.Status == models.EventStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "completed events cannot be canceled")
	}

	event.Status = models.EventStatusCanceled
	event.CancellationReason = &reason
	event.LastUpdatedBy = editorID
	if err := s.repo.Update(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel event")
	}
	return event, nil
}

// Complete marks a past event completed, opening it for metrics review UX.
func (s *EventService) Complete(ctx context.Context, id, editorID string) (*models.Event, error) {
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.Status == models.EventStatusCanceled {
		return nil, appErrors.ErrEventCanceled
	}
	if event.Status == models.EventStatusCompleted {
		return event, nil
	}

	event.Status = models.EventStatusCompleted
	event.LastUpdatedBy = editorID
	if err := s.repo.Update(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete event")
	}
	return event, nil
}
