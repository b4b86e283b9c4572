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

type partnerRepository interface {
	FindByID(ctx context.Context, id string) (*models.Partner, error)
	ListActive(ctx context.Context) ([]models.Partner, error)
	Create(ctx context.Context, partner *models.Partner) error
	Update(ctx context.Context, partner *models.Partner) error
	FindRequestByID(ctx context.Context, id string) (*models.PartnerServiceRequest, error)
	ListRequestsByEvent(ctx context.Context, eventID string) ([]models.PartnerServiceRequest, error)
	ListRequestsByPartner(ctx context.Context, partnerID string) ([]models.PartnerServiceRequest, error)
	CreateRequest(ctx context.Context, request *models.PartnerServiceRequest) error
	UpdateRequest(ctx context.Context, request *models.PartnerServiceRequest) error
}

type partnerEventReader interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
}

// PartnerNotifier receives partner request lifecycle events.
type PartnerNotifier interface {
	PartnerRequested(req *models.PartnerServiceRequest)
	PartnerResponded(req *models.PartnerServiceRequest)
}

// CreatePartnerRequest is the payload for registering a partner organization.
type CreatePartnerRequest struct {
	Name         string  `json:"name" validate:"required,min=2,max=128"`
	ContactEmail string  `json:"contact_email" validate:"required,email"`
	City         *string `json:"city"`
	Region       *string `json:"region"`
}

// CreateServiceRequest asks a partner to serve an event.
type CreateServiceRequest struct {
	PartnerID   string  `json:"partner_id" validate:"required"`
	ServiceType string  `json:"service_type" validate:"required,oneof=hauling disposal"`
	Notes       *string `json:"notes"`
}

// PartnerService manages partners and their per-event service requests.
type PartnerService struct {
	repo      partnerRepository
	events    partnerEventReader
	notifier  PartnerNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPartnerService constructs the service. Notifier may be nil.
func NewPartnerService(repo partnerRepository, events partnerEventReader, notifier PartnerNotifier, validate *validator.Validate, logger *zap.Logger) *PartnerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PartnerService{repo: repo, events: events, notifier: notifier, validator: validate, logger: logger}
}

// ListPartners returns all active partner organizations.
func (s *PartnerService) ListPartners(ctx context.Context) ([]models.Partner, error) {
	partners, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list partners")
	}
	return partners, nil
}

// CreatePartner registers a partner organization.
func (s *PartnerService) CreatePartner(ctx context.Context, req CreatePartnerRequest, creatorID string) (*models.Partner, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid partner payload")
	}
	partner := &models.Partner{
		Name:          req.Name,
		ContactEmail:  req.ContactEmail,
		City:          req.City,
		Region:        req.Region,
		Active:        true,
		CreatedBy:     creatorID,
		LastUpdatedBy: creatorID,
	}
	if err := s.repo.Create(ctx, partner); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create partner")
	}
	return partner, nil
}

// RequestService creates a hauling/disposal request tying a partner to an event.
func (s *PartnerService) RequestService(ctx context.Context, eventID string, req CreateServiceRequest, requesterID string) (*models.PartnerServiceRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid service request payload")
	}

	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	partner, err := s.repo.FindByID(ctx, req.PartnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "partner not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load partner")
	}
	if !partner.Active {
		return nil, appErrors.Clone(appErrors.ErrConflict, "partner is not active")
	}

	request := &models.PartnerServiceRequest{
		EventID:       eventID,
		PartnerID:     partner.ID,
		ServiceType:   models.PartnerServiceType(req.ServiceType),
		Status:        models.PartnerRequestRequested,
		Notes:         req.Notes,
		CreatedBy:     requesterID,
		LastUpdatedBy: requesterID,
	}
	if err := s.repo.CreateRequest(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create service request")
	}
	if s.notifier != nil {
		s.notifier.PartnerRequested(request)
	}
	return request, nil
}

// ListRequestsByEvent returns an event's service requests.
func (s *PartnerService) ListRequestsByEvent(ctx context.Context, eventID string) ([]models.PartnerServiceRequest, error) {
	requests, err := s.repo.ListRequestsByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list service requests")
	}
	return requests, nil
}

// ListRequestsByPartner returns requests directed at a partner.
func (s *PartnerService) ListRequestsByPartner(ctx context.Context, partnerID string) ([]models.PartnerServiceRequest, error) {
	requests, err := s.repo.ListRequestsByPartner(ctx, partnerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list service requests")
	}
	return requests, nil
}

// Accept transitions a requested service request to accepted.
func (s *PartnerService) Accept(ctx context.Context, requestID, responderID string) (*models.PartnerServiceRequest, error) {
	return s.respond(ctx, requestID, responderID, models.PartnerRequestAccepted, nil)
}

// Decline transitions a requested service request to declined with a reason.
func (s *PartnerService) Decline(ctx context.Context, requestID, reason, responderID string) (*models.PartnerServiceRequest, error) {
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "decline reason is required")
	}
	return s.respond(ctx, requestID, responderID, models.PartnerRequestDeclined, &reason)
}

// Complete marks an accepted request as completed after the event.
func (s *PartnerService) Complete(ctx context.Context, requestID, responderID string) (*models.PartnerServiceRequest, error) {
	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.PartnerRequestAccepted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only accepted requests can be completed")
	}
	request.Status = models.PartnerRequestCompleted
	request.LastUpdatedBy = responderID
	if err := s.repo.UpdateRequest(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete service request")
	}
	return request, nil
}

func (s *PartnerService) respond(ctx context.Context, requestID, responderID string, status models.PartnerRequestStatus, declineReason *string) (*models.PartnerServiceRequest, error) {
	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.PartnerRequestRequested {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only open requests can be responded to")
	}

	now := time.Now().UTC()
	request.Status = status
	request.DeclineReason = declineReason
	request.RespondedBy = &responderID
	request.RespondedAt = &now
	request.LastUpdatedBy = responderID
	if err := s.repo.UpdateRequest(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update service request")
	}
	if s.notifier != nil {
		s.notifier.PartnerResponded(request)
	}
	return request, nil
}

func (s *PartnerService) loadRequest(ctx context.Context, id string) (*models.PartnerServiceRequest, error) {
	request, err := s.repo.FindRequestByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "service request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load service request")
	}
	return request, nil
}
