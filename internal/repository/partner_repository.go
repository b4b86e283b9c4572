package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/TrashMob-eco/trashmob-api/internal/models"
)

const partnerColumns = `id, name, contact_email, city, region, active, created_by, created_at, last_updated_by, updated_at`

const partnerRequestColumns = `id, event_id, partner_id, service_type, status, notes, decline_reason,
responded_by, responded_at, created_by, created_at, last_updated_by, updated_at`

// PartnerRepository manages partner organizations and their service requests.
type PartnerRepository struct {
	db *sqlx.DB
}

// NewPartnerRepository constructs the repository.
func NewPartnerRepository(db *sqlx.DB) *PartnerRepository {
	return &PartnerRepository{db: db}
}

// FindByID loads a partner by id.
func (r *PartnerRepository) FindByID(ctx context.Context, id string) (*models.Partner, error) {
	query := fmt.Sprintf("SELECT %s FROM partners WHERE id = $1 LIMIT 1", partnerColumns)
	var partner models.Partner
	if err := r.db.GetContext(ctx, &partner, query, id); err != nil {
		return nil, err
	}
	return &partner, nil
}

// ListActive returns all active partners ordered by name.
func (r *PartnerRepository) ListActive(ctx context.Context) ([]models.Partner, error) {
	query := fmt.Sprintf("SELECT %s FROM partners WHERE active = true ORDER BY name ASC", partnerColumns)
	var partners []models.Partner
	if err := r.db.SelectContext(ctx, &partners, query); err != nil {
		return nil, fmt.Errorf("list partners: %w", err)
	}
	return partners, nil
}

// Create inserts a new partner.
func (r *PartnerRepository) Create(ctx context.Context, partner *models.Partner) error {
	if partner.ID == "" {
		partner.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if partner.CreatedAt.IsZero() {
		partner.CreatedAt = now
	}
	partner.UpdatedAt = now
	query := `INSERT INTO partners (id, name, contact_email, city, region, active, created_by, created_at, last_updated_by, updated_at)
VALUES (:id, :name, :contact_email, :city, :region, :active, :created_by, :created_at, :last_updated_by, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, partner); err != nil {
		return fmt.Errorf("create partner: %w", err)
	}
	return nil
}

// Update modifies an existing partner.
func (r *PartnerRepository) Update(ctx context.Context, partner *models.Partner) error {
	partner.UpdatedAt = time.Now().UTC()
	query := `UPDATE partners SET name = :name, contact_email = :contact_email, city = :city, region = :region,
active = :active, last_updated_by = :last_updated_by, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, partner); err != nil {
		return fmt.Errorf("update partner: %w", err)
	}
	return nil
}

// FindRequestByID loads a service request by id.
func (r *PartnerRepository) FindRequestByID(ctx context.Context, id string) (*models.PartnerServiceRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM partner_service_requests WHERE id = $1 LIMIT 1", partnerRequestColumns)
	var request models.PartnerServiceRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// ListRequestsByEvent returns all service requests for an event, newest first.
func (r *PartnerRepository) ListRequestsByEvent(ctx context.Context, eventID string) ([]models.PartnerServiceRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM partner_service_requests WHERE event_id = $1 ORDER BY created_at DESC", partnerRequestColumns)
	var requests []models.PartnerServiceRequest
	if err := r.db.SelectContext(ctx, &requests, query, eventID); err != nil {
		return nil, fmt.Errorf("list requests by event: %w", err)
	}
	return requests, nil
}

// ListRequestsByPartner returns all service requests directed at a partner.
func (r *PartnerRepository) ListRequestsByPartner(ctx context.Context, partnerID string) ([]models.PartnerServiceRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM partner_service_requests WHERE partner_id = $1 ORDER BY created_at DESC", partnerRequestColumns)
	var requests []models.PartnerServiceRequest
	if err := r.db.SelectContext(ctx, &requests, query, partnerID); err != nil {
		return nil, fmt.Errorf("list requests by partner: %w", err)
	}
	return requests, nil
}

// CreateRequest inserts a new service request.
func (r *PartnerRepository) CreateRequest(ctx context.Context, request *models.PartnerServiceRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	request.UpdatedAt = now
	query := `INSERT INTO partner_service_requests (id, event_id, partner_id, service_type, status, notes, decline_reason,
responded_by, responded_at, created_by, created_at, last_updated_by, updated_at)
VALUES (:id, :event_id, :partner_id, :service_type, :status, :notes, :decline_reason,
:responded_by, :responded_at, :created_by, :created_at, :last_updated_by, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create service request: %w", err)
	}
	return nil
}

// UpdateRequest persists a status transition on a service request.
func (r *PartnerRepository) UpdateRequest(ctx context.Context, request *models.PartnerServiceRequest) error {
	request.UpdatedAt = time.Now().UTC()
	query := `UPDATE partner_service_requests SET service_type = :service_type, status = :status, notes = :notes,
decline_reason = :decline_reason, responded_by = :responded_by, responded_at = :responded_at,
last_updated_by = :last_updated_by, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("update service request: %w", err)
	}
	return nil
}
