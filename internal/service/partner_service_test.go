package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TrashMob-eco/trashmob-api/internal/models"
	appErrors "github.com/TrashMob-eco/trashmob-api/pkg/errors"
)

type mockPartnerRepo struct {
	partners    map[string]*models.Partner
	requests    map[string]*models.PartnerServiceRequest
	nextPartner int
	nextRequest int
}

func newMockPartnerRepo() *mockPartnerRepo {
	return &mockPartnerRepo{
		partners: make(map[string]*models.Partner),
		requests: make(map[string]*models.PartnerServiceRequest),
	}
}

func (m *mockPartnerRepo) FindByID(ctx context.Context, id string) (*models.Partner, error) {
	if partner, ok := m.partners[id]; ok {
		clone := *partner
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPartnerRepo) ListActive(ctx context.Context) ([]models.Partner, error) {
	var active []models.Partner
	for _, partner := range m.partners {
		if partner.Active {
			active = append(active, *partner)
		}
	}
	return active, nil
}

func (m *mockPartnerRepo) Create(ctx context.Context, partner *models.Partner) error {
	m.nextPartner++
	partner.ID = fmt.Sprintf("prt-%d", m.nextPartner)
	clone := *partner
	m.partners[partner.ID] = &clone
	return nil
}

func (m *mockPartnerRepo) Update(ctx context.Context, partner *models.Partner) error {
	clone := *partner
	m.partners[partner.ID] = &clone
	return nil
}

func (m *mockPartnerRepo) FindRequestByID(ctx context.Context, id string) (*models.PartnerServiceRequest, error) {
	if request, ok := m.requests[id]; ok {
		clone := *request
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPartnerRepo) ListRequestsByEvent(ctx context.Context, eventID string) ([]models.PartnerServiceRequest, error) {
	var matched []models.PartnerServiceRequest
	for _, request := range m.requests {
		if request.EventID == eventID {
			matched = append(matched, *request)
		}
	}
	return matched, nil
}

func (m *mockPartnerRepo) ListRequestsByPartner(ctx context.Context, partnerID string) ([]models.PartnerServiceRequest, error) {
	var matched []models.PartnerServiceRequest
	for _, request := range m.requests {
		if request.PartnerID == partnerID {
			matched = append(matched, *request)
		}
	}
	return matched, nil
}

func (m *mockPartnerRepo) CreateRequest(ctx context.Context, request *models.PartnerServiceRequest) error {
	m.nextRequest++
	request.ID = fmt.Sprintf("req-%d", m.nextRequest)
	clone := *request
	m.requests[request.ID] = &clone
	return nil
}

func (m *mockPartnerRepo) UpdateRequest(ctx context.Context, request *models.PartnerServiceRequest) error {
	clone := *request
	m.requests[request.ID] = &clone
	return nil
}

type capturePartnerNotifier struct {
	requested []string
	responded []string
}

func (n *capturePartnerNotifier) PartnerRequested(req *models.PartnerServiceRequest) {
	n.requested = append(n.requested, req.ID)
}

func (n *capturePartnerNotifier) PartnerResponded(req *models.PartnerServiceRequest) {
	n.responded = append(n.responded, req.ID)
}

func newPartnerFixture() (*PartnerService, *mockPartnerRepo, *capturePartnerNotifier) {
	repo := newMockPartnerRepo()
	repo.partners["prt-active"] = &models.Partner{ID: "prt-active", Name: "Haul Co", ContactEmail: "ops@haul.co", Active: true}
	repo.partners["prt-inactive"] = &models.Partner{ID: "prt-inactive", Name: "Gone Co", ContactEmail: "ops@gone.co", Active: false}
	events := &mockMetricsEventReader{events: map[string]*models.Event{
		"evt-1": {ID: "evt-1", Name: "Beach Cleanup", Status: models.EventStatusActive},
	}}
	notifier := &capturePartnerNotifier{}
	svc := NewPartnerService(repo, events, notifier, nil, nil)
	return svc, repo, notifier
}

func TestCreatePartnerValidatesPayload(t *testing.T) {
	svc, _, _ := newPartnerFixture()

	_, err := svc.CreatePartner(context.Background(), CreatePartnerRequest{Name: "X"}, "adm-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCreatePartnerDefaultsActive(t *testing.T) {
	svc, repo, _ := newPartnerFixture()

	partner, err := svc.CreatePartner(context.Background(), CreatePartnerRequest{
		Name:         "Dispose-It",
		ContactEmail: "hello@disposeit.org",
	}, "adm-1")
	require.NoError(t, err)
	assert.True(t, partner.Active)
	assert.Equal(t, "adm-1", partner.CreatedBy)
	assert.Contains(t, repo.partners, partner.ID)
}

func TestListPartnersSkipsInactive(t *testing.T) {
	svc, _, _ := newPartnerFixture()

	partners, err := svc.ListPartners(context.Background())
	require.NoError(t, err)
	require.Len(t, partners, 1)
	assert.Equal(t, "prt-active", partners[0].ID)
}

func TestRequestServiceHappyPath(t *testing.T) {
	svc, _, notifier := newPartnerFixture()

	request, err := svc.RequestService(context.Background(), "evt-1", CreateServiceRequest{
		PartnerID:   "prt-active",
		ServiceType: "hauling",
	}, "lead-1")
	require.NoError(t, err)
	assert.Equal(t, models.PartnerRequestRequested, request.Status)
	assert.Equal(t, models.PartnerServiceHauling, request.ServiceType)
	assert.Equal(t, []string{request.ID}, notifier.requested)
}

func TestRequestServiceRejectsInactivePartner(t *testing.T) {
	svc, _, _ := newPartnerFixture()

	_, err := svc.RequestService(context.Background(), "evt-1", CreateServiceRequest{
		PartnerID:   "prt-inactive",
		ServiceType: "disposal",
	}, "lead-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestRequestServiceRejectsUnknownServiceType(t *testing.T) {
	svc, _, _ := newPartnerFixture()

	_, err := svc.RequestService(context.Background(), "evt-1", CreateServiceRequest{
		PartnerID:   "prt-active",
		ServiceType: "catering",
	}, "lead-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestRequestServiceRejectsUnknownEvent(t *testing.T) {
	svc, _, _ := newPartnerFixture()

	_, err := svc.RequestService(context.Background(), "evt-missing", CreateServiceRequest{
		PartnerID:   "prt-active",
		ServiceType: "hauling",
	}, "lead-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestAcceptStampsResponder(t *testing.T) {
	svc, _, notifier := newPartnerFixture()
	ctx := context.Background()

	request, err := svc.RequestService(ctx, "evt-1", CreateServiceRequest{PartnerID: "prt-active", ServiceType: "hauling"}, "lead-1")
	require.NoError(t, err)

	accepted, err := svc.Accept(ctx, request.ID, "prt-user")
	require.NoError(t, err)
	assert.Equal(t, models.PartnerRequestAccepted, accepted.Status)
	require.NotNil(t, accepted.RespondedBy)
	assert.Equal(t, "prt-user", *accepted.RespondedBy)
	assert.NotNil(t, accepted.RespondedAt)
	assert.Equal(t, []string{request.ID}, notifier.responded)
}

func TestDeclineRequiresReason(t *testing.T) {
	svc, _, _ := newPartnerFixture()
	ctx := context.Background()

	request, err := svc.RequestService(ctx, "evt-1", CreateServiceRequest{PartnerID: "prt-active", ServiceType: "disposal"}, "lead-1")
	require.NoError(t, err)

	_, err = svc.Decline(ctx, request.ID, "", "prt-user")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	declined, err := svc.Decline(ctx, request.ID, "no trucks that day", "prt-user")
	require.NoError(t, err)
	assert.Equal(t, models.PartnerRequestDeclined, declined.Status)
	require.NotNil(t, declined.DeclineReason)
	assert.Equal(t, "no trucks that day", *declined.DeclineReason)
}

func TestRespondOnlyFromRequested(t *testing.T) {
	svc, _, _ := newPartnerFixture()
	ctx := context.Background()

	request, err := svc.RequestService(ctx, "evt-1", CreateServiceRequest{PartnerID: "prt-active", ServiceType: "hauling"}, "lead-1")
	require.NoError(t, err)
	_, err = svc.Accept(ctx, request.ID, "prt-user")
	require.NoError(t, err)

	_, err = svc.Accept(ctx, request.ID, "prt-user")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestCompleteOnlyFromAccepted(t *testing.T) {
	svc, _, _ := newPartnerFixture()
	ctx := context.Background()

	request, err := svc.RequestService(ctx, "evt-1", CreateServiceRequest{PartnerID: "prt-active", ServiceType: "hauling"}, "lead-1")
	require.NoError(t, err)

	_, err = svc.Complete(ctx, request.ID, "lead-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)

	_, err = svc.Accept(ctx, request.ID, "prt-user")
	require.NoError(t, err)

	completed, err := svc.Complete(ctx, request.ID, "lead-1")
	require.NoError(t, err)
	assert.Equal(t, models.PartnerRequestCompleted, completed.Status)
}
