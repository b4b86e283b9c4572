package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TrashMob-eco/trashmob-api/internal/service"
	appErrors "github.com/TrashMob-eco/trashmob-api/pkg/errors"
	"github.com/TrashMob-eco/trashmob-api/pkg/response"
)

// PartnerHandler exposes partner and service request endpoints.
type PartnerHandler struct {
	partners *service.PartnerService
}

// NewPartnerHandler constructs PartnerHandler.
func NewPartnerHandler(partners *service.PartnerService) *PartnerHandler {
	return &PartnerHandler{partners: partners}
}

// List godoc
// @Summary List active partners
// @Tags Partners
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /partners [get]
func (h *PartnerHandler) List(c *gin.Context) {
	partners, err := h.partners.ListPartners(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, partners, nil)
}

// Create godoc
// @Summary Register a partner organization
// @Tags Partners
// @Accept json
// @Produce json
// @Param payload body service.CreatePartnerRequest true "Partner payload"
// @Success 201 {object} response.Envelope
// @Router /partners [post]
func (h *PartnerHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreatePartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	partner, err := h.partners.CreatePartner(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, partner)
}

// RequestService godoc
// @Summary Request a partner service for an event
// @Tags Partners
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body service.CreateServiceRequest true "Service request payload"
// @Success 201 {object} response.Envelope
// @Router /events/{id}/partner-requests [post]
func (h *PartnerHandler) RequestService(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.partners.RequestService(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// ListByEvent godoc
// @Summary List service requests for an event
// @Tags Partners
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/partner-requests [get]
func (h *PartnerHandler) ListByEvent(c *gin.Context) {
	requests, err := h.partners.ListRequestsByEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// ListByPartner godoc
// @Summary List service requests directed at a partner
// @Tags Partners
// @Produce json
// @Param id path string true "Partner ID"
// @Success 200 {object} response.Envelope
// @Router /partners/{id}/requests [get]
func (h *PartnerHandler) ListByPartner(c *gin.Context) {
	requests, err := h.partners.ListRequestsByPartner(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Accept godoc
// @Summary Accept a service request
// @Tags Partners
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /partner-requests/{id}/accept [post]
func (h *PartnerHandler) Accept(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.partners.Accept(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Decline godoc
// @Summary Decline a service request
// @Tags Partners
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body object true "Decline reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /partner-requests/{id}/decline [post]
func (h *PartnerHandler) Decline(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var payload struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "decline reason is required"))
		return
	}
	request, err := h.partners.Decline(c.Request.Context(), c.Param("id"), payload.Reason, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Complete godoc
// @Summary Mark an accepted service request completed
// @Tags Partners
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /partner-requests/{id}/complete [post]
func (h *PartnerHandler) Complete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.partners.Complete(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
