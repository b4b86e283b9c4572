package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TrashMob-eco/trashmob-api/internal/service"
	appErrors "github.com/TrashMob-eco/trashmob-api/pkg/errors"
	"github.com/TrashMob-eco/trashmob-api/pkg/response"
)

// EventMetricsHandler exposes the submission and review workflow endpoints.
type EventMetricsHandler struct {
	metrics *service.EventMetricsService
	exports *service.ExportService
}

// NewEventMetricsHandler constructs EventMetricsHandler. Exports may be nil
// when the export feature is disabled.
func NewEventMetricsHandler(metrics *service.EventMetricsService, exports *service.ExportService) *EventMetricsHandler {
	return &EventMetricsHandler{metrics: metrics, exports: exports}
}

// Submit godoc
// @Summary Submit cleanup metrics
// @Description Create or overwrite the caller's pending submission for an event
// @Tags Metrics
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body service.SubmitMetricsRequest true "Metrics payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /events/{id}/metrics [post]
func (h *EventMetricsHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.SubmitMetricsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	submission, err := h.metrics.Submit(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, submission)
}

// GetMine godoc
// @Summary Get the caller's submission for an event
// @Tags Metrics
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/metrics/mine [get]
func (h *EventMetricsHandler) GetMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	submission, err := h.metrics.GetMine(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// HasSubmitted godoc
// @Summary Check whether the caller has submitted for an event
// @Tags Metrics
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/metrics/submitted [get]
func (h *EventMetricsHandler) HasSubmitted(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	exists, err := h.metrics.HasSubmitted(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"submitted": exists}, nil)
}

// ListByEvent godoc
// @Summary List all submissions for an event
// @Tags Metrics
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/metrics [get]
func (h *EventMetricsHandler) ListByEvent(c *gin.Context) {
	records, err := h.metrics.ListByEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// ListPending godoc
// @Summary List the pending review queue for an event
// @Tags Metrics
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/metrics/pending [get]
func (h *EventMetricsHandler) ListPending(c *gin.Context) {
	records, err := h.metrics.ListPending(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Approve godoc
// @Summary Approve a pending submission
// @Tags Metrics
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /metrics/{id}/approve [post]
func (h *EventMetricsHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	submission, err := h.metrics.Approve(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// Reject godoc
// @Summary Reject a pending submission
// @Tags Metrics
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body object true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /metrics/{id}/reject [post]
func (h *EventMetricsHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var payload struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "rejection reason is required"))
		return
	}
	submission, err := h.metrics.Reject(c.Request.Context(), c.Param("id"), payload.Reason, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

type adjustMetricsPayload struct {
	service.AdjustMetricsRequest
	Reason string `json:"reason" binding:"required"`
}

// Adjust godoc
// @Summary Adjust a pending submission with corrected values
// @Tags Metrics
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body handler.adjustMetricsPayload true "Adjustment payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /metrics/{id}/adjust [post]
func (h *EventMetricsHandler) Adjust(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var payload adjustMetricsPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid adjustment payload"))
		return
	}
	submission, err := h.metrics.Adjust(c.Request.Context(), c.Param("id"), payload.AdjustMetricsRequest, payload.Reason, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// ApproveAll godoc
// @Summary Approve every pending submission for an event
// @Description Approvals are applied per submission; a failure partway leaves
// @Description earlier approvals in place and reports the count applied.
// @Tags Metrics
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/metrics/approve-all [post]
func (h *EventMetricsHandler) ApproveAll(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	approved, err := h.metrics.ApproveAllPending(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.JSON(c, appErrors.FromError(err).Status, gin.H{"approved": approved}, nil)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"approved": approved}, nil)
}

// Totals godoc
// @Summary Per-event rollup over reviewed submissions
// @Tags Metrics
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/metrics/totals [get]
func (h *EventMetricsHandler) Totals(c *gin.Context) {
	totals, err := h.metrics.CalculateTotals(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, totals, nil)
}

// Summary godoc
// @Summary Public contributor summary for an event
// @Tags Metrics
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/summary [get]
func (h *EventMetricsHandler) Summary(c *gin.Context) {
	summary, err := h.metrics.PublicSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// MyImpact godoc
// @Summary Lifetime impact stats for the caller
// @Tags Metrics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/impact [get]
func (h *EventMetricsHandler) MyImpact(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	stats, err := h.metrics.UserImpact(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// UserImpact godoc
// @Summary Lifetime impact stats for a user
// @Tags Metrics
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/impact [get]
func (h *EventMetricsHandler) UserImpact(c *gin.Context) {
	stats, err := h.metrics.UserImpact(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Export godoc
// @Summary Export an event's metrics report
// @Tags Metrics
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Event ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /events/{id}/metrics/export [get]
func (h *EventMetricsHandler) Export(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	format := service.ReportFormat(c.DefaultQuery("format", "csv"))
	result, err := h.exports.EventMetricsReport(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+result.Filename)
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
