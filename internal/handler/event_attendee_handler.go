package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TrashMob-eco/trashmob-api/internal/service"
	appErrors "github.com/TrashMob-eco/trashmob-api/pkg/errors"
	"github.com/TrashMob-eco/trashmob-api/pkg/response"
)

// EventAttendeeHandler exposes event registration endpoints.
type EventAttendeeHandler struct {
	attendees *service.EventAttendeeService
}

// NewEventAttendeeHandler constructs EventAttendeeHandler.
func NewEventAttendeeHandler(attendees *service.EventAttendeeService) *EventAttendeeHandler {
	return &EventAttendeeHandler{attendees: attendees}
}

// Register godoc
// @Summary Register for an event
// @Tags Attendance
// @Produce json
// @Param id path string true "Event ID"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /events/{id}/register [post]
func (h *EventAttendeeHandler) Register(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	attendee, err := h.attendees.Register(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, attendee)
}

// Unregister godoc
// @Summary Cancel event registration
// @Tags Attendance
// @Produce json
// @Param id path string true "Event ID"
// @Success 204
// @Router /events/{id}/register [delete]
func (h *EventAttendeeHandler) Unregister(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.attendees.Unregister(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListByEvent godoc
// @Summary List event attendees
// @Tags Attendance
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/attendees [get]
func (h *EventAttendeeHandler) ListByEvent(c *gin.Context) {
	attendees, err := h.attendees.ListByEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attendees, nil)
}

// MyEvents godoc
// @Summary List the caller's event registrations
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/events [get]
func (h *EventAttendeeHandler) MyEvents(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	events, err := h.attendees.ListByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}
