package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/TrashMob-eco/trashmob-api/internal/service"
	"github.com/TrashMob-eco/trashmob-api/pkg/response"
)

// StatsHandler exposes the public site stats and leaderboard endpoints.
type StatsHandler struct {
	leaderboard *service.LeaderboardService
}

// NewStatsHandler constructs StatsHandler.
func NewStatsHandler(leaderboard *service.LeaderboardService) *StatsHandler {
	return &StatsHandler{leaderboard: leaderboard}
}

// SiteStats godoc
// @Summary Site-wide impact totals
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats [get]
func (h *StatsHandler) SiteStats(c *gin.Context) {
	stats, err := h.leaderboard.SiteStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Leaderboard godoc
// @Summary Top contributors over a trailing window
// @Tags Stats
// @Produce json
// @Param days query int false "Window in days" default(365)
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /leaderboard [get]
func (h *StatsHandler) Leaderboard(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "365"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	entries, err := h.leaderboard.TopContributors(c.Request.Context(), days, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
