package handlers

import (
	"net/http"
	"strconv"

	"prediction-frames/internal/services"

	"github.com/gin-gonic/gin"
)

type StatsHandler struct {
	stats *services.StatsService
}

func NewStatsHandler(stats *services.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// GetStats returns the leaderboard for a period and site-wide totals
// GET /stats?period=all|week|month&limit=
func (h *StatsHandler) GetStats(c *gin.Context) {
	period := services.Period(c.DefaultQuery("period", string(services.PeriodAll)))
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		limit = 10
	}

	leaderboard, err := h.stats.Leaderboard(c.Request.Context(), period, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	overall, err := h.stats.Overall(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard": leaderboard,
		"overall":     overall,
	})
}
