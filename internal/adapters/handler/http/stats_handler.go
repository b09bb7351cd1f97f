package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-habit-stats/internal/core/services"
)

type StatsHandler struct {
	svc *services.StatsService
}

func NewStatsHandler(svc *services.StatsService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

func (h *StatsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/habits/statistics", h.GetStatistics)
}

// GetStatistics godoc
// @Summary      Per-habit statistics
// @Description  Total completions, current streak and completion rate of every habit of the caller.
// @Tags         habits
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   stats.HabitStatistics
// @Failure      401  {object}  errorResponse
// @Router       /habits/statistics [get]
func (h *StatsHandler) GetStatistics(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	result, err := h.svc.GetStatistics(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve statistics"})
		return
	}

	c.JSON(http.StatusOK, result)
}
