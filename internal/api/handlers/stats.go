package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/occupancy/internal/engine"
	"github.com/your-org/occupancy/internal/models"
	"github.com/your-org/occupancy/pkg/dto"
)

type StatsHandler struct {
	agg *engine.Aggregator
}

func NewStatsHandler(agg *engine.Aggregator) *StatsHandler {
	return &StatsHandler{agg: agg}
}

// Get returns per-action event counts. window is one of today, 7d,
// month, year, or "all" for all-time totals.
func (h *StatsHandler) Get(c *gin.Context) {
	windowStr := c.DefaultQuery("window", "today")

	if windowStr == "all" {
		counts, err := h.agg.Totals(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, dto.StatsResponse{Window: "all", Counts: countsResponse(counts)})
		return
	}

	window, err := engine.ParseWindow(windowStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	counts, from, to, err := h.agg.Aggregate(c.Request.Context(), window)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.StatsResponse{
		Window: string(window),
		From:   from.Format(time.RFC3339),
		To:     to.Format(time.RFC3339),
		Counts: countsResponse(counts),
	})
}

func countsResponse(counts map[models.EventAction]int64) map[string]int64 {
	out := make(map[string]int64, len(counts))
	for action, n := range counts {
		out[string(action)] = n
	}
	return out
}
