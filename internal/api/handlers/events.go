package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/occupancy/internal/storage"
	"github.com/your-org/occupancy/pkg/dto"
)

type EventHandler struct {
	db storage.Store
}

func NewEventHandler(db storage.Store) *EventHandler {
	return &EventHandler{db: db}
}

// List returns the global event log, newest first, optionally
// filtered by guest and time range.
func (h *EventHandler) List(c *gin.Context) {
	var guestID *int64
	if s := c.Query("guest_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid guest_id"})
			return
		}
		guestID = &id
	}

	var from, to *time.Time
	if s := c.Query("from"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			from = &t
		}
	}
	if s := c.Query("to"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			to = &t
		}
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	events, total, err := h.db.ListEvents(c.Request.Context(), guestID, from, to, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.EventResponse, 0, len(events))
	for _, ev := range events {
		resp = append(resp, eventResponse(ev))
	}
	c.JSON(http.StatusOK, dto.EventListResponse{Events: resp, Total: total})
}
