package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/occupancy/internal/engine"
	"github.com/your-org/occupancy/internal/models"
	"github.com/your-org/occupancy/internal/queue"
	"github.com/your-org/occupancy/pkg/dto"
)

// EncodeFunc extracts a face encoding from image bytes. It is the
// hook for the external feature extractor; when unset, only raw
// encoding payloads are accepted.
type EncodeFunc func(imageData []byte) (models.Encoding, error)

func guestResponse(g *models.Guest) dto.GuestResponse {
	r := dto.GuestResponse{
		ID:          g.ID,
		Name:        g.Name,
		Phone:       g.Phone,
		Status:      string(g.Status),
		CheckinTime: g.CheckinTime.Format(time.RFC3339),
		CreatedAt:   g.CreatedAt.Format(time.RFC3339),
	}
	if g.CheckoutTime != nil {
		s := g.CheckoutTime.Format(time.RFC3339)
		r.CheckoutTime = &s
	}
	if g.PhotoKey != "" {
		r.PhotoURL = fmt.Sprintf("/v1/guests/%d/photo", g.ID)
	}
	return r
}

func eventResponse(ev models.Event) dto.EventResponse {
	return dto.EventResponse{
		ID:      ev.ID,
		GuestID: ev.GuestID,
		Action:  string(ev.Action),
		Count:   ev.Count,
		Time:    ev.Time.Format(time.RFC3339),
	}
}

// respondEngineError maps the engine's closed error set onto HTTP
// statuses. Unknown errors are storage failures: the operation did
// not commit and is safe to retry.
func respondEngineError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrEncodingShapeMismatch):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrGuestNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrDuplicateFace),
		errors.Is(err, engine.ErrAlreadyPresent),
		errors.Is(err, engine.ErrNotPresent):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// publishUpdate pushes a committed transition onto the occupancy
// feed. Best-effort: the transition is already durable.
func publishUpdate(c *gin.Context, producer *queue.Producer, g *models.Guest, ev *models.Event) {
	if producer == nil {
		return
	}
	update := &models.OccupancyUpdate{
		EventID:   ev.ID,
		GuestID:   g.ID,
		GuestName: g.Name,
		Action:    ev.Action,
		Time:      ev.Time,
	}
	if err := producer.PublishUpdate(c.Request.Context(), update); err != nil {
		slog.Warn("publish occupancy update", "error", err, "guest_id", g.ID)
	}
}
