package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/occupancy/internal/engine"
	"github.com/your-org/occupancy/internal/models"
	"github.com/your-org/occupancy/internal/queue"
	"github.com/your-org/occupancy/internal/storage"
	"github.com/your-org/occupancy/pkg/dto"
)

// LifecycleHandler exposes the match and transition operations. The
// operator's intent always arrives explicitly (enroll vs check-in vs
// check-out); the API never guesses from a probe alone.
type LifecycleHandler struct {
	ctrl     *engine.Controller
	producer *queue.Producer
}

func NewLifecycleHandler(ctrl *engine.Controller, producer *queue.Producer) *LifecycleHandler {
	return &LifecycleHandler{ctrl: ctrl, producer: producer}
}

// Match reports which guest, if any, a probe corresponds to. Pure
// query; the UI uses it to decide between enrollment and check-in.
func (h *LifecycleHandler) Match(c *gin.Context) {
	var req dto.MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scope := storage.ScopeAll
	switch req.Scope {
	case "", "all":
	case "present":
		scope = storage.ScopePresent
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "scope must be 'all' or 'present'"})
		return
	}

	guest, matched, err := h.ctrl.Identify(c.Request.Context(), models.Encoding(req.Encoding), scope)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	resp := dto.MatchResponse{Matched: matched}
	if matched {
		r := guestResponse(guest)
		resp.Guest = &r
	}
	c.JSON(http.StatusOK, resp)
}

// CheckIn re-checks-in a departed guest, overwriting profile and
// encoding with the confirmed values.
func (h *LifecycleHandler) CheckIn(c *gin.Context) {
	id, err := parseGuestID(c)
	if err != nil {
		return
	}

	var req dto.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	guest, event, err := h.ctrl.Resume(c.Request.Context(), id, engine.ResumeParams{
		Name:     req.Name,
		Phone:    req.Phone,
		Encoding: models.Encoding(req.Encoding),
	})
	if err != nil {
		respondEngineError(c, err)
		return
	}

	publishUpdate(c, h.producer, guest, event)
	c.JSON(http.StatusOK, guestResponse(guest))
}

// CheckOut departs a guest by id.
func (h *LifecycleHandler) CheckOut(c *gin.Context) {
	id, err := parseGuestID(c)
	if err != nil {
		return
	}

	guest, event, err := h.ctrl.Depart(c.Request.Context(), id)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	publishUpdate(c, h.producer, guest, event)
	c.JSON(http.StatusOK, guestResponse(guest))
}

// CheckOutByFace departs whichever present guest the probe matches.
func (h *LifecycleHandler) CheckOutByFace(c *gin.Context) {
	var req dto.CheckOutByFaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	guest, event, err := h.ctrl.DepartByProbe(c.Request.Context(), models.Encoding(req.Encoding))
	if err != nil {
		respondEngineError(c, err)
		return
	}

	publishUpdate(c, h.producer, guest, event)
	c.JSON(http.StatusOK, guestResponse(guest))
}
