package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/occupancy/internal/engine"
	"github.com/your-org/occupancy/internal/models"
	"github.com/your-org/occupancy/internal/queue"
	"github.com/your-org/occupancy/internal/storage"
	"github.com/your-org/occupancy/pkg/dto"
)

type GuestHandler struct {
	db       storage.Store
	photos   *storage.PhotoStore
	ctrl     *engine.Controller
	producer *queue.Producer
	// EncodeFn extracts a face encoding from an uploaded image.
	// Set when the deployment wires an external extractor.
	EncodeFn EncodeFunc
}

func NewGuestHandler(db storage.Store, photos *storage.PhotoStore, ctrl *engine.Controller, producer *queue.Producer) *GuestHandler {
	return &GuestHandler{db: db, photos: photos, ctrl: ctrl, producer: producer}
}

// Create enrolls a brand-new guest. Accepts either a JSON body with a
// raw encoding or a multipart form with an image (requires EncodeFn);
// the multipart photo is retained for operator review.
func (h *GuestHandler) Create(c *gin.Context) {
	var (
		params    engine.EnrollParams
		photoData []byte
		photoType string
	)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		name := c.PostForm("name")
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name required"})
			return
		}

		file, header, err := c.Request.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
			return
		}
		defer file.Close()

		imageData, err := io.ReadAll(file)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "read image failed"})
			return
		}

		if h.EncodeFn == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "feature extractor not configured"})
			return
		}
		encoding, err := h.EncodeFn(imageData)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "failed to extract face: " + err.Error()})
			return
		}

		params = engine.EnrollParams{Name: name, Phone: c.PostForm("phone"), Encoding: encoding}
		photoData = imageData
		photoType = header.Header.Get("Content-Type")
	} else {
		var req dto.EnrollRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		params = engine.EnrollParams{Name: req.Name, Phone: req.Phone, Encoding: models.Encoding(req.Encoding)}
	}

	guest, event, err := h.ctrl.Enroll(c.Request.Context(), params)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	if photoData != nil && h.photos != nil {
		key := fmt.Sprintf("guests/%d/%s", guest.ID, uuid.New().String())
		if err := h.photos.PutPhoto(c.Request.Context(), key, photoData, photoType); err != nil {
			slog.Warn("store enrollment photo", "error", err, "guest_id", guest.ID)
		} else if err := h.db.UpdateGuestPhotoKey(c.Request.Context(), guest.ID, key); err != nil {
			slog.Warn("record photo key", "error", err, "guest_id", guest.ID)
		} else {
			guest.PhotoKey = key
		}
	}

	publishUpdate(c, h.producer, guest, event)
	c.JSON(http.StatusCreated, guestResponse(guest))
}

func (h *GuestHandler) List(c *gin.Context) {
	var status *models.GuestStatus
	if s := c.Query("status"); s != "" {
		st := models.GuestStatus(s)
		if st != models.StatusPresent && st != models.StatusDeparted {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		status = &st
	}

	guests, err := h.db.ListGuests(c.Request.Context(), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.GuestResponse, 0, len(guests))
	for i := range guests {
		resp = append(resp, guestResponse(&guests[i]))
	}
	c.JSON(http.StatusOK, dto.GuestListResponse{Guests: resp, Total: len(resp)})
}

func (h *GuestHandler) Get(c *gin.Context) {
	id, err := parseGuestID(c)
	if err != nil {
		return
	}

	guest, err := h.db.GetGuest(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if guest == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "guest not found"})
		return
	}

	c.JSON(http.StatusOK, guestResponse(guest))
}

// Events returns the lifecycle history of one guest, newest first.
func (h *GuestHandler) Events(c *gin.Context) {
	id, err := parseGuestID(c)
	if err != nil {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	events, total, err := h.db.ListEvents(c.Request.Context(), &id, nil, nil, limit, offset)
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

// Photo proxies the stored enrollment photo from object storage.
func (h *GuestHandler) Photo(c *gin.Context) {
	id, err := parseGuestID(c)
	if err != nil {
		return
	}

	guest, err := h.db.GetGuest(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if guest == nil || guest.PhotoKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "photo not found"})
		return
	}
	if h.photos == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "photo storage not configured"})
		return
	}

	data, err := h.photos.GetPhoto(c.Request.Context(), guest.PhotoKey)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "photo not found"})
		return
	}

	c.Data(http.StatusOK, "image/jpeg", data)
}

func parseGuestID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid guest id"})
		return 0, err
	}
	return id, nil
}
