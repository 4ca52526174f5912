package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/occupancy/internal/api/handlers"
	"github.com/your-org/occupancy/internal/api/ws"
	"github.com/your-org/occupancy/internal/auth"
	"github.com/your-org/occupancy/internal/engine"
	"github.com/your-org/occupancy/internal/queue"
	"github.com/your-org/occupancy/internal/storage"
)

type RouterConfig struct {
	APIKey     string
	Store      storage.Store
	Controller *engine.Controller
	Aggregator *engine.Aggregator
	Photos     *storage.PhotoStore
	Producer   *queue.Producer
	Hub        *ws.Hub
	// DBPinger reports registry connectivity for readiness checks;
	// nil when the deployment runs on the in-memory store.
	DBPinger handlers.Pinger
	// EncodeFn extracts a face encoding from image bytes (external
	// extractor hook). Nil disables the image upload path.
	EncodeFn handlers.EncodeFunc
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	var photosPinger handlers.Pinger
	if cfg.Photos != nil {
		photosPinger = cfg.Photos
	}
	var queuePinger handlers.QueuePinger
	if cfg.Producer != nil {
		queuePinger = cfg.Producer
	}
	systemH := handlers.NewSystemHandler(cfg.DBPinger, photosPinger, queuePinger)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// WebSocket occupancy feed
	if cfg.Hub != nil {
		v1.GET("/ws", cfg.Hub.HandleWS)
	}

	// Guests
	guestH := handlers.NewGuestHandler(cfg.Store, cfg.Photos, cfg.Controller, cfg.Producer)
	guestH.EncodeFn = cfg.EncodeFn
	v1.POST("/guests", guestH.Create)
	v1.GET("/guests", guestH.List)
	v1.GET("/guests/:id", guestH.Get)
	v1.GET("/guests/:id/events", guestH.Events)
	v1.GET("/guests/:id/photo", guestH.Photo)

	// Lifecycle
	lifecycleH := handlers.NewLifecycleHandler(cfg.Controller, cfg.Producer)
	v1.POST("/match", lifecycleH.Match)
	v1.POST("/guests/:id/checkin", lifecycleH.CheckIn)
	v1.POST("/guests/:id/checkout", lifecycleH.CheckOut)
	v1.POST("/checkout", lifecycleH.CheckOutByFace)

	// Events
	eventH := handlers.NewEventHandler(cfg.Store)
	v1.GET("/events", eventH.List)

	// Statistics
	statsH := handlers.NewStatsHandler(cfg.Aggregator)
	v1.GET("/stats", statsH.Get)

	return r
}
