package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"equipment-maintenance-dashboard/config"
	"equipment-maintenance-dashboard/internal/mw"
)

// NewRouter creates and configures the dashboard's gin router.
func NewRouter(cfg *config.ServerConfig, h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLogger(h.logger))

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)
	typesCache := mw.NewResponseCache(time.Duration(cfg.CacheTTLSeconds) * time.Second)

	r.GET("/ws", h.LiveUpdates)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/session", h.GetSession)

		api.GET("/equipment", h.ListEquipment)
		api.GET("/equipment/:id", h.GetEquipment)
		api.PUT("/equipment/:id/schedule", h.ScheduleMaintenance)
		api.PUT("/equipment/:id/complete", h.CompleteMaintenance)
		api.POST("/resync", h.Resync)

		api.GET("/pending-reviews", h.GetPendingReviews)
		api.GET("/maintenance-types", typesCache.Handler(), h.GetMaintenanceTypes)
		api.GET("/logs", h.GetLogs)
		api.GET("/users", h.GetUsers)
		api.PUT("/maintenance/:id/confirm", h.ConfirmMaintenance)
		api.PUT("/maintenance/:id/review", h.ReviewMaintenance)

		api.GET("/notices", h.GetNotices)
		api.DELETE("/notices/:id", h.DismissNotice)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
