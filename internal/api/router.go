package api

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"slot-history-backend/config"
	"slot-history-backend/internal/metrics"
	"slot-history-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router. Cached responses live
// in rc until it is flushed.
func NewRouter(cfg config.ServerConfig, h *Handler, m *metrics.Metrics, rc *mw.ResponseCache, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.Logger(log))

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst, cfg.RequestIPHeader)
	caching := rc.Middleware()

	r.GET("/metrics", gin.WrapH(m.Handler()))

	// API group
	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/centers", caching, h.GetCenters)

		centers := api.Group("/centers/:center_id", caching)
		centers.GET("/final-status", h.GetFinalStatus)
		centers.GET("/activity", h.GetActivity)
		centers.GET("/occupancy", h.GetOccupancy)
		centers.GET("/slots", h.GetSlot)

		api.GET("/runs/latest", caching, h.GetLatestRun)
		api.GET("/export.xlsx", h.GetWorkbook)
	}

	return r
}
