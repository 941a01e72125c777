package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"real-estate-search/internal/breaker"
	"real-estate-search/internal/ratelimit"
	"real-estate-search/internal/scheduler"
)

// AdminHandler handles admin-related requests
type AdminHandler struct {
	scheduler   *scheduler.Scheduler
	rateLimiter *ratelimit.RateLimiter
	breaker     *breaker.CircuitBreaker
	logger      *slog.Logger
}

// NewAdminHandler creates a new admin handler. sched is nil when the
// search index is not in use.
func NewAdminHandler(sched *scheduler.Scheduler, rl *ratelimit.RateLimiter, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{
		scheduler:   sched,
		rateLimiter: rl,
		logger:      logger,
	}
}

// WithBreaker adds the search backend's circuit breaker to the stats
func (h *AdminHandler) WithBreaker(cb *breaker.CircuitBreaker) *AdminHandler {
	h.breaker = cb
	return h
}

// Register mounts the admin routes on r
func (h *AdminHandler) Register(r gin.IRoutes) {
	r.GET("/stats", h.GetStats)
	r.POST("/reindex", h.TriggerReindex)
	r.GET("/reindex/status", h.GetReindexStatus)
	r.GET("/ratelimit", h.GetRateLimitStats)
}

// GetStats returns system statistics
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats := gin.H{
		"reindex":    h.reindexStatus(),
		"rate_limit": h.rateLimiter.GetStats(c.ClientIP()),
	}
	if h.breaker != nil {
		stats["search_breaker"] = h.breaker.GetStatus()
	}
	c.JSON(http.StatusOK, stats)
}

// TriggerReindex starts a reindex run in the background
func (h *AdminHandler) TriggerReindex(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Reindex not available (search backend is the database)",
		})
		return
	}
	if h.scheduler.Reindexer().Running() {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "Reindex already running",
			"status": "running",
		})
		return
	}

	h.logger.Info("admin: manual reindex requested", "request_id", RequestIDFrom(c.Request.Context()))

	// the request context ends with the response
	go func() {
		stats, err := h.scheduler.RunNow(context.Background())
		if err != nil {
			h.logger.Error("admin: manual reindex failed", "error", err)
			return
		}
		h.logger.Info("admin: manual reindex completed", "indexed", stats.Indexed)
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Reindex job started",
		"status":  "running",
	})
}

// GetReindexStatus reports whether a run is in progress and how the last one went
func (h *AdminHandler) GetReindexStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.reindexStatus())
}

func (h *AdminHandler) reindexStatus() gin.H {
	if h.scheduler == nil {
		return gin.H{"status": "disabled"}
	}

	status := gin.H{"status": "idle"}
	if h.scheduler.Reindexer().Running() {
		status["status"] = "running"
	}
	if next := h.scheduler.NextRun(); !next.IsZero() {
		status["next_run"] = next.Format(time.RFC3339)
	}
	if last := h.scheduler.Reindexer().LastRun(); !last.StartedAt.IsZero() {
		status["last_run"] = last
	}
	return status
}

// GetRateLimitStats returns the caller's rate limit usage
func (h *AdminHandler) GetRateLimitStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.rateLimiter.GetStats(c.ClientIP()))
}
