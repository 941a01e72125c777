package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"real-estate-search/internal/listing"
	"real-estate-search/internal/slug"
)

// SearchHandler serves slug-addressed listing searches
type SearchHandler struct {
	engine *listing.Engine
	logger *slog.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(engine *listing.Engine, logger *slog.Logger) *SearchHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchHandler{engine: engine, logger: logger}
}

// Register mounts the search routes on r
func (h *SearchHandler) Register(r gin.IRoutes) {
	r.GET("/api/search/*slug", h.Search)
	r.POST("/api/search/path", h.BuildPath)
}

// Search decodes the path, runs the engine and returns the results page.
// GET /api/search/venta-pisos/madrid/habitaciones-2?sort=price-asc&limit=20
func (h *SearchHandler) Search(c *gin.Context) {
	start := time.Now()
	path := c.Param("slug")

	state := slug.Decode(path)
	canonical := slug.Encode(state)
	sortKey := listing.ParseSortKey(c.Query("sort"))

	// an unparsable limit means the default
	limit, _ := strconv.Atoi(c.Query("limit"))

	results, err := h.engine.Search(c.Request.Context(), state, sortKey, limit)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, listing.ErrSearchUnavailable) {
			status = http.StatusServiceUnavailable
		}
		h.logger.ErrorContext(c.Request.Context(), "search failed",
			"request_id", RequestIDFrom(c.Request.Context()),
			"path", canonical,
			"error", err,
		)
		c.JSON(status, gin.H{
			"error":     "Search is temporarily unavailable",
			"retryable": status == http.StatusServiceUnavailable,
		})
		return
	}

	h.logger.InfoContext(c.Request.Context(), "search",
		"request_id", RequestIDFrom(c.Request.Context()),
		"path", canonical,
		"sort", sortKey.String(),
		"count", len(results),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	c.Header("Link", "<"+canonical+">; rel=\"canonical\"")
	c.JSON(http.StatusOK, gin.H{
		"path":           path,
		"canonical_path": canonical,
		"sort":           sortKey.String(),
		"state":          newStateJSON(state),
		"count":          len(results),
		"results":        results,
	})
}

// BuildPath turns a JSON search state into its canonical URL path
func (h *SearchHandler) BuildPath(c *gin.Context) {
	var req stateJSON
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state := req.toState()
	c.JSON(http.StatusOK, gin.H{
		"path":  slug.Encode(state),
		"state": newStateJSON(state),
	})
}
