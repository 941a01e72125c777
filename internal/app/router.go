package app

import (
	"log/slog"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"real-estate-search/internal/config"
	"real-estate-search/internal/handlers"
	"real-estate-search/internal/ratelimit"
)

// NewRouter builds the HTTP routes
func NewRouter(cfg *config.Config, s *Services, rl *ratelimit.RateLimiter, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), handlers.RequestID())
	if cfg.Logging.LogRequests {
		r.Use(handlers.RequestLogger(logger))
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Type", handlers.RequestIDHeader},
		ExposeHeaders:    []string{handlers.RequestIDHeader, "Link", "Retry-After"},
		AllowCredentials: true,
	}))

	r.GET("/health", handlers.NewHealthHandler(s.Checks).Health)

	api := r.Group("/", rl.Middleware())
	handlers.NewSearchHandler(s.Engine(cfg, logger), logger).Register(api)

	// Admin API routes (requires authentication in production)
	handlers.NewAdminHandler(s.Scheduler, rl, logger).
		WithBreaker(s.Breaker).
		Register(r.Group("/api/admin"))

	return r
}
