package http

import (
	"time"

	"pointsbot/internal/bot"
	"pointsbot/internal/http/handlers"
	"pointsbot/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RegisterRoutes wires the registration endpoint and the health probes.
// db may be nil in file-backed mode.
func RegisterRoutes(r *gin.Engine, registry *bot.Registry, db *pgxpool.Pool, apiRateLimit int, apiRateWindow time.Duration) {
	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/health", healthHandler.Liveness)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	regHandler := handlers.NewRegisterHandler(registry)
	api := r.Group("/api")
	api.Use(middleware.RateLimit(apiRateLimit, apiRateWindow))
	api.GET("", regHandler.Register)
}
