package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pointsbot/internal/bot"
	"pointsbot/internal/config"
	"pointsbot/internal/db"
	"pointsbot/internal/fetch"
	httpserver "pointsbot/internal/http"
	"pointsbot/internal/http/middleware"
	"pointsbot/internal/ledger"
	"pointsbot/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	var (
		store ledger.Store
		pool  *pgxpool.Pool
	)
	if cfg.DatabaseURL != "" {
		pool = db.Connect(cfg.DatabaseURL)
		defer pool.Close()
		if err := db.Migrate(context.Background(), pool); err != nil {
			logger.Fatal("failed to migrate schema", "error", err)
		}
		store = ledger.NewPostgresStore(pool)
	} else {
		fileStore := ledger.NewFileBackedStore(cfg.DataDir)
		defer fileStore.Flush()
		store = fileStore
		logger.Info("no DATABASE_URL set, using file-backed ledger", "dir", cfg.DataDir)
	}

	providers := fetch.NewClient(cfg.ProviderBaseURL, cfg.ProviderKey, cfg.AIBaseURL, cfg.FetchTimeout)

	deps := bot.Deps{
		Store:       store,
		Providers:   providers,
		AdminID:     cfg.AdminID,
		BotUsername: cfg.BotUsername,
	}
	registry := bot.NewRegistry(func(token string) (*bot.Instance, error) {
		return bot.NewInstance(token, deps)
	})

	if cfg.BotToken != "" {
		if _, _, err := registry.Ensure(cfg.BotToken); err != nil {
			logger.Error("failed to start configured bot", "error", err)
		}
	}

	r := gin.Default()

	// CORS so external front-ends can call the registration endpoint.
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})
	r.Use(middleware.Metrics())

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpserver.RegisterRoutes(r, registry, pool, cfg.APIRateLimit, cfg.APIRateWindow)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	registry.StopAll()
	logger.Info("server exited")
}
