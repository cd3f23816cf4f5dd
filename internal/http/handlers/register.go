package handlers

import (
	"net/http"

	"pointsbot/internal/bot"
	"pointsbot/internal/logger"

	"github.com/gin-gonic/gin"
)

// RegisterHandler exposes runtime bot-credential registration.
type RegisterHandler struct {
	registry *bot.Registry
}

func NewRegisterHandler(registry *bot.Registry) *RegisterHandler {
	return &RegisterHandler{registry: registry}
}

// Register ensures a bot instance exists for the token in the query
// string. Registering an already-known token is a no-op that reports the
// running instance.
func (h *RegisterHandler) Register(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please provide your Telegram bot token as ?token=YOUR_TOKEN"})
		return
	}

	_, created, err := h.registry.Ensure(token)
	if err != nil {
		logger.Error("failed to start bot instance", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start bot with provided token."})
		return
	}
	if created {
		logger.Info("bot started for registered token")
	}

	c.JSON(http.StatusOK, gin.H{"status": "Bot is running", "token": token})
}
