package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointsbot/internal/bot"
	"pointsbot/internal/ledger"
)

func newTestRouter(factory func(token string) (*bot.Instance, error)) (*gin.Engine, *bot.Registry) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	registry := bot.NewRegistry(factory)
	RegisterRoutes(r, registry, nil, 100, time.Minute)
	return r, registry
}

func okFactory(token string) (*bot.Instance, error) {
	return bot.NewTestInstance(token, bot.Deps{Store: ledger.NewMemoryStore()}), nil
}

func doGet(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterEndpoint(t *testing.T) {
	r, registry := newTestRouter(okFactory)

	// Missing token.
	w := doGet(r, "/api")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "?token=YOUR_TOKEN")

	// First registration starts the bot.
	w = doGet(r, "/api?token=123:abc")
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Bot is running", body["status"])
	assert.Equal(t, "123:abc", body["token"])
	assert.Equal(t, 1, registry.Len())

	// Re-registering the same token is a no-op.
	w = doGet(r, "/api?token=123:abc")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, registry.Len())
}

func TestRegisterEndpointFactoryError(t *testing.T) {
	r, registry := newTestRouter(func(string) (*bot.Instance, error) {
		return nil, errors.New("unauthorized token")
	})

	w := doGet(r, "/api?token=bad")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to start bot")
	assert.Equal(t, 0, registry.Len())
}

func TestHealthEndpoints(t *testing.T) {
	r, _ := newTestRouter(okFactory)

	for _, path := range []string{"/health", "/healthz", "/readyz"} {
		w := doGet(r, path)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), "ok")
	}
}
