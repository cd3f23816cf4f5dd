package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"pointsbot/internal/logger"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// InitRedisRateLimiter connects the shared Redis client used by
// RateLimit. With an empty addr, or when the ping fails, the limiter
// falls back to the in-process fixed window.
func InitRedisRateLimiter(addr, password string, db int) {
	if addr == "" {
		return
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, using in-process rate limiter", "error", err)
		return
	}
	redisClient = client
}

// RateLimit enforces a fixed window of maxRequests per window per client
// IP. Redis-backed when configured so the window survives restarts and
// spans replicas; otherwise an in-process map. Redis errors fail open.
func RateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	local := newLocalWindow()

	return func(c *gin.Context) {
		ip := c.ClientIP()

		var count int64
		if redisClient != nil {
			key := "rl:" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + ip
			val, err := redisClient.Incr(c.Request.Context(), key).Result()
			if err != nil {
				c.Next()
				return
			}
			if val == 1 {
				redisClient.Expire(c.Request.Context(), key, window)
			}
			count = val
		} else {
			count = local.hit(ip, window)
		}

		if count > int64(maxRequests) {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

type localWindow struct {
	mu      sync.Mutex
	clients map[string]*windowEntry
}

type windowEntry struct {
	start time.Time
	count int64
}

func newLocalWindow() *localWindow {
	return &localWindow{clients: make(map[string]*windowEntry)}
}

func (w *localWindow) hit(ip string, window time.Duration) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	e, ok := w.clients[ip]
	if !ok || now.Sub(e.start) > window {
		w.clients[ip] = &windowEntry{start: now, count: 1}
		return 1
	}
	e.count++
	return e.count
}
