package config

import (
	"os"
	"strconv"
	"time"

	"pointsbot/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string // empty selects the file-backed store
	DataDir     string

	BotToken    string // optional: instance registered at boot
	BotUsername string
	AdminID     int64

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ProviderBaseURL string
	ProviderKey     string
	AIBaseURL       string
	FetchTimeout    time.Duration

	APIRateLimit  int
	APIRateWindow time.Duration

	LogLevel string
	LogJSON  bool
}

// Load reads configuration from the environment, falling back to .env.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:         getEnv("APP_PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		DataDir:         getEnv("DATA_DIR", "."),
		BotToken:        os.Getenv("BOT_TOKEN"),
		BotUsername:     getEnv("BOT_USERNAME", "PointsBot"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		ProviderBaseURL: getEnv("PROVIDER_BASE_URL", "https://freefire-virusteam.vercel.app/ind"),
		ProviderKey:     os.Getenv("PROVIDER_KEY"),
		AIBaseURL:       getEnv("AI_BASE_URL", "https://deepseek.ytansh038.workers.dev"),
		FetchTimeout:    time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 15)) * time.Second,
		APIRateLimit:    getEnvInt("API_RATE_LIMIT", 10),
		APIRateWindow:   time.Duration(getEnvInt("API_RATE_WINDOW_SECONDS", 60)) * time.Second,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogJSON:         os.Getenv("LOG_JSON") == "true",
	}

	adminStr := os.Getenv("ADMIN_TELEGRAM_ID")
	if adminStr == "" {
		logger.Fatal("ADMIN_TELEGRAM_ID is not set")
	}
	adminID, err := strconv.ParseInt(adminStr, 10, 64)
	if err != nil {
		logger.Fatal("ADMIN_TELEGRAM_ID is not a valid telegram id", "value", adminStr)
	}
	cfg.AdminID = adminID

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
