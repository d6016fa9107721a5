package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvFile is loaded before reading the environment when it exists.
const EnvFile = ".env"

// AppConfig collects everything the server needs at startup.
type AppConfig struct {
	ListenAddr         string
	Port               string
	GinMode            string
	DatabaseURL        string
	DatabasePath       string
	RedisURL           string
	SessionSecret      string
	JWTSecret          string
	JWTIssuer          string
	AdminTokenTTL      time.Duration
	AdminUserName      string
	AdminPassword      string
	CORSAllowedOrigins []string
	LexiconPath        string
	RateLimit          RateLimitConfig
	AutoPublishClean   bool
	LogLevel           string
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	OpenAIModel        string
}

// RateLimitConfig bounds story submissions per device.
type RateLimitConfig struct {
	MaxSubmissions int
	Window         time.Duration
	Cooldown       time.Duration
}

// Load reads .env (if present) and the environment, filling safe defaults
// for anything missing or malformed.
func Load() AppConfig {
	_ = godotenv.Load(EnvFile)
	return FromEnv(os.Getenv)
}

// FromEnv builds the config from an arbitrary lookup function.
func FromEnv(getenv func(string) string) AppConfig {
	get := func(key, fallback string) string {
		if value := strings.TrimSpace(getenv(key)); value != "" {
			return value
		}
		return fallback
	}

	port := get("PORT", "8080")
	sessionSecret := get("SESSION_SECRET", "bongbari-dev-secret")

	return AppConfig{
		ListenAddr:         get("LISTEN_ADDR", fmt.Sprintf(":%s", port)),
		Port:               port,
		GinMode:            get("GIN_MODE", "release"),
		DatabaseURL:        get("DATABASE_URL", ""),
		DatabasePath:       get("DATABASE_PATH", "bongbari.db"),
		RedisURL:           get("REDIS_URL", ""),
		SessionSecret:      sessionSecret,
		JWTSecret:          get("JWT_SECRET", sessionSecret),
		JWTIssuer:          get("JWT_ISSUER", "bongbari"),
		AdminTokenTTL:      parseDuration(getenv("ADMIN_TOKEN_TTL"), 12*time.Hour),
		AdminUserName:      get("ADMIN_USER_NAME", ""),
		AdminPassword:      get("ADMIN_PASSWORD", ""),
		CORSAllowedOrigins: splitList(get("CORS_ALLOWED_ORIGINS", "*")),
		LexiconPath:        get("LEXICON_PATH", ""),
		RateLimit: RateLimitConfig{
			MaxSubmissions: parsePositiveInt(getenv("RATE_LIMIT_MAX_SUBMISSIONS"), 5),
			Window:         parseDuration(getenv("RATE_LIMIT_WINDOW"), time.Hour),
			Cooldown:       parseDuration(getenv("RATE_LIMIT_COOLDOWN"), 6*time.Hour),
		},
		AutoPublishClean: parseBool(getenv("AUTO_PUBLISH_CLEAN"), true),
		LogLevel:         get("LOG_LEVEL", "info"),
		OpenAIAPIKey:     get("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    get("OPENAI_BASE_URL", ""),
		OpenAIModel:      get("OPENAI_MODEL", "gpt-4o-mini"),
	}
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fallback
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parsePositiveInt(raw string, fallback int) int {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fallback
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseBool(raw string, fallback bool) bool {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fallback
	}
	b, err := strconv.ParseBool(trimmed)
	if err != nil {
		return fallback
	}
	return b
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
