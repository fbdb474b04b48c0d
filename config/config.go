package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Dosada05/court-scheduler/hub"
	"github.com/Dosada05/court-scheduler/storage"
)

// Config holds the server settings read from the environment.
type Config struct {
	DatabaseURL        string
	JWTSecretKey       string
	ServerPort         int
	LogLevel           string
	LogFormat          string
	CORSAllowedOrigins []string

	Hub          hub.Config
	MinPlayerGap time.Duration

	R2            storage.CloudflareR2UploaderConfig
	ArchivePrefix string
}

// Load reads the configuration from environment variables. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	cfg := &Config{
		DatabaseURL:        dbURL,
		JWTSecretKey:       jwtKey,
		ServerPort:         port,
		LogLevel:           stringEnv("LOG_LEVEL", "info"),
		LogFormat:          stringEnv("LOG_FORMAT", "text"),
		CORSAllowedOrigins: listEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		ArchivePrefix:      stringEnv("R2_ARCHIVE_PREFIX", ""),
		R2: storage.CloudflareR2UploaderConfig{
			AccountID:       os.Getenv("R2_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
			BucketName:      os.Getenv("R2_BUCKET_NAME"),
			PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
		},
	}

	if cfg.Hub, err = hubConfig(); err != nil {
		return nil, err
	}
	if cfg.MinPlayerGap, err = durationEnv("SCHEDULE_MIN_PLAYER_GAP", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.MinPlayerGap < 0 {
		return nil, fmt.Errorf("SCHEDULE_MIN_PLAYER_GAP cannot be negative, got %s", cfg.MinPlayerGap)
	}

	return cfg, nil
}

func hubConfig() (hub.Config, error) {
	cfg := hub.DefaultConfig()
	var err error

	// Connection caps must be positive; a zero rate limit disables rate
	// signals.
	ints := []struct {
		key      string
		field    *int
		positive bool
	}{
		{"HUB_MAX_CONNECTIONS_PER_TOURNAMENT", &cfg.MaxConnectionsPerTournament, true},
		{"HUB_MAX_TOTAL_CONNECTIONS", &cfg.MaxTotalConnections, true},
		{"HUB_MESSAGE_RATE_LIMIT", &cfg.MessageRateLimit, false},
		{"HUB_SEND_BUFFER", &cfg.SendBuffer, true},
	}
	for _, v := range ints {
		if *v.field, err = intEnv(v.key, *v.field); err != nil {
			return cfg, err
		}
		if *v.field < 0 {
			return cfg, fmt.Errorf("%s cannot be negative, got %d", v.key, *v.field)
		}
		if v.positive && *v.field == 0 {
			return cfg, fmt.Errorf("%s must be positive, got 0", v.key)
		}
	}

	durations := []struct {
		key   string
		field *time.Duration
	}{
		{"HUB_CONNECTION_TIMEOUT", &cfg.ConnectionTimeout},
		{"HUB_HEALTH_CHECK_INTERVAL", &cfg.HealthCheckInterval},
		{"HUB_RATE_WINDOW", &cfg.RateWindow},
	}
	for _, v := range durations {
		if *v.field, err = durationEnv(v.key, *v.field); err != nil {
			return cfg, err
		}
		if *v.field <= 0 {
			return cfg, fmt.Errorf("%s must be positive, got %s", v.key, *v.field)
		}
	}

	return cfg, nil
}

func stringEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

// durationEnv accepts Go duration strings ("90s", "1m") or a bare number of seconds.
func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return d, nil
}

func listEnv(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
