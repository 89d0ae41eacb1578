package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string

	DatabaseURL string
	RedisURL    string

	MeiliSearchHost string
	MeiliMasterKey  string

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string

	JWTSecret string
	JWTTTL    time.Duration

	// Points system
	DefaultPointsPerMinute int

	// Watch report processing
	ReportThrottle time.Duration
	ReportTimeout  time.Duration

	LeaderboardCacheTTL time.Duration
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		MeiliSearchHost: getEnv("MEILISEARCH_HOST", "http://localhost:7700"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		CloudinaryCloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:       os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret:    os.Getenv("CLOUDINARY_API_SECRET"),
		CloudinaryUploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "creator_viewer_app"),

		JWTSecret: getEnv("JWT_SECRET", "your-secret-key-for-development"),
	}

	var err error
	cfg.JWTTTL, err = parseDuration(getEnv("JWT_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	cfg.ReportThrottle, err = parseDuration(getEnv("WATCH_REPORT_THROTTLE", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid WATCH_REPORT_THROTTLE: %w", err)
	}
	cfg.ReportTimeout, err = parseDuration(getEnv("WATCH_REPORT_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid WATCH_REPORT_TIMEOUT: %w", err)
	}
	cfg.LeaderboardCacheTTL, err = parseDuration(getEnv("LEADERBOARD_CACHE_TTL", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEADERBOARD_CACHE_TTL: %w", err)
	}

	cfg.DefaultPointsPerMinute, err = strconv.Atoi(getEnv("DEFAULT_POINTS_PER_MINUTE", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_POINTS_PER_MINUTE: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
