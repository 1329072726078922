package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Social   SocialConfig
	Redis    RedisConfig
	Jobs     JobsConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port        string
	Env         string // development, staging, production
	LogLevel    string
	FrontendURL string
}

// DatabaseConfig holds the store connection string
type DatabaseConfig struct {
	URL string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	BaseURL            string // public URL used to build absolute links
	JWTSecret          string
	AdminFIDs          []int64
	FrameDefaultAmount int64
}

// SocialConfig holds social-protocol (Neynar) API settings
type SocialConfig struct {
	APIKey  string
	BaseURL string
}

// RedisConfig holds Redis settings. An empty URL disables job leases.
type RedisConfig struct {
	URL string
}

// JobsConfig holds maintenance scheduler settings
type JobsConfig struct {
	Secret              string
	ExpireInterval      time.Duration
	LeaderboardInterval time.Duration
	CleanupInterval     time.Duration
	CleanupRetention    time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Env:         getEnv("GO_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			FrontendURL: getEnv("FRONTEND_URL", ""),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		App: AppConfig{
			BaseURL:   strings.TrimRight(getEnv("APP_URL", "http://localhost:8080"), "/"),
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Social: SocialConfig{
			APIKey:  getEnv("NEYNAR_API_KEY", ""),
			BaseURL: strings.TrimRight(getEnv("NEYNAR_BASE_URL", "https://api.neynar.com"), "/"),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Jobs: JobsConfig{
			Secret: getEnv("JOB_SECRET", ""),
		},
	}

	var err error
	if cfg.App.AdminFIDs, err = parseFIDs(getEnv("ADMIN_FIDS", "")); err != nil {
		return nil, fmt.Errorf("ADMIN_FIDS: %w", err)
	}
	if cfg.App.FrameDefaultAmount, err = strconv.ParseInt(getEnv("FRAME_DEFAULT_AMOUNT", "100"), 10, 64); err != nil {
		return nil, fmt.Errorf("FRAME_DEFAULT_AMOUNT: %w", err)
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"EXPIRE_INTERVAL", "1m", &cfg.Jobs.ExpireInterval},
		{"LEADERBOARD_INTERVAL", "5m", &cfg.Jobs.LeaderboardInterval},
		{"CLEANUP_INTERVAL", "24h", &cfg.Jobs.CleanupInterval},
		{"CLEANUP_RETENTION", "720h", &cfg.Jobs.CleanupRetention},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = v
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks for required variables
func validate(cfg *Config) error {
	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.App.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.App.FrameDefaultAmount <= 0 {
		return fmt.Errorf("FRAME_DEFAULT_AMOUNT must be positive")
	}
	return nil
}

// IsAdmin reports whether fid is listed in ADMIN_FIDS
func (c *Config) IsAdmin(fid int64) bool {
	for _, admin := range c.App.AdminFIDs {
		if admin == fid {
			return true
		}
	}
	return false
}

func parseFIDs(raw string) ([]int64, error) {
	var fids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fid, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid fid %q", part)
		}
		fids = append(fids, fid)
	}
	return fids, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
