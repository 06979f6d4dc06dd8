package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Supabase
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseJWTSecret     string
	SupabaseStorageBucket string

	// Database
	DatabaseURL string

	// Server
	Port        string
	Environment string
	BaseURL     string
	CORSOrigins []string

	// Logging
	LogLevel  string
	LogFormat string

	// Autosave
	FrameAutosaveDelay   time.Duration
	ProjectAutosaveDelay time.Duration
	SaveTimeout          time.Duration

	// Collaborator lookups per user per minute
	CollaboratorRateLimit int
	CollaboratorRateBurst int
}

var defaults = map[string]interface{}{
	"SUPABASE_STORAGE_BUCKET": "animation-thumbnails",
	"PORT":                    "8080",
	"ENVIRONMENT":             "development",
	"BASE_URL":                "http://localhost:8080",
	"CORS_ORIGINS":            "*",
	"LOG_LEVEL":               "INFO",
	"LOG_FORMAT":              "text",
	"FRAME_AUTOSAVE_DELAY":    "2500ms",
	"PROJECT_AUTOSAVE_DELAY":  "10s",
	"SAVE_TIMEOUT":            "15s",
	"COLLABORATOR_RATE_LIMIT": 10,
	"COLLABORATOR_RATE_BURST": 5,
}

// Load reads configuration from the environment, with an optional .env file
// in the working directory underneath it.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil && !isMissingFile(err) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	v.AutomaticEnv()

	cfg := &Config{
		SupabaseURL:           strings.TrimSuffix(v.GetString("SUPABASE_URL"), "/"),
		SupabaseServiceKey:    v.GetString("SUPABASE_SERVICE_KEY"),
		SupabaseJWTSecret:     v.GetString("SUPABASE_JWT_SECRET"),
		SupabaseStorageBucket: v.GetString("SUPABASE_STORAGE_BUCKET"),

		DatabaseURL: v.GetString("DATABASE_URL"),

		Port:        v.GetString("PORT"),
		Environment: v.GetString("ENVIRONMENT"),
		BaseURL:     v.GetString("BASE_URL"),
		CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),

		FrameAutosaveDelay:   v.GetDuration("FRAME_AUTOSAVE_DELAY"),
		ProjectAutosaveDelay: v.GetDuration("PROJECT_AUTOSAVE_DELAY"),
		SaveTimeout:          v.GetDuration("SAVE_TIMEOUT"),

		CollaboratorRateLimit: v.GetInt("COLLABORATOR_RATE_LIMIT"),
		CollaboratorRateBurst: v.GetInt("COLLABORATOR_RATE_BURST"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.SupabaseJWTSecret == "" {
		return fmt.Errorf("SUPABASE_JWT_SECRET is required")
	}
	if c.SupabaseURL != "" && c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_KEY is required when SUPABASE_URL is set")
	}
	if c.FrameAutosaveDelay <= 0 {
		return fmt.Errorf("FRAME_AUTOSAVE_DELAY must be positive")
	}
	if c.ProjectAutosaveDelay <= 0 {
		return fmt.Errorf("PROJECT_AUTOSAVE_DELAY must be positive")
	}
	if c.CollaboratorRateLimit <= 0 {
		return fmt.Errorf("COLLABORATOR_RATE_LIMIT must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// isMissingFile reports whether err only means there is no .env to read.
func isMissingFile(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
