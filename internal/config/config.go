package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"
)

const (
	BackendRelational = "relational"
	BackendDocument   = "document"
)

var ErrUnknownBackend = errors.New("unknown feedback backend")

// Config holds all configuration for the application.
type Config struct {
	AppEnv  string
	Backend string

	DBPath   string
	DBDriver string

	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	RedisAddr string
	CacheTTL  time.Duration

	GRPCPort              int
	GRPCReflectionEnabled bool
	HTTPPort              int

	PollInterval    time.Duration
	SubmitRateLimit float64
	SubmitRateBurst int
	CORSOrigins     []string

	StoreName string
	Timezone  string
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	return &Config{
		AppEnv:                getEnv("APP_ENV", "development"),
		Backend:               strings.ToLower(getEnv("FEEDBACK_BACKEND", BackendRelational)),
		DBPath:                getEnv("DB_PATH", "./data/feedback.db"),
		DBDriver:              getEnv("DB_DRIVER", "sqlite3"),
		MongoURI:              getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:         getEnv("MONGO_DATABASE", "kiosk"),
		MongoCollection:       getEnv("MONGO_COLLECTION", "feedback"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		CacheTTL:              getDuration("CACHE_TTL", 10*time.Minute),
		GRPCPort:              getInt("GRPC_PORT", 50051),
		GRPCReflectionEnabled: getBool("GRPC_REFLECTION_ENABLED", false),
		HTTPPort:              getInt("HTTP_PORT", 8080),
		PollInterval:          getDuration("POLL_INTERVAL", 5*time.Second),
		SubmitRateLimit:       getFloat("SUBMIT_RATE_LIMIT", 1),
		SubmitRateBurst:       getInt("SUBMIT_RATE_BURST", 5),
		CORSOrigins:           getList("CORS_ORIGINS"),
		StoreName:             getEnv("STORE_NAME", "Mercado Silveira"),
		Timezone:              getEnv("TIMEZONE", "America/Sao_Paulo"),
	}
}

// Validate rejects settings the application cannot start with.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendRelational:
		if c.DBDriver != "sqlite3" && c.DBDriver != "postgres" {
			return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
		}
	case BackendDocument:
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required for the document backend")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone, used to bucket records into months.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// NewLogger creates a new Zap logger based on the config.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.AppEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

// getList splits a comma separated value, dropping blanks.
func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
