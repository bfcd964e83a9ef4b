package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Feed     FeedConfig
	Priority PriorityConfig
	Worker   WorkerConfig
	Query    QueryConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// RedisConfig is optional: with an empty Addr the per-client submission
// limiter is disabled and only the global limiter applies.
type RedisConfig struct {
	Addr     string
	Password string
	// SubmitLimit is the number of report submissions allowed per client
	// per SubmitWindow.
	SubmitLimit  int
	SubmitWindow time.Duration
}

type FeedConfig struct {
	URL      string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// PriorityConfig configures the zero-shot report priority classifier.
// An empty Token disables classification; reports then default to
// medium priority.
type PriorityConfig struct {
	Token   string
	URL     string
	Timeout time.Duration
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

type QueryConfig struct {
	// Default radii per call site, in kilometers.
	DashboardRadiusKm float64
	RescueRadiusKm    float64
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "localhost"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGODB_DB", "jaagratha"),
			Timeout:  getEnvDuration("MONGODB_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Addr:         getEnv("REDIS_ADDRESS", ""),
			Password:     getEnv("REDIS_PASSWORD", ""),
			SubmitLimit:  getEnvInt("REPORT_SUBMIT_LIMIT", 10),
			SubmitWindow: getEnvDuration("REPORT_SUBMIT_WINDOW", time.Hour),
		},
		Feed: FeedConfig{
			URL:      getEnv("EONET_URL", "https://eonet.gsfc.nasa.gov/api/v2.1/events?status=open"),
			Timeout:  getEnvDuration("EONET_TIMEOUT", 15*time.Second),
			CacheTTL: getEnvDuration("EONET_CACHE_TTL", time.Minute),
		},
		Priority: PriorityConfig{
			Token:   getEnv("HF_API_TOKEN", ""),
			URL:     getEnv("HF_API_URL", "https://api-inference.huggingface.co/models/facebook/bart-large-mnli"),
			Timeout: getEnvDuration("HF_TIMEOUT", 10*time.Second),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 20),
		},
		Query: QueryConfig{
			DashboardRadiusKm: getEnvFloat("DASHBOARD_RADIUS_KM", 150),
			RescueRadiusKm:    getEnvFloat("RESCUE_RADIUS_KM", 250),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Mongo.URI == "" {
		return fmt.Errorf("MONGODB_URI must not be empty")
	}
	if c.Feed.Timeout < time.Second {
		return fmt.Errorf("EONET timeout must be at least 1 second")
	}
	if c.Query.DashboardRadiusKm <= 0 || c.Query.RescueRadiusKm <= 0 {
		return fmt.Errorf("default radii must be positive")
	}
	if c.Worker.Count < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
