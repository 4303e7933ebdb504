package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	AWS        AWSConfig
	Recording  RecordingConfig
	Signaling  SignalingConfig
	Summarizer SummarizerConfig
	Auth       AuthConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings. An empty Addr disables Redis
// (single-instance signaling, no background archival queue).
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AWSConfig holds AWS credentials and the recordings bucket.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	RecordingsBucket     string
	PresignExpireMinutes int
}

// RecordingConfig holds chunk ingestion settings.
type RecordingConfig struct {
	Dir             string // local directory for chunk files
	WriteTimeoutSec int    // upper bound for one chunk write + record
	// OneShotComplete marks a session completed on every chunk append
	// (reference behavior). When false, sessions stay active until the
	// explicit complete call.
	OneShotComplete bool
}

// SignalingConfig holds signal relay settings.
type SignalingConfig struct {
	// Strict rejects malformed signaling envelopes with an error event
	// instead of relaying them opaquely.
	Strict bool
}

// SummarizerConfig points at the external transcript summarization service.
// An empty URL disables summarization.
type SummarizerConfig struct {
	URL        string
	APIKey     string
	TimeoutSec int
}

// AuthConfig holds guest token settings. Required gates the upload and
// recordings routes and the signaling socket behind a valid token.
type AuthConfig struct {
	Secret      string
	ExpireHours int
	Required    bool
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "3001"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "meetscribe"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", ""),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			RecordingsBucket:     getEnv("AWS_S3_RECORDINGS_BUCKET", ""),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Recording: RecordingConfig{
			Dir:             getEnv("RECORDING_DIR", "recordings"),
			WriteTimeoutSec: getEnvInt("RECORDING_WRITE_TIMEOUT_SEC", 30),
			OneShotComplete: getEnvBool("RECORDING_ONE_SHOT_COMPLETE", true),
		},
		Signaling: SignalingConfig{
			Strict: getEnvBool("SIGNALING_STRICT", true),
		},
		Summarizer: SummarizerConfig{
			URL:        getEnv("SUMMARIZER_URL", ""),
			APIKey:     getEnv("SUMMARIZER_API_KEY", ""),
			TimeoutSec: getEnvInt("SUMMARIZER_TIMEOUT_SEC", 30),
		},
		Auth: AuthConfig{
			Secret:      getEnv("AUTH_JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("AUTH_JWT_EXPIRE_HOURS", 24),
			Required:    getEnvBool("AUTH_REQUIRED", false),
		},
	}
	return cfg, nil
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

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
