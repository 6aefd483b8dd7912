package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	PlatformSourceAPI      = "api"
	PlatformSourcePostgres = "postgres"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Platform    PlatformConfig
	Transport   TransportConfig
	Chat        ChatConfig
	Log         LogConfig
}

type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxConnections  int
	MaxIdleTime     time.Duration
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	AccessSecret string
}

// PlatformConfig points at the job-platform data sources (mentorships, profiles, history).
type PlatformConfig struct {
	Source         string
	BaseURL        string
	RequestTimeout time.Duration
}

// TransportConfig tunes the live websocket connection to the message-store service.
type TransportConfig struct {
	URL          string
	DialTimeout  time.Duration
	WriteWait    time.Duration
	PongWait     time.Duration
	DialRetries  int
	RetryBase    time.Duration
	RetryMaxWait time.Duration
}

type ChatConfig struct {
	HistoryConcurrency int
	ProfileCacheTTL    time.Duration
	SendLimit          int
	SendWindow         time.Duration
	MaxMessageLength   int
	NoticeBacklog      int
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			AllowedOrigins:  getEnvAsList("SERVER_ALLOWED_ORIGINS", nil),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DATABASE_DSN", ""),
			MaxConnections:  getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleTime:     getEnvAsDuration("DATABASE_MAX_IDLE_TIME", 5*time.Minute),
			ConnMaxLifetime: getEnvAsDuration("DATABASE_CONN_MAX_LIFETIME", 1*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			AccessSecret: getEnv("JWT_ACCESS_SECRET", ""),
		},
		Platform: PlatformConfig{
			Source:         strings.ToLower(getEnv("PLATFORM_SOURCE", PlatformSourceAPI)),
			BaseURL:        strings.TrimRight(getEnv("PLATFORM_BASE_URL", "http://localhost:8000"), "/"),
			RequestTimeout: getEnvAsDuration("PLATFORM_REQUEST_TIMEOUT", 10*time.Second),
		},
		Transport: TransportConfig{
			URL:          strings.TrimRight(getEnv("TRANSPORT_URL", "ws://localhost:8000"), "/"),
			DialTimeout:  getEnvAsDuration("TRANSPORT_DIAL_TIMEOUT", 10*time.Second),
			WriteWait:    getEnvAsDuration("TRANSPORT_WRITE_WAIT", 10*time.Second),
			PongWait:     getEnvAsDuration("TRANSPORT_PONG_WAIT", 60*time.Second),
			DialRetries:  getEnvAsInt("TRANSPORT_DIAL_RETRIES", 0),
			RetryBase:    getEnvAsDuration("TRANSPORT_RETRY_BASE", 1*time.Second),
			RetryMaxWait: getEnvAsDuration("TRANSPORT_RETRY_MAX_WAIT", 15*time.Second),
		},
		Chat: ChatConfig{
			HistoryConcurrency: getEnvAsInt("CHAT_HISTORY_CONCURRENCY", 8),
			ProfileCacheTTL:    getEnvAsDuration("PROFILE_CACHE_TTL", 10*time.Minute),
			SendLimit:          getEnvAsInt("CHAT_SEND_LIMIT", 30),
			SendWindow:         getEnvAsDuration("CHAT_SEND_WINDOW", 10*time.Second),
			MaxMessageLength:   getEnvAsInt("CHAT_MAX_MESSAGE_LENGTH", 4000),
			NoticeBacklog:      getEnvAsInt("CHAT_NOTICE_BACKLOG", 20),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET must be set")
	}
	switch c.Platform.Source {
	case PlatformSourceAPI:
		if c.Platform.BaseURL == "" {
			return fmt.Errorf("PLATFORM_BASE_URL must be set")
		}
	case PlatformSourcePostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("DATABASE_DSN must be set when PLATFORM_SOURCE=postgres")
		}
	default:
		return fmt.Errorf("unknown PLATFORM_SOURCE %q", c.Platform.Source)
	}
	if c.Environment == "production" {
		for _, origin := range c.Server.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf("SERVER_ALLOWED_ORIGINS must list explicit origins in production")
			}
		}
	}
	if c.Transport.URL == "" {
		return fmt.Errorf("TRANSPORT_URL must be set")
	}
	if c.Transport.DialRetries < 0 || c.Transport.DialRetries > 5 {
		return fmt.Errorf("TRANSPORT_DIAL_RETRIES must be between 0 and 5")
	}
	if c.Chat.HistoryConcurrency <= 0 {
		c.Chat.HistoryConcurrency = 1
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
