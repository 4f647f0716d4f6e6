package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	ErrEmptyEnvironmentVariable = errors.New("empty environment variable")
	ErrMissingVAPIDKey          = errors.New("one of VAPID_PRIVATE_KEY, VAPID_KEY_FILE or VAPID_KMS_KEY_NAME must be set")
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Auth     AuthConfig
	Push     PushConfig
	Events   EventsConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Server   ServerConfig
	Log      LogConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Username string
	Password string
	Name     string
}

// AuthConfig holds dashboard authentication settings. An empty secret disables auth.
type AuthConfig struct {
	JWTSecret string
}

// PushConfig holds Web Push transport and payload settings
type PushConfig struct {
	VAPIDSubject    string
	VAPIDPrivateKey string
	VAPIDKeyFile    string
	VAPIDKMSKeyName string

	PublicBaseURL  string
	SendTimeout    time.Duration
	MaxConcurrency int
	TTL            int
	DefaultIcon    string
	DefaultBadge   string
}

// EventsConfig holds live dashboard stream settings
type EventsConfig struct {
	HeartbeatInterval time.Duration
	BufferSize        int
}

// RedisConfig holds Redis settings used by the event bridge and the job queue
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// KafkaConfig holds integration event streaming configuration
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int
	// RateLimitRPM caps public register/track calls per client IP per minute. 0 disables.
	RateLimitRPM int
}

// LogConfig holds optional file logging settings
type LogConfig struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Load reads and validates all required environment variables
func Load() (*Config, error) {
	// Load env.local in non-production environments
	if !IsProduction() {
		if err := godotenv.Load("env.local"); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env.local: %w", err)
		}
	}

	cfg := &Config{}

	var err error
	if cfg.Database.Host, err = requireEnv("DB_HOST"); err != nil {
		return nil, err
	}
	if cfg.Database.Username, err = requireEnv("DB_USERNAME"); err != nil {
		return nil, err
	}
	if cfg.Database.Password, err = requireEnv("DB_PASSWORD"); err != nil {
		return nil, err
	}
	if cfg.Database.Name, err = requireEnv("DB_NAME"); err != nil {
		return nil, err
	}

	cfg.Auth.JWTSecret = os.Getenv("JWT_SECRET")

	if err := loadPush(&cfg.Push); err != nil {
		return nil, err
	}

	cfg.Events.HeartbeatInterval, err = time.ParseDuration(getEnvWithDefault("EVENTS_HEARTBEAT_INTERVAL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse EVENTS_HEARTBEAT_INTERVAL: %w", err)
	}
	if cfg.Events.BufferSize, err = getIntWithDefault("EVENTS_BUFFER", 32); err != nil {
		return nil, err
	}

	// Redis is optional
	cfg.Redis.Host = os.Getenv("REDIS_HOST")
	cfg.Redis.Enabled = cfg.Redis.Host != ""
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if cfg.Redis.Port, err = getIntWithDefault("REDIS_PORT", 6379); err != nil {
		return nil, err
	}
	if cfg.Redis.DB, err = getIntWithDefault("REDIS_DB", 0); err != nil {
		return nil, err
	}

	// Kafka is optional
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Enabled = true
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	cfg.Kafka.Topic = getEnvWithDefault("KAFKA_TOPIC", "push-events")

	serverPort, err := requireEnv("SERVER_PORT")
	if err != nil {
		return nil, err
	}
	cfg.Server.Port, err = strconv.Atoi(serverPort)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SERVER_PORT: %w", err)
	}
	if cfg.Server.RateLimitRPM, err = getIntWithDefault("RATE_LIMIT_RPM", 60); err != nil {
		return nil, err
	}

	cfg.Log.File = os.Getenv("LOG_FILE")
	if cfg.Log.MaxSizeMB, err = getIntWithDefault("LOG_MAX_SIZE_MB", 100); err != nil {
		return nil, err
	}
	if cfg.Log.MaxBackups, err = getIntWithDefault("LOG_MAX_BACKUPS", 5); err != nil {
		return nil, err
	}
	if cfg.Log.MaxAgeDays, err = getIntWithDefault("LOG_MAX_AGE_DAYS", 28); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadPush(p *PushConfig) error {
	var err error
	if p.VAPIDSubject, err = requireEnv("VAPID_SUBJECT"); err != nil {
		return err
	}
	p.VAPIDPrivateKey = os.Getenv("VAPID_PRIVATE_KEY")
	p.VAPIDKeyFile = os.Getenv("VAPID_KEY_FILE")
	p.VAPIDKMSKeyName = os.Getenv("VAPID_KMS_KEY_NAME")
	if p.VAPIDPrivateKey == "" && p.VAPIDKeyFile == "" && p.VAPIDKMSKeyName == "" {
		return ErrMissingVAPIDKey
	}

	p.PublicBaseURL = strings.TrimRight(getEnvWithDefault("PUBLIC_BASE_URL", "http://localhost:8080"), "/")
	p.SendTimeout, err = time.ParseDuration(getEnvWithDefault("PUSH_SEND_TIMEOUT", "10s"))
	if err != nil {
		return fmt.Errorf("failed to parse PUSH_SEND_TIMEOUT: %w", err)
	}
	if p.MaxConcurrency, err = getIntWithDefault("PUSH_MAX_CONCURRENCY", 50); err != nil {
		return err
	}
	if p.TTL, err = getIntWithDefault("PUSH_TTL", 86400); err != nil {
		return err
	}
	p.DefaultIcon = getEnvWithDefault("DEFAULT_ICON", "/icons/notification-icon.png")
	p.DefaultBadge = getEnvWithDefault("DEFAULT_BADGE", "/icons/notification-badge.png")
	return nil
}

// IsProduction reports whether GO_ENV is production
func IsProduction() bool {
	return os.Getenv("GO_ENV") == "production"
}

// ConnectionString returns a PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s",
		c.Username, c.Password, c.Host, c.Name)
}

// Addr returns host:port for the Redis server
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// requireEnv retrieves an environment variable or returns an error if empty
func requireEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s is not set: %w", key, ErrEmptyEnvironmentVariable)
	}
	return value, nil
}

// getEnvWithDefault retrieves an environment variable or returns a default value
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntWithDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return n, nil
}
