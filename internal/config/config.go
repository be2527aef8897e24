package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend names accepted by the *_BACKEND settings.
const (
	BackendDynamo = "dynamo"
	BackendMemory = "memory"
	BackendSNS    = "sns"
	BackendAMQP   = "amqp"
	BackendRedis  = "redis"
	BackendLog    = "log"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string

	StoreBackend       string
	NotificationsTable string

	SignalBackend string
	SNSRegion     string

	PublisherBackend string
	SNSTopicARN      string
	AMQPURL          string
	AMQPExchange     string
	AMQPRoutingKey   string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RedisStream      string

	ArchiveEnabled bool
	S3BucketName   string

	DirectoryFile string

	MQTTBroker   string // empty disables location-event ingestion
	MQTTClientID string
	MQTTTopic    string
	MQTTUsername string
	MQTTPassword string

	AllowedOrigins    []string // CORS allowed origins
	ConfirmRateLimit  float64  // requests/second per client on confirm endpoints
	ConfirmRateBurst  int
	TrustProxyHeaders bool // client IP from X-Forwarded-For/X-Real-IP; only behind a proxy that sets them
	ShutdownTimeout   time.Duration
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:  getEnv("APP_PORT", "3000"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),

		StoreBackend:       getEnv("STORE_BACKEND", BackendDynamo),
		NotificationsTable: getEnv("DYNAMO_TABLE_NOTIFICATIONS", "notifications"),

		SignalBackend: getEnv("SIGNAL_BACKEND", BackendSNS),
		SNSRegion:     getEnv("SNS_REGION", "us-east-1"),

		PublisherBackend: getEnv("PUBLISHER_BACKEND", BackendSNS),
		SNSTopicARN:      getEnv("SNS_TOPIC_ARN", ""),
		AMQPURL:          getEnv("AMQP_URL", ""),
		AMQPExchange:     getEnv("AMQP_EXCHANGE", "notifications"),
		AMQPRoutingKey:   getEnv("AMQP_ROUTING_KEY", "notifications.updated"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		RedisStream:      getEnv("REDIS_STREAM", "notifications"),

		ArchiveEnabled: getEnvBool("ARCHIVE_ENABLED", false),
		S3BucketName:   getEnv("S3_BUCKET_NAME", "notification-archive"),

		DirectoryFile: getEnv("DIRECTORY_FILE", ""),

		MQTTBroker:   getEnv("MQTT_BROKER", ""),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "bed-alerts"),
		MQTTTopic:    getEnv("MQTT_TOPIC", "locations/events"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),

		AllowedOrigins:    strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		ConfirmRateLimit:  getEnvFloat("CONFIRM_RATE_LIMIT", 5),
		ConfirmRateBurst:  getEnvInt("CONFIRM_RATE_BURST", 10),
		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),
		ShutdownTimeout:   getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// IsProduction reports whether the service runs outside local development.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Validate checks backend selections and the settings each backend requires.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreBackend {
	case BackendDynamo, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	switch c.SignalBackend {
	case BackendSNS, BackendLog:
	default:
		errs = append(errs, fmt.Errorf("unknown SIGNAL_BACKEND %q", c.SignalBackend))
	}

	switch c.PublisherBackend {
	case BackendSNS:
		if c.SNSTopicARN == "" {
			errs = append(errs, errors.New("SNS_TOPIC_ARN is required for the sns publisher"))
		}
	case BackendAMQP:
		if c.AMQPURL == "" {
			errs = append(errs, errors.New("AMQP_URL is required for the amqp publisher"))
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis publisher"))
		}
	case BackendLog:
	default:
		errs = append(errs, fmt.Errorf("unknown PUBLISHER_BACKEND %q", c.PublisherBackend))
	}

	if c.ArchiveEnabled && c.S3BucketName == "" {
		errs = append(errs, errors.New("S3_BUCKET_NAME is required when ARCHIVE_ENABLED is set"))
	}
	if c.ConfirmRateLimit <= 0 || c.ConfirmRateBurst <= 0 {
		errs = append(errs, errors.New("CONFIRM_RATE_LIMIT and CONFIRM_RATE_BURST must be positive"))
	}

	return errors.Join(errs...)
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

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
