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
	defaultHTTPAddr         = ":8080"
	defaultDatabaseURL      = "staybook.db"
	defaultJWTSecret        = "change-me-jwt-secret"
	defaultJWTTTL           = "24h"
	defaultCacheTTL         = "5m"
	defaultUploadsDir       = "./uploads"
	defaultMonoBaseURL      = "https://api.monobank.ua"
	defaultAcquiringTimeout = "30s"
	defaultWebhookSecret    = "change-me-webhook-secret"
	defaultKafkaTopicPrefix = "staybook"
	defaultRating           = "10"
	defaultS3Bucket         = "staybook-images"
)

type Config struct {
	AppEnv   string
	HTTPAddr string

	DatabaseURL string

	JWTSecret string
	JWTTTL    time.Duration

	RedisURL string
	CacheTTL time.Duration

	S3 S3Config

	UploadsDir string

	Mono MonoConfig

	PaymentWebhookSecret string

	KafkaBrokers     []string
	KafkaTopicPrefix string

	DefaultRating float64

	CORSAllowedOrigins []string
}

type S3Config struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
	PublicEndpoint string
	Region         string
}

// Enabled reports whether object storage should be used instead of local disk.
func (c S3Config) Enabled() bool {
	return c.Endpoint != ""
}

type MonoConfig struct {
	BaseURL     string
	Token       string
	RedirectURL string
	WebhookURL  string
	Timeout     time.Duration
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.UploadsDir = strings.TrimSpace(getEnv("UPLOADS_DIR", defaultUploadsDir))
	cfg.PaymentWebhookSecret = strings.TrimSpace(getEnv("PAYMENT_WEBHOOK_SECRET", defaultWebhookSecret))
	cfg.KafkaBrokers = splitList(os.Getenv("KAFKA_BROKERS"))
	cfg.KafkaTopicPrefix = strings.TrimSpace(getEnv("KAFKA_TOPIC_PREFIX", defaultKafkaTopicPrefix))
	cfg.CORSAllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))

	cfg.S3 = S3Config{
		Endpoint:       strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
		AccessKey:      strings.TrimSpace(os.Getenv("S3_ACCESS_KEY")),
		SecretKey:      strings.TrimSpace(os.Getenv("S3_SECRET_KEY")),
		Bucket:         strings.TrimSpace(getEnv("S3_BUCKET", defaultS3Bucket)),
		UseSSL:         parseBoolEnv("S3_USE_SSL", "false"),
		PublicEndpoint: strings.TrimSpace(os.Getenv("S3_PUBLIC_ENDPOINT")),
		Region:         strings.TrimSpace(os.Getenv("S3_REGION")),
	}

	cfg.Mono = MonoConfig{
		BaseURL:     strings.TrimRight(strings.TrimSpace(getEnv("MONO_BASE_URL", defaultMonoBaseURL)), "/"),
		Token:       strings.TrimSpace(os.Getenv("MONO_TOKEN")),
		RedirectURL: strings.TrimSpace(os.Getenv("MONO_REDIRECT_URL")),
		WebhookURL:  strings.TrimSpace(os.Getenv("MONO_WEBHOOK_URL")),
	}

	var err error
	cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL)
	if err != nil {
		return nil, err
	}
	cfg.CacheTTL, err = parseDurationEnv("CACHE_TTL", defaultCacheTTL)
	if err != nil {
		return nil, err
	}
	cfg.Mono.Timeout, err = parseDurationEnv("ACQUIRING_TIMEOUT", defaultAcquiringTimeout)
	if err != nil {
		return nil, err
	}
	cfg.DefaultRating, err = parseFloatEnv("DEFAULT_RATING", defaultRating)
	if err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProdLike reports whether the config targets a production deployment.
func (c *Config) IsProdLike() bool {
	return isProdLike(c.AppEnv)
}

func validateConfig(cfg *Config) error {
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be > 0")
	}
	if cfg.Mono.Timeout <= 0 {
		return fmt.Errorf("ACQUIRING_TIMEOUT must be > 0")
	}
	if cfg.DefaultRating < 0 || cfg.DefaultRating > 10 {
		return fmt.Errorf("DEFAULT_RATING must be within [0, 10]")
	}
	if cfg.S3.Enabled() && (cfg.S3.AccessKey == "" || cfg.S3.SecretKey == "") {
		return fmt.Errorf("S3_ACCESS_KEY and S3_SECRET_KEY are required when S3_ENDPOINT is set")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.PaymentWebhookSecret, defaultWebhookSecret) {
			return fmt.Errorf("in prod/release PAYMENT_WEBHOOK_SECRET must be set and not default")
		}
		if !strings.HasPrefix(cfg.DatabaseURL, "postgres") {
			return fmt.Errorf("in prod/release DATABASE_URL must point to PostgreSQL")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseFloatEnv(name, fallback string) (float64, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return f, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
