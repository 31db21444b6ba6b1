package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env         string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port        string `env:"PORT" envDefault:"8080" validate:"required"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	ErpBaseURL  string `env:"ERP_BASE_URL,required"  validate:"required,url"`
	ErpUsername string `env:"ERP_USERNAME,required"  validate:"required"`
	ErpPassword string `env:"ERP_PASSWORD,required"  validate:"required"`

	TickIntervalSec         int `env:"TICK_INTERVAL_SEC" envDefault:"10" validate:"min=1,max=60"`
	MaxConcurrentExecutions int `env:"MAX_CONCURRENT_EXECUTIONS" envDefault:"20" validate:"min=1,max=200"`
	RequestTimeoutSec       int `env:"REQUEST_TIMEOUT_SEC" envDefault:"30" validate:"min=1,max=300"`
	TokenRefreshIntervalSec int `env:"TOKEN_REFRESH_INTERVAL_SEC" envDefault:"60" validate:"min=10,max=3600"`

	JWTSecret            string `env:"JWT_SECRET,required"             validate:"required,min=32"`
	WebhookEncryptionKey string `env:"WEBHOOK_ENCRYPTION_KEY,required" validate:"required,len=64,hexadecimal"`
	WebhookSignatureKey  string `env:"WEBHOOK_SIGNATURE_KEY,required"  validate:"required,min=32"`

	ProductSyncPath string `env:"PRODUCT_SYNC_CONFIG" envDefault:"configs/product_sync.json"`
	OrderSyncPath   string `env:"ORDER_SYNC_CONFIG"   envDefault:"configs/order_sync.json"`

	ResendAPIKey          string `env:"RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	AlertFrom             string `env:"ALERT_FROM"     validate:"required_if=Env production,required_if=Env staging"`
	AlertTo               string `env:"ALERT_TO"       validate:"required_if=Env production,required_if=Env staging"`
	AlertFailureThreshold int    `env:"ALERT_FAILURE_THRESHOLD" envDefault:"5" validate:"min=0,max=100"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
