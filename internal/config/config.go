// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"recruitment-billing/internal/domain/model"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	JWTSecret       string        `yaml:"jwt_secret"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// BillingConfig holds the dunning policy and lifecycle schedules. Grace days
// and retry bounds are policy knobs, deliberately not constants in code.
type BillingConfig struct {
	GracePeriodDays   int    `yaml:"grace_period_days"`
	MaxPaymentRetries int    `yaml:"max_payment_retries"`
	DunningCron       string `yaml:"dunning_cron"`
	// Pending payments older than this are failed by the reconciler.
	PendingTimeout    time.Duration `yaml:"pending_timeout"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
}

// Policy converts the yaml knobs into the domain policy value.
func (b BillingConfig) Policy() model.DunningPolicy {
	return model.DunningPolicy{
		GracePeriod: time.Duration(b.GracePeriodDays) * 24 * time.Hour,
		MaxRetries:  b.MaxPaymentRetries,
	}
}

type VNPayConfig struct {
	TerminalCode string `yaml:"terminal_code"`
	HashSecret   string `yaml:"hash_secret"`
	PayURL       string `yaml:"pay_url"`
	ReturnURL    string `yaml:"return_url"`
}

type StripeConfig struct {
	SecretKey     string        `yaml:"secret_key"`
	WebhookSecret string        `yaml:"webhook_secret"`
	// Tolerance for the signed timestamp in webhook signatures.
	SignatureTolerance time.Duration `yaml:"signature_tolerance"`
}

type GatewayConfig struct {
	VNPay  VNPayConfig  `yaml:"vnpay"`
	Stripe StripeConfig `yaml:"stripe"`
	// Refund transport retries.
	RefundRetries int           `yaml:"refund_retries"`
	RefundBackoff time.Duration `yaml:"refund_backoff"`
}

// NotifyConfig points at the platform notification service. An empty
// endpoint downgrades delivery to structured log output, which is what dev
// environments run with.
type NotifyConfig struct {
	Endpoint  string        `yaml:"endpoint"`
	AuthToken string        `yaml:"auth_token"`
	Timeout   time.Duration `yaml:"timeout"`
}

type WorkerConfig struct {
	Size        int           `yaml:"size"`
	QueueDepth  int           `yaml:"queue_depth"`
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Billing  BillingConfig  `yaml:"billing"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Notify   NotifyConfig   `yaml:"notify"`
	Worker   WorkerConfig   `yaml:"worker"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Server.JWTSecret == "" {
		return nil, errors.New("server.jwt_secret is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 15 * time.Second
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = time.Hour
	}
	if cfg.Billing.GracePeriodDays <= 0 {
		cfg.Billing.GracePeriodDays = 7
	}
	if cfg.Billing.MaxPaymentRetries <= 0 {
		cfg.Billing.MaxPaymentRetries = 3
	}
	if cfg.Billing.DunningCron == "" {
		cfg.Billing.DunningCron = "@hourly"
	}
	if cfg.Billing.PendingTimeout <= 0 {
		cfg.Billing.PendingTimeout = 30 * time.Minute
	}
	if cfg.Billing.ReconcileInterval <= 0 {
		cfg.Billing.ReconcileInterval = 10 * time.Minute
	}
	if cfg.Gateway.RefundRetries <= 0 {
		cfg.Gateway.RefundRetries = 3
	}
	if cfg.Gateway.RefundBackoff <= 0 {
		cfg.Gateway.RefundBackoff = time.Second
	}
	if cfg.Gateway.Stripe.SignatureTolerance <= 0 {
		cfg.Gateway.Stripe.SignatureTolerance = 5 * time.Minute
	}
	if cfg.Notify.Timeout <= 0 {
		cfg.Notify.Timeout = 10 * time.Second
	}
	if cfg.Worker.Size <= 0 {
		cfg.Worker.Size = 4
	}
	if cfg.Worker.QueueDepth <= 0 {
		cfg.Worker.QueueDepth = 256
	}
	if cfg.Worker.MaxAttempts <= 0 {
		cfg.Worker.MaxAttempts = 3
	}
	if cfg.Worker.Backoff <= 0 {
		cfg.Worker.Backoff = 2 * time.Second
	}
}
