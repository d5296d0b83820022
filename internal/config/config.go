package config

import (
	"claimed-world/internal/repository"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DriverMemory keeps the ledger in process memory
const DriverMemory = "memory"

// Development secrets used when nothing is configured
const (
	DevWebhookSecret = "dev-webhook-secret"
	DevIntentSecret  = "dev-intent-secret"
)

// Config holds all runtime settings of the auction server
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	NATS       NATSConfig       `yaml:"nats"`
	Payment    PaymentConfig    `yaml:"payment"`
	Settlement SettlementConfig `yaml:"settlement"`
	Log        LogConfig        `yaml:"log"`
	SeedFile   string           `yaml:"seed_file"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// RedisConfig enables the cross-instance change feed when Addr is set
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// NATSConfig enables event archival to JetStream when URL is set
type NATSConfig struct {
	URL string `yaml:"url"`
}

type PaymentConfig struct {
	BaseURL          string        `yaml:"base_url"`
	Currency         string        `yaml:"currency"`
	WebhookSecret    string        `yaml:"webhook_secret"`
	WebhookTolerance time.Duration `yaml:"webhook_tolerance"`
	IntentSecret     string        `yaml:"intent_secret"`
	IntentTTL        time.Duration `yaml:"intent_ttl"`
	VerifyAmount     bool          `yaml:"verify_amount"`
}

// SettlementConfig bounds retries of transient storage failures and change event publishing
type SettlementConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	BaseDelay      time.Duration `yaml:"base_delay"`
	MaxDelay       time.Duration `yaml:"max_delay"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used without a config file: in-memory ledger on :8080
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{Driver: DriverMemory},
		Payment: PaymentConfig{
			BaseURL:          "http://localhost:8080",
			Currency:         "eur",
			WebhookSecret:    DevWebhookSecret,
			WebhookTolerance: 5 * time.Minute,
			IntentSecret:     DevIntentSecret,
			IntentTTL:        30 * time.Minute,
		},
		Settlement: SettlementConfig{
			MaxAttempts:    5,
			BaseDelay:      50 * time.Millisecond,
			MaxDelay:       2 * time.Second,
			PublishTimeout: 2 * time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path over the defaults, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"PORT":            &c.Server.Port,
		"DATABASE_DRIVER": &c.Database.Driver,
		"DATABASE_DSN":    &c.Database.DSN,
		"REDIS_ADDR":      &c.Redis.Addr,
		"REDIS_PASSWORD":  &c.Redis.Password,
		"NATS_URL":        &c.NATS.URL,
		"PAYMENT_URL":     &c.Payment.BaseURL,
		"WEBHOOK_SECRET":  &c.Payment.WebhookSecret,
		"INTENT_SECRET":   &c.Payment.IntentSecret,
		"LOG_LEVEL":       &c.Log.Level,
		"SEED_FILE":       &c.SeedFile,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	if v, ok := lookup("REDIS_DB"); ok {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: REDIS_DB: %w", err)
		}
		c.Redis.DB = db
	}
	if v, ok := lookup("VERIFY_PAYMENT_AMOUNT"); ok {
		verify, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: VERIFY_PAYMENT_AMOUNT: %w", err)
		}
		c.Payment.VerifyAmount = verify
	}
	return nil
}

// Validate rejects settings the server cannot start with
func (c Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port must be set"))
	}
	switch c.Database.Driver {
	case DriverMemory:
	case repository.DriverPostgres, repository.DriverSQLite:
		if c.Database.DSN == "" {
			errs = append(errs, fmt.Errorf("database.dsn must be set for driver %s", c.Database.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver %q", c.Database.Driver))
	}
	if c.Payment.WebhookSecret == "" {
		errs = append(errs, errors.New("payment.webhook_secret must be set"))
	}
	if c.Payment.IntentSecret == "" {
		errs = append(errs, errors.New("payment.intent_secret must be set"))
	}
	if c.Payment.IntentTTL <= 0 {
		errs = append(errs, errors.New("payment.intent_ttl must be positive"))
	}
	if c.Settlement.MaxAttempts < 1 {
		errs = append(errs, errors.New("settlement.max_attempts must be at least 1"))
	}
	if c.Settlement.PublishTimeout <= 0 {
		errs = append(errs, errors.New("settlement.publish_timeout must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Addr returns the listen address for gin
func (c Config) Addr() string {
	if strings.HasPrefix(c.Server.Port, ":") {
		return c.Server.Port
	}
	return ":" + c.Server.Port
}

// UsesDevSecrets reports whether the built-in development secrets are still in place
func (c Config) UsesDevSecrets() bool {
	return c.Payment.WebhookSecret == DevWebhookSecret || c.Payment.IntentSecret == DevIntentSecret
}
