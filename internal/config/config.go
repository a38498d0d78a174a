// Package config loads the service configuration.
//
// Values come from three layers, later ones winning: the built-in defaults,
// an optional YAML file, and the environment. A .env file is read into the
// environment first without overriding variables that are already set.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/mmynk/payup/internal/apperr"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Mail     MailConfig     `yaml:"mail"`
	Payment  PaymentConfig  `yaml:"payment"`
	Notify   NotifyConfig   `yaml:"notify"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
	// BaseURL is the public address put into mailed links.
	BaseURL string `yaml:"base_url" validate:"required,http_url"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"oneof=sqlite postgres"`
	Path   string `yaml:"path" validate:"required_if=Driver sqlite"`
	URL    string `yaml:"url" validate:"required_if=Driver postgres"`
}

type AuthConfig struct {
	Secret     string        `yaml:"secret" validate:"required,min=16"`
	SessionTTL time.Duration `yaml:"session_ttl" validate:"gt=0"`
	LinkTTL    time.Duration `yaml:"link_ttl" validate:"gt=0"`
	BcryptCost int           `yaml:"bcrypt_cost" validate:"gte=4,lte=31"`
}

// MailConfig selects SMTP delivery when Host is set, log-only delivery otherwise.
type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" validate:"gte=0,lte=65535"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from" validate:"required_with=Host"`
}

// PaymentConfig selects the hosted provider. An empty URL uses the in-memory fake.
type PaymentConfig struct {
	ProviderURL string        `yaml:"provider_url" validate:"omitempty,http_url"`
	Currency    string        `yaml:"currency" validate:"len=3"`
	Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
}

type NotifyConfig struct {
	Cooldown      time.Duration `yaml:"cooldown" validate:"gte=0"`
	Workers       int           `yaml:"workers" validate:"gte=1"`
	RatePerSecond float64       `yaml:"rate_per_second" validate:"gte=0"`
	// SweepInterval runs the dispatcher from serve. Zero disables it.
	SweepInterval time.Duration `yaml:"sweep_interval" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:    ":8080",
			BaseURL: "http://localhost:8080",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "./data/payup.db",
		},
		Auth: AuthConfig{
			SessionTTL: 24 * time.Hour,
			LinkTTL:    7 * 24 * time.Hour,
			BcryptCost: 12,
		},
		Mail: MailConfig{
			Port: 587,
		},
		Payment: PaymentConfig{
			Currency: "EUR",
			Timeout:  10 * time.Second,
		},
		Notify: NotifyConfig{
			Cooldown:      24 * time.Hour,
			Workers:       4,
			RatePerSecond: 5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from configPath (optional) and envPath
// (optional, ignored when missing) plus the process environment.
func Load(configPath, envPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to load env file: %w", err)
			}
			slog.Debug("No env file found, using process environment", "path", envPath)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := apperr.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Addr, "PAYUP_ADDR")
	setString(&c.Server.BaseURL, "PAYUP_BASE_URL")
	setString(&c.Database.Driver, "PAYUP_DB_DRIVER")
	setString(&c.Database.Path, "PAYUP_DB_PATH")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Auth.Secret, "PAYUP_SECRET")
	setString(&c.Mail.Host, "SMTP_HOST")
	setString(&c.Mail.Username, "SMTP_USERNAME")
	setString(&c.Mail.Password, "SMTP_PASSWORD")
	setString(&c.Mail.From, "SMTP_FROM")
	setString(&c.Payment.ProviderURL, "PAYUP_PROVIDER_URL")
	setString(&c.Payment.Currency, "PAYUP_CURRENCY")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")

	return errors.Join(
		setInt(&c.Mail.Port, "SMTP_PORT"),
		setInt(&c.Notify.Workers, "PAYUP_NOTIFY_WORKERS"),
		setFloat(&c.Notify.RatePerSecond, "PAYUP_NOTIFY_RATE"),
		setDuration(&c.Notify.Cooldown, "PAYUP_NOTIFY_COOLDOWN"),
		setDuration(&c.Notify.SweepInterval, "PAYUP_SWEEP_INTERVAL"),
		setDuration(&c.Auth.SessionTTL, "PAYUP_SESSION_TTL"),
		setDuration(&c.Auth.LinkTTL, "PAYUP_LINK_TTL"),
	)
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
