package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port               string        `yaml:"port"`
	DatabaseURL        string        `yaml:"db_dsn"`
	StoreDriver        string        `yaml:"store_driver"`
	ClinicTimezone     string        `yaml:"clinic_timezone"`
	RedisURL           string        `yaml:"redis_url"`
	EventsChannel      string        `yaml:"events_channel"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_min"`
	RateLimitBurst     int           `yaml:"rate_limit_burst"`
	SessionTTL         time.Duration `yaml:"-"`
	SessionTTLSeconds  int           `yaml:"session_ttl_seconds"`
	ShutdownTimeout    time.Duration `yaml:"-"`
	LogLevel           string        `yaml:"log_level"`
	LogFormat          string        `yaml:"log_format"`
	OTelEndpoint       string        `yaml:"otel_endpoint"`
	OTelInsecure       bool          `yaml:"otel_insecure"`
	OTelSampleRatio    float64       `yaml:"otel_sample_ratio"`
}

func Defaults() Config {
	return Config{
		Port:               "8080",
		StoreDriver:        DriverPostgres,
		ClinicTimezone:     "UTC",
		EventsChannel:      "clinic-queue.events",
		RateLimitPerMinute: 120,
		RateLimitBurst:     30,
		SessionTTLSeconds:  8 * 60 * 60,
		LogLevel:           "info",
		LogFormat:          "json",
		OTelSampleRatio:    1,
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (CONFIG_FILE when path is empty), then the environment.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Port = readString("PORT", cfg.Port)
	cfg.DatabaseURL = readString("DB_DSN", cfg.DatabaseURL)
	cfg.StoreDriver = strings.ToLower(readString("STORE_DRIVER", cfg.StoreDriver))
	cfg.ClinicTimezone = readString("CLINIC_TIMEZONE", cfg.ClinicTimezone)
	cfg.RedisURL = readString("REDIS_URL", cfg.RedisURL)
	cfg.EventsChannel = readString("EVENTS_CHANNEL", cfg.EventsChannel)
	cfg.RateLimitPerMinute = readInt("RATE_LIMIT_PER_MIN", cfg.RateLimitPerMinute)
	cfg.RateLimitBurst = readInt("RATE_LIMIT_BURST", cfg.RateLimitBurst)
	cfg.SessionTTL = readDurationSeconds("SESSION_TTL_SECONDS", cfg.SessionTTLSeconds)
	cfg.ShutdownTimeout = readDurationSeconds("SHUTDOWN_TIMEOUT_SECONDS", 10)
	cfg.LogLevel = readString("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = readString("LOG_FORMAT", cfg.LogFormat)
	cfg.OTelEndpoint = readString("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTelEndpoint)
	cfg.OTelInsecure = readBool("OTEL_EXPORTER_OTLP_INSECURE", cfg.OTelInsecure)
	cfg.OTelSampleRatio = readFloat("OTEL_TRACES_SAMPLER_ARG", cfg.OTelSampleRatio)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DB_DSN is required for the postgres store")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL_SECONDS must be positive")
	}
	if c.OTelSampleRatio < 0 || c.OTelSampleRatio > 1 {
		return errors.New("OTEL_TRACES_SAMPLER_ARG must be between 0 and 1")
	}
	return nil
}

// Location resolves the clinic timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.ClinicTimezone)
	if err != nil {
		return nil, fmt.Errorf("load clinic timezone %q: %w", c.ClinicTimezone, err)
	}
	return loc, nil
}

func readString(key, fallback string) string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	return raw
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}

func readBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
