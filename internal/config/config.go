// Package config loads client configuration from an optional YAML file with
// environment overrides. Env always wins over file, file over defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults used when neither file nor environment provides a value.
const (
	DefaultBaseURL    = "http://localhost:8000"
	DefaultLanguage   = "en"
	DefaultTimeout    = 15 * time.Second
	DefaultListenAddr = ":8090"
)

// Config holds everything the client needs to reach its backends.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Messaging MessagingConfig `yaml:"messaging"`
	Emergency EmergencyConfig `yaml:"emergency"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// APIConfig configures the profile REST backend.
type APIConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Language string        `yaml:"language"`
	Timeout  time.Duration `yaml:"-"`
}

// UnmarshalYAML accepts the timeout as a duration string ("15s").
func (c *APIConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		BaseURL  string `yaml:"base_url"`
		Language string `yaml:"language"`
		Timeout  string `yaml:"timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.BaseURL != "" {
		c.BaseURL = raw.BaseURL
	}
	if raw.Language != "" {
		c.Language = raw.Language
	}
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("invalid api timeout: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// MessagingConfig configures the optional event broker. An empty URL
// disables publishing.
type MessagingConfig struct {
	RabbitMQURL string `yaml:"rabbitmq_url"`
}

// EmergencyConfig configures the break-glass share server.
type EmergencyConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// TelemetryConfig configures the OTLP exporter. An empty endpoint disables
// export and keeps the no-op providers.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// Load reads the YAML file at path (skipped when path is empty or the file
// does not exist), then applies MEDVAULT_* environment overrides.
func Load(path string) (Config, error) {
	cfg := Config{
		API: APIConfig{
			BaseURL:  DefaultBaseURL,
			Language: DefaultLanguage,
			Timeout:  DefaultTimeout,
		},
		Emergency: EmergencyConfig{ListenAddr: DefaultListenAddr},
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.API.BaseURL = envOr("MEDVAULT_API_URL", cfg.API.BaseURL)
	cfg.API.Language = envOr("MEDVAULT_LANGUAGE", cfg.API.Language)
	cfg.Messaging.RabbitMQURL = envOr("MEDVAULT_RABBITMQ_URL", cfg.Messaging.RabbitMQURL)
	cfg.Emergency.ListenAddr = envOr("MEDVAULT_EMERGENCY_ADDR", cfg.Emergency.ListenAddr)
	cfg.Telemetry.OTLPEndpoint = envOr("MEDVAULT_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)

	if v := os.Getenv("MEDVAULT_API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MEDVAULT_API_TIMEOUT: %w", err)
		}
		cfg.API.Timeout = d
	}
	if cfg.API.Timeout <= 0 {
		cfg.API.Timeout = DefaultTimeout
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
