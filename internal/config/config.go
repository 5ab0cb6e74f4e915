// Package config loads and validates vestibule configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file-based secrets.
const (
	EnvAPIToken      = "VESTIBULE_API_TOKEN"
	EnvWebhookSecret = "VESTIBULE_WEBHOOK_SECRET"
)

// Config represents the complete vestibule configuration.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Listen   string         `yaml:"listen"`
	Platform PlatformConfig `yaml:"platform"`
	Webhook  WebhookConfig  `yaml:"webhook"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string        `yaml:"name"`
	LogLevel  string        `yaml:"log_level"`
	DedupeTTL time.Duration `yaml:"dedupe_ttl"`
}

// PlatformConfig defines the remote workspace platform connection.
type PlatformConfig struct {
	APIURL      string `yaml:"api_url"`
	APIToken    string `yaml:"api_token"`
	WorkspaceID string `yaml:"workspace_id"`
}

// WebhookConfig defines the inbound webhook endpoint.
type WebhookConfig struct {
	// Path is the URL path the hook is served on (e.g., "/hooks/workspace").
	Path string `yaml:"path"`

	// Secret is the HMAC secret for signature verification. Empty means
	// requests are accepted unauthenticated.
	Secret string `yaml:"secret,omitempty"`

	// PublicBaseURL is the externally reachable base address of this
	// service, used to build the subscription callback URL. Empty means
	// subscription reconciliation is skipped.
	PublicBaseURL string `yaml:"public_base_url,omitempty"`

	// MaxBodySize is the maximum allowed request body size in bytes.
	MaxBodySize int64 `yaml:"max_body_size,omitempty"`
}

// DefaultMaxBodySize limits inbound webhook bodies (1 MB).
const DefaultMaxBodySize = 1048576

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "vestibule",
			LogLevel:  "info",
			DedupeTTL: 10 * time.Minute,
		},
		Listen: "127.0.0.1:8080",
		Webhook: WebhookConfig{
			Path:        "/hooks/workspace",
			MaxBodySize: DefaultMaxBodySize,
		},
	}
}

// Load reads a YAML config file, applies defaults and environment
// overrides. Validation is separate so tooling (doctor) can inspect
// an invalid config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides resolves secrets from the environment. Environment
// values take precedence over file values so secrets can stay out of
// the config file entirely.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvAPIToken); v != "" {
		cfg.Platform.APIToken = v
	}
	if v := os.Getenv(EnvWebhookSecret); v != "" {
		cfg.Webhook.Secret = v
	}
}

// Validate checks that the config is complete enough to serve.
func (c *Config) Validate() error {
	if c.Platform.APIURL == "" {
		return fmt.Errorf("platform.api_url is required")
	}
	if u, err := url.Parse(c.Platform.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("platform.api_url %q is not an absolute URL", c.Platform.APIURL)
	}
	if c.Platform.APIToken == "" {
		return fmt.Errorf("platform.api_token is required (or set %s)", EnvAPIToken)
	}
	if c.Platform.WorkspaceID == "" {
		return fmt.Errorf("platform.workspace_id is required")
	}
	if !strings.HasPrefix(c.Webhook.Path, "/") {
		return fmt.Errorf("webhook.path %q must start with '/'", c.Webhook.Path)
	}
	if c.Webhook.PublicBaseURL != "" {
		if u, err := url.Parse(c.Webhook.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("webhook.public_base_url %q is not an absolute URL", c.Webhook.PublicBaseURL)
		}
	}
	if c.Webhook.MaxBodySize <= 0 {
		return fmt.Errorf("webhook.max_body_size must be positive")
	}
	if c.Service.DedupeTTL < 0 {
		return fmt.Errorf("service.dedupe_ttl must not be negative")
	}
	return nil
}
