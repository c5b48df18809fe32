package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all liteclient configuration.
type Config struct {
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Admins   []AdminConfig  `mapstructure:"admins"`
	Session  SessionConfig  `mapstructure:"session"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Server   ServerConfig   `mapstructure:"server"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// UpstreamConfig locates the LiteLLM proxy.
type UpstreamConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AdminConfig is one administrator allowed to sign in. PasswordHash is a
// bcrypt hash and takes precedence over Password.
type AdminConfig struct {
	Email        string `mapstructure:"email"`
	Name         string `mapstructure:"name"`
	Password     string `mapstructure:"password"`
	PasswordHash string `mapstructure:"password_hash"`
}

// SessionConfig defines admin session lifetime.
type SessionConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	PruneSchedule string        `mapstructure:"prune_schedule"`
	CookieSecure  bool          `mapstructure:"cookie_secure"`
}

// StorageConfig defines database settings.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig defines HTTP server settings.
type ServerConfig struct {
	Listen       string        `mapstructure:"listen"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxBodySize  int64         `mapstructure:"max_body_size"`
}

// AlertsConfig defines notification integrations.
type AlertsConfig struct {
	Slack   SlackConfig   `mapstructure:"slack"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Secret  string `mapstructure:"secret"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".liteclient"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults
	home, _ := os.UserHomeDir()
	v.SetDefault("upstream.base_url", "http://localhost:4000")
	v.SetDefault("upstream.api_key", "")
	v.SetDefault("upstream.timeout", "30s")
	v.SetDefault("admin.email", "")
	v.SetDefault("admin.name", "Admin")
	v.SetDefault("admin.password", "")
	v.SetDefault("admin.password_hash", "")
	v.SetDefault("session.ttl", "720h")
	v.SetDefault("session.prune_schedule", "@every 15m")
	v.SetDefault("session.cookie_secure", false)
	v.SetDefault("storage.path", filepath.Join(home, ".liteclient", "liteclient.db"))
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.max_body_size", 1024*1024) // 1 MB
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("alerts.slack.channel", "#llm-budgets")

	// Environment variables
	v.SetEnvPrefix("LITECLIENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Names used by existing LiteLLM dashboard deployments.
	for key, env := range map[string]string{
		"upstream.base_url": "LITELLM_PROXY_URL",
		"upstream.api_key":  "LITELLM_API_KEY",
		"admin.email":       "ADMIN_EMAIL",
		"admin.password":    "ADMIN_PASSWORD",
	} {
		prefixed := "LITECLIENT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// AllAdmins returns the single admin (if configured) followed by the admins list.
func (c *Config) AllAdmins() []AdminConfig {
	var admins []AdminConfig
	if c.Admin.Email != "" {
		admins = append(admins, c.Admin)
	}
	return append(admins, c.Admins...)
}

// Validate checks the settings needed to serve procedures.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.Upstream.BaseURL)
	if c.Upstream.BaseURL == "" || err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("upstream.base_url: invalid URL %q", c.Upstream.BaseURL))
	}
	if c.Upstream.Timeout <= 0 {
		errs = append(errs, errors.New("upstream.timeout: must be positive"))
	}

	admins := c.AllAdmins()
	if len(admins) == 0 {
		errs = append(errs, errors.New("admin: at least one admin email is required"))
	}
	for _, a := range admins {
		if a.Email == "" {
			errs = append(errs, errors.New("admins: email is required"))
		} else if a.Password == "" && a.PasswordHash == "" {
			errs = append(errs, fmt.Errorf("admin %s: password or password_hash is required", a.Email))
		}
	}

	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session.ttl: must be positive"))
	}
	if c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path: required"))
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format: %q is not json or console", c.Logging.Format))
	}

	if c.Alerts.Slack.Enabled && c.Alerts.Slack.WebhookURL == "" {
		errs = append(errs, errors.New("alerts.slack.webhook_url: required when slack is enabled"))
	}
	if c.Alerts.Webhook.Enabled && c.Alerts.Webhook.URL == "" {
		errs = append(errs, errors.New("alerts.webhook.url: required when webhook is enabled"))
	}

	return errors.Join(errs...)
}
