package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultAPIURL is the hosted backend. It sleeps when idle and needs a wake-up probe.
const DefaultAPIURL = "https://efresco-backend.onrender.com/api"

// Config holds all client and dev server settings
type Config struct {
	API     APIConfig
	Session SessionConfig
	Chat    ChatConfig
	Log     LogConfig
	Dev     DevConfig
	Metrics MetricsConfig
}

// APIConfig controls the gateway client
type APIConfig struct {
	URL         string
	Timeout     time.Duration
	WakeRetries int
	WakeBackoff time.Duration
	Fallback    bool
}

// SessionConfig controls where the token and current user are kept
type SessionConfig struct {
	Path string
}

type ChatConfig struct {
	PollInterval time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// DevConfig configures the in-memory stand-in backend
type DevConfig struct {
	Port      string
	JWTSecret string
	TokenTTL  time.Duration
	Asleep    bool
	RateLimit float64
}

type MetricsConfig struct {
	Addr string
}

// Load reads .env, an optional efresco.{yaml,toml,json} file and EFRESCO_* variables.
func Load() (*Config, error) {
	// a missing .env is fine, real deployments export variables directly
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("efresco")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.efresco")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("EFRESCO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.url", DefaultAPIURL)
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.wake_retries", 3)
	v.SetDefault("api.wake_backoff", 2*time.Second)
	v.SetDefault("api.fallback", true)

	v.SetDefault("session.path", "$HOME/.efresco/session.json")

	v.SetDefault("chat.poll_interval", 5*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")

	v.SetDefault("dev.port", "3000")
	v.SetDefault("dev.jwt_secret", "efresco-dev-secret")
	v.SetDefault("dev.token_ttl", 72*time.Hour)
	v.SetDefault("dev.asleep", false)
	v.SetDefault("dev.rate_limit", 20)

	v.SetDefault("metrics.addr", "")
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		API: APIConfig{
			URL:         strings.TrimRight(v.GetString("api.url"), "/"),
			Timeout:     v.GetDuration("api.timeout"),
			WakeRetries: v.GetInt("api.wake_retries"),
			WakeBackoff: v.GetDuration("api.wake_backoff"),
			Fallback:    v.GetBool("api.fallback"),
		},
		Session: SessionConfig{
			Path: os.ExpandEnv(v.GetString("session.path")),
		},
		Chat: ChatConfig{
			PollInterval: v.GetDuration("chat.poll_interval"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Dev: DevConfig{
			Port:      v.GetString("dev.port"),
			JWTSecret: v.GetString("dev.jwt_secret"),
			TokenTTL:  v.GetDuration("dev.token_ttl"),
			Asleep:    v.GetBool("dev.asleep"),
			RateLimit: v.GetFloat64("dev.rate_limit"),
		},
		Metrics: MetricsConfig{
			Addr: v.GetString("metrics.addr"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the client cannot run without.
func (c *Config) Validate() error {
	if c.API.URL == "" {
		return fmt.Errorf("api.url is required")
	}
	u, err := url.Parse(c.API.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api.url %q", c.API.URL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.API.WakeRetries < 0 {
		return fmt.Errorf("api.wake_retries must not be negative")
	}
	if c.API.WakeBackoff < 0 {
		return fmt.Errorf("api.wake_backoff must not be negative")
	}
	if c.Chat.PollInterval <= 0 {
		return fmt.Errorf("chat.poll_interval must be positive")
	}
	return nil
}
