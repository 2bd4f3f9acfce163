// Package config loads aicache settings from YAML with environment
// overrides.
//
// Loading runs in a fixed order: defaults, then the YAML file with strict
// ${VAR} expansion, then AICACHE_* environment variables, then Validate.
package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/aicache/cache"
	"github.com/jonwraymond/aicache/observe"
	"github.com/jonwraymond/aicache/resilience"
	"github.com/jonwraymond/aicache/secret"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AICACHE_"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config holds all aicache configuration.
type Config struct {
	Listen     string           `yaml:"listen" env:"LISTEN"`
	Cache      CacheConfig      `yaml:"cache" envPrefix:"CACHE_"`
	Provider   ProviderConfig   `yaml:"provider" envPrefix:"PROVIDER_"`
	Resilience ResilienceConfig `yaml:"resilience" envPrefix:"RESILIENCE_"`
	Observe    observe.Config   `yaml:"observe" envPrefix:"OBSERVE_"`
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	MaxEntries      int           `yaml:"max_entries" env:"MAX_ENTRIES"`
	DefaultTTL      time.Duration `yaml:"default_ttl" env:"DEFAULT_TTL"`
	MaxTTL          time.Duration `yaml:"max_ttl" env:"MAX_TTL"`
	SingleFlight    bool          `yaml:"single_flight" env:"SINGLE_FLIGHT"`
	KeyHash         string        `yaml:"key_hash" env:"KEY_HASH"` // rolling|sha256
	JanitorInterval time.Duration `yaml:"janitor_interval" env:"JANITOR_INTERVAL"`
}

// ProviderConfig defines the OpenAI-compatible upstream.
//
// APIKey may be a literal or a secretref:<provider>:<ref> reference.
// Relative secretref:file: names are read from SecretsDir.
type ProviderConfig struct {
	BaseURL     string        `yaml:"base_url" env:"BASE_URL"`
	APIKey      string        `yaml:"api_key" env:"API_KEY"`
	SecretsDir  string        `yaml:"secrets_dir" env:"SECRETS_DIR"`
	Model       string        `yaml:"model" env:"MODEL"`
	Temperature float64       `yaml:"temperature" env:"TEMPERATURE"`
	MaxTokens   int           `yaml:"max_tokens" env:"MAX_TOKENS"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// ResilienceConfig controls the layers wrapped around upstream calls.
// A zero value for a layer's main knob disables that layer.
type ResilienceConfig struct {
	MaxAttempts     int           `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	InitialDelay    time.Duration `yaml:"initial_delay" env:"INITIAL_DELAY"`
	MaxDelay        time.Duration `yaml:"max_delay" env:"MAX_DELAY"`
	BreakerFailures int           `yaml:"breaker_failures" env:"BREAKER_FAILURES"`
	BreakerReset    time.Duration `yaml:"breaker_reset" env:"BREAKER_RESET"`
	RatePerSec      float64       `yaml:"rate_per_sec" env:"RATE_PER_SEC"`
	Burst           int           `yaml:"burst" env:"BURST"`
	MaxConcurrent   int           `yaml:"max_concurrent" env:"MAX_CONCURRENT"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		Cache: CacheConfig{
			MaxEntries:      cache.DefaultMaxEntries,
			DefaultTTL:      cache.DefaultTTL,
			KeyHash:         cache.KeyHashRolling,
			JanitorInterval: time.Minute,
		},
		Provider: ProviderConfig{
			BaseURL:     "https://api.openai.com",
			APIKey:      "secretref:env:OPENAI_API_KEY",
			SecretsDir:  "/run/secrets",
			Model:       "gpt-4",
			Temperature: 0.3,
			MaxTokens:   1000,
			Timeout:     60 * time.Second,
		},
		Resilience: ResilienceConfig{
			MaxAttempts:     3,
			InitialDelay:    500 * time.Millisecond,
			MaxDelay:        5 * time.Second,
			BreakerFailures: 5,
			BreakerReset:    30 * time.Second,
			Burst:           5,
			MaxConcurrent:   10,
		},
		Observe: observe.Config{
			ServiceName: "aicache",
			Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
			Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
		},
	}
}

// Load builds a Config from path and the environment. An empty path skips
// the file and applies environment overrides to the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		if err := cfg.applyEnv(); err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML data over the defaults, then applies environment
// overrides and validates the result. Every ${VAR} in data must be set.
func Parse(data []byte) (*Config, error) {
	expanded, err := secret.ExpandEnvStrict(string(data))
	if err != nil {
		return nil, fmt.Errorf("expand config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("%w: listen address is required", ErrInvalidConfig)
	}
	if err := c.Cache.validate(); err != nil {
		return err
	}
	if err := c.Provider.validate(); err != nil {
		return err
	}
	if err := c.Resilience.validate(); err != nil {
		return err
	}
	if err := c.Observe.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c CacheConfig) validate() error {
	switch {
	case c.MaxEntries < 0:
		return fmt.Errorf("%w: cache.max_entries must not be negative", ErrInvalidConfig)
	case c.DefaultTTL < 0 || c.MaxTTL < 0:
		return fmt.Errorf("%w: cache TTLs must not be negative", ErrInvalidConfig)
	case c.MaxTTL > 0 && c.DefaultTTL > c.MaxTTL:
		return fmt.Errorf("%w: cache.default_ttl exceeds cache.max_ttl", ErrInvalidConfig)
	case c.JanitorInterval < 0:
		return fmt.Errorf("%w: cache.janitor_interval must not be negative", ErrInvalidConfig)
	}
	if _, err := cache.KeyerFor(c.KeyHash); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (p ProviderConfig) validate() error {
	u, err := url.Parse(p.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: provider.base_url %q must be an http(s) URL", ErrInvalidConfig, p.BaseURL)
	}
	switch {
	case p.Model == "":
		return fmt.Errorf("%w: provider.model is required", ErrInvalidConfig)
	case p.Temperature < 0 || p.Temperature > 2:
		return fmt.Errorf("%w: provider.temperature must be between 0 and 2", ErrInvalidConfig)
	case p.MaxTokens <= 0:
		return fmt.Errorf("%w: provider.max_tokens must be positive", ErrInvalidConfig)
	case p.Timeout < 0:
		return fmt.Errorf("%w: provider.timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

func (r ResilienceConfig) validate() error {
	switch {
	case r.MaxAttempts < 0, r.BreakerFailures < 0, r.Burst < 0, r.MaxConcurrent < 0:
		return fmt.Errorf("%w: resilience counts must not be negative", ErrInvalidConfig)
	case r.InitialDelay < 0, r.MaxDelay < 0, r.BreakerReset < 0:
		return fmt.Errorf("%w: resilience durations must not be negative", ErrInvalidConfig)
	case r.RatePerSec < 0:
		return fmt.Errorf("%w: resilience.rate_per_sec must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Policy converts the cache section into a cache.Policy.
func (c CacheConfig) Policy() cache.Policy {
	return cache.Policy{
		MaxEntries: c.MaxEntries,
		DefaultTTL: c.DefaultTTL,
		MaxTTL:     c.MaxTTL,
	}
}

// Keyer returns the configured key derivation.
func (c CacheConfig) Keyer() (cache.Keyer, error) {
	return cache.KeyerFor(c.KeyHash)
}

// SecretResolver returns a resolver with the env and file providers.
func (p ProviderConfig) SecretResolver() *secret.Resolver {
	return secret.NewResolver(secret.EnvProvider{}, secret.NewFileProvider(p.SecretsDir))
}

// ResolveAPIKey returns the literal API key, or the secret it references.
func (p ProviderConfig) ResolveAPIKey(ctx context.Context, r *secret.Resolver) (string, error) {
	if p.APIKey == "" {
		return "", nil
	}
	key, err := r.ResolveValue(ctx, p.APIKey)
	if err != nil {
		return "", fmt.Errorf("resolve provider.api_key: %w", err)
	}
	return key, nil
}

// Executor builds the resilience stack for the upstream named name. timeout
// bounds each attempt; zero disables it.
func (r ResilienceConfig) Executor(name string, timeout time.Duration) *resilience.Executor {
	opts := []resilience.ExecutorOption{resilience.WithTimeout(timeout)}

	if r.RatePerSec > 0 {
		opts = append(opts, resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:        r.RatePerSec,
			Burst:       r.Burst,
			WaitOnLimit: true,
		})))
	}
	if r.MaxConcurrent > 0 {
		opts = append(opts, resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: r.MaxConcurrent,
			MaxWait:       timeout,
		})))
	}
	if r.BreakerFailures > 0 {
		opts = append(opts, resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:         name,
			MaxFailures:  r.BreakerFailures,
			ResetTimeout: r.BreakerReset,
		})))
	}
	if r.MaxAttempts > 1 {
		opts = append(opts, resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  r.MaxAttempts,
			InitialDelay: r.InitialDelay,
			MaxDelay:     r.MaxDelay,
			Jitter:       true,
		})))
	}
	return resilience.NewExecutor(opts...)
}
