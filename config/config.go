// Package config provides configuration types, defaults and loading for
// pagegate. Values come from, in increasing precedence: Defaults, a YAML
// config file, PAGEGATE_* environment variables and bound command flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. PAGEGATE_SERVER_ADDR.
const EnvPrefix = "PAGEGATE"

// Config holds all configuration options for pagegate.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Registry   RegistryConfig   `mapstructure:"registry"`
	Artifacts  ArtifactsConfig  `mapstructure:"artifacts"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Embeddings EmbeddingsConfig `mapstructure:"embeddings"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Log        LogConfig        `mapstructure:"log"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Metrics         bool          `mapstructure:"metrics"`
	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// RegistryConfig configures capability discovery.
type RegistryConfig struct {
	// Source is the manifest directory scanned at startup and on rescan.
	Source      string `mapstructure:"source"`
	Pattern     string `mapstructure:"pattern"`
	APIVersions string `mapstructure:"api_versions"`
}

// ArtifactsConfig configures where hand-off artifacts are written.
type ArtifactsConfig struct {
	Dir string `mapstructure:"dir"`
}

// FetchConfig configures the page fetcher.
type FetchConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	MaxBody   int64         `mapstructure:"max_body"`
}

// LLMConfig configures the chat completion client.
type LLMConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// EmbeddingsConfig configures the embeddings client.
type EmbeddingsConfig struct {
	URL     string        `mapstructure:"url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RedisConfig configures optional contract publication to Redis.
type RedisConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	Prefix  string        `mapstructure:"prefix"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	Exporter   string  `mapstructure:"exporter"`
	SampleRate float64 `mapstructure:"sample_rate"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
			Metrics:         true,
		},
		Registry: RegistryConfig{
			Source:      "manifests",
			Pattern:     "*.{yaml,yml}",
			APIVersions: ">= 1.0, < 2.0",
		},
		Artifacts: ArtifactsConfig{
			Dir: filepath.Join("regulatory_outputs", "site_outputs"),
		},
		Fetch: FetchConfig{
			Timeout:  30 * time.Second,
			CacheTTL: 5 * time.Minute,
			MaxBody:  10 << 20,
		},
		LLM: LLMConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
			Timeout: 60 * time.Second,
		},
		Embeddings: EmbeddingsConfig{
			URL:     "http://localhost:11434/api/embeddings",
			Model:   "nomic-embed-text",
			Timeout: 60 * time.Second,
		},
		Redis: RedisConfig{
			URL:    "redis://localhost:6379/0",
			Prefix: "pagegate",
			TTL:    10 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
		Tracing: TracingConfig{
			Exporter:   "stdout",
			SampleRate: 1.0,
		},
	}
}

// SetDefaults registers every default on v so environment variables can
// override keys that no config file mentions.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.metrics", d.Server.Metrics)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("registry.source", d.Registry.Source)
	v.SetDefault("registry.pattern", d.Registry.Pattern)
	v.SetDefault("registry.api_versions", d.Registry.APIVersions)
	v.SetDefault("artifacts.dir", d.Artifacts.Dir)
	v.SetDefault("fetch.timeout", d.Fetch.Timeout)
	v.SetDefault("fetch.user_agent", d.Fetch.UserAgent)
	v.SetDefault("fetch.cache_ttl", d.Fetch.CacheTTL)
	v.SetDefault("fetch.max_body", d.Fetch.MaxBody)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("embeddings.url", d.Embeddings.URL)
	v.SetDefault("embeddings.model", d.Embeddings.Model)
	v.SetDefault("embeddings.timeout", d.Embeddings.Timeout)
	v.SetDefault("redis.enabled", d.Redis.Enabled)
	v.SetDefault("redis.url", d.Redis.URL)
	v.SetDefault("redis.prefix", d.Redis.Prefix)
	v.SetDefault("redis.ttl", d.Redis.TTL)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.pretty", d.Log.Pretty)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
}

// Load reads configuration into a Config. When file is empty, pagegate.yaml
// is looked up in the working directory and then ~/.config/pagegate; a
// missing file is not an error.
func Load(v *viper.Viper, file string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("pagegate")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "pagegate"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server.addr is required")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be positive")
	}
	if strings.TrimSpace(c.Registry.Source) == "" {
		return errors.New("registry.source is required")
	}
	if strings.TrimSpace(c.Artifacts.Dir) == "" {
		return errors.New("artifacts.dir is required")
	}
	if c.Fetch.Timeout <= 0 {
		return errors.New("fetch.timeout must be positive")
	}
	if c.Fetch.CacheTTL < 0 {
		return errors.New("fetch.cache_ttl must not be negative")
	}
	if c.Fetch.MaxBody <= 0 {
		return errors.New("fetch.max_body must be positive")
	}
	if c.Redis.Enabled && strings.TrimSpace(c.Redis.URL) == "" {
		return errors.New("redis.url is required when redis.enabled is set")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be within [0, 1], got %v", c.Tracing.SampleRate)
	}
	if c.Tracing.Enabled && c.Tracing.Exporter != "stdout" && c.Tracing.Exporter != "none" {
		return fmt.Errorf("tracing.exporter: unsupported exporter %q", c.Tracing.Exporter)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
