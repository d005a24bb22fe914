// Package common provides shared utilities for fihub
package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/fihub/internal/interfaces"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for fihub
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Cache       CacheConfig     `toml:"cache"`
	Storage     StorageConfig   `toml:"storage"`
	Clients     ClientsConfig   `toml:"clients"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// CacheConfig holds the shared TTL and the per-service capacities.
type CacheConfig struct {
	TTL         string `toml:"ttl"`
	Stock       int    `toml:"stock"`
	Indicator   int    `toml:"indicator"`
	Technical   int    `toml:"technical"`
	Options     int    `toml:"options"`
	Correlation int    `toml:"correlation"`
	Search      int    `toml:"search"`
	Movers      int    `toml:"movers"`
	MoversTTL   string `toml:"movers_ttl"`
}

// GetTTL parses and returns the cache TTL
func (c *CacheConfig) GetTTL() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d <= 0 {
		return 300 * time.Second
	}
	return d
}

// GetMoversTTL parses and returns the market movers cache TTL
func (c *CacheConfig) GetMoversTTL() time.Duration {
	d, err := time.ParseDuration(c.MoversTTL)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// StorageConfig selects and configures the persistence backend.
// Backend is one of "memory", "surrealdb" or "sqlite".
type StorageConfig struct {
	Backend   string `toml:"backend"`
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	Path      string `toml:"path"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	AlphaVantage AlphaVantageConfig `toml:"alphavantage"`
	Binance      BinanceConfig      `toml:"binance"`
	Gemini       GeminiConfig       `toml:"gemini"`
}

// AlphaVantageConfig holds Alpha Vantage API configuration
type AlphaVantageConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *AlphaVantageConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// BinanceConfig holds Binance API configuration
type BinanceConfig struct {
	BaseURL    string   `toml:"base_url"`
	APIKey     string   `toml:"api_key"`
	APISecret  string   `toml:"api_secret"`
	AllowedIPs []string `toml:"allowed_ips"`
	RateLimit  int      `toml:"rate_limit"`
	Timeout    string   `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *BinanceConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey      string `toml:"api_key"`
	Model       string `toml:"model"`
	MaxAttempts int    `toml:"max_attempts"`
}

// SchedulerConfig holds cron expressions for background jobs.
// An empty expression disables the job.
type SchedulerConfig struct {
	CachePurge string `toml:"cache_purge"`
	WarmMovers string `toml:"warm_movers"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Cache: CacheConfig{
			TTL:         "300s",
			Stock:       1000,
			Indicator:   100,
			Technical:   500,
			Options:     100,
			Correlation: 100,
			Search:      500,
			Movers:      10,
			MoversTTL:   "60s",
		},
		Storage: StorageConfig{
			Backend:   "memory",
			Address:   "ws://localhost:8000/rpc",
			Namespace: "fihub",
			Database:  "fihub",
			Username:  "root",
			Password:  "root",
			Path:      "data/fihub.db",
		},
		Clients: ClientsConfig{
			AlphaVantage: AlphaVantageConfig{
				BaseURL:   "https://www.alphavantage.co",
				RateLimit: 5,
				Timeout:   "30s",
			},
			Binance: BinanceConfig{
				BaseURL:   "https://api.binance.com",
				RateLimit: 10,
				Timeout:   "10s",
			},
			Gemini: GeminiConfig{
				Model:       "gemini-2.0-flash",
				MaxAttempts: 3,
			},
		},
		Scheduler: SchedulerConfig{
			CachePurge: "@every 5m",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FIHUB_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("FIHUB_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("FIHUB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("FIHUB_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// CACHE_TTL is expressed in seconds
	if ttl := os.Getenv("CACHE_TTL"); ttl != "" {
		if secs, err := strconv.Atoi(ttl); err == nil && secs > 0 {
			config.Cache.TTL = fmt.Sprintf("%ds", secs)
		}
	}

	if backend := os.Getenv("FIHUB_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = strings.ToLower(backend)
	}
	if addr := os.Getenv("FIHUB_STORAGE_ADDRESS"); addr != "" {
		config.Storage.Address = addr
	}
	if path := os.Getenv("FIHUB_STORAGE_PATH"); path != "" {
		config.Storage.Path = path
	}

	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		config.Clients.Binance.APIKey = v
	}
	if v := os.Getenv("BINANCE_API_SECRET"); v != "" {
		config.Clients.Binance.APISecret = v
	}
	if v := os.Getenv("BINANCE_ALLOWED_IPS"); v != "" {
		var ips []string
		for _, ip := range strings.Split(v, ",") {
			if ip = strings.TrimSpace(ip); ip != "" {
				ips = append(ips, ip)
			}
		}
		config.Clients.Binance.AllowedIPs = ips
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ResolveAPIKey resolves an API key from environment, KeyValueStore, or fallback
func ResolveAPIKey(ctx context.Context, store interfaces.KeyValueStore, name string, fallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"alpha_vantage_api_key": {"ALPHA_VANTAGE_API_KEY", "FIHUB_ALPHA_VANTAGE_API_KEY"},
		"gemini_api_key":        {"GEMINI_API_KEY", "FIHUB_GEMINI_API_KEY", "GOOGLE_API_KEY"},
	}

	// Environment wins
	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	// Then the last value set at runtime
	if store != nil {
		apiKey, err := store.Get(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	if fallback != "" {
		return fallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or store", name)
}
