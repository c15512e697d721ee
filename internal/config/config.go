package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for a config file when ROBIN_CONFIG is
// not set.
const DefaultPath = "config/robin.yaml"

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the robin client.
type Config struct {
	Environment string  `yaml:"environment"`
	Service     Service `yaml:"service"`
	Storage     Storage `yaml:"storage"`
	Alpaca      Alpaca  `yaml:"alpaca"`
	Logging     Logging `yaml:"logging"`
}

// Service configures the connection to the analytical service.
type Service struct {
	// BaseURL is empty when not configured; the client then falls back to
	// its local default.
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	RetryClientErrors bool          `yaml:"retry_client_errors"`
	RateLimitPerMin   int           `yaml:"rate_limit_per_min"`
}

// Storage holds paths for the optional archive. Empty paths disable the
// corresponding store.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Alpaca holds credentials for the direct market-data source.
type Alpaca struct {
	APIKey          string `yaml:"api_key"`
	APISecret       string `yaml:"api_secret"`
	DataURL         string `yaml:"data_url"`
	Feed            string `yaml:"feed"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Environment: "development",
		Service: Service{
			Timeout:           10 * time.Second,
			MaxRetries:        2,
			RetryDelay:        time.Second,
			RetryClientErrors: true,
		},
		Alpaca: Alpaca{
			Feed: "iex",
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path on top of
// Default, then applies environment variable overrides. An empty path skips
// the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none are
// given) into the process environment. Variables that are already set win;
// missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Service.Timeout < 0 {
		errs = append(errs, errors.New("service.timeout must not be negative"))
	}
	if c.Service.MaxRetries < 0 {
		errs = append(errs, errors.New("service.max_retries must not be negative"))
	}
	if c.Service.RetryDelay < 0 {
		errs = append(errs, errors.New("service.retry_delay must not be negative"))
	}
	if c.Service.RateLimitPerMin < 0 {
		errs = append(errs, errors.New("service.rate_limit_per_min must not be negative"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q: want text or json", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the environment is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Warnings lists non-fatal configuration problems worth logging at startup.
func (c *Config) Warnings() []string {
	var out []string
	if c.IsProduction() && c.Service.BaseURL == "" {
		out = append(out, "service.base_url is not set in production; falling back to the local default")
	}
	if c.Service.MaxRetries > 0 && c.Service.RetryDelay == 0 {
		out = append(out, "service.retry_delay is 0; retries will be sent back to back")
	}
	return out
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ROBIN_ENV"); v != "" {
		cfg.Environment = v
	}

	if v := os.Getenv("ROBIN_API_URL"); v != "" {
		cfg.Service.BaseURL = v
	}
	if v := os.Getenv("ROBIN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Service.Timeout = d
		}
	}
	if v := os.Getenv("ROBIN_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Service.MaxRetries = n
		}
	}
	if v := os.Getenv("ROBIN_RETRY_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Service.RetryDelay = d
		}
	}

	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}
	if v := os.Getenv("ALPACA_FEED"); v != "" {
		cfg.Alpaca.Feed = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Standard Alpaca env vars (highest priority, canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
