package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv unsets every variable applyEnvOverrides reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ROBIN_ENV", "ROBIN_API_URL", "ROBIN_TIMEOUT", "ROBIN_MAX_RETRIES", "ROBIN_RETRY_DELAY",
		"DATA_DIR", "SQLITE_PATH",
		"ALPACA_API_KEY", "ALPACA_API_SECRET", "ALPACA_DATA_URL", "ALPACA_FEED",
		"APCA_API_KEY_ID", "APCA_API_SECRET_KEY",
		"LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "robin.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
environment: production
service:
  base_url: "https://robin.example.com"
  timeout: 5s
  max_retries: 0
  retry_delay: 250ms
  retry_client_errors: false
  rate_limit_per_min: 120
storage:
  data_dir: "/tmp/robin/data"
  sqlite_path: "/tmp/robin/robin.db"
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
  feed: "sip"
logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- Service --
	if cfg.Service.BaseURL != "https://robin.example.com" {
		t.Errorf("Service.BaseURL = %q", cfg.Service.BaseURL)
	}
	if cfg.Service.Timeout != 5*time.Second {
		t.Errorf("Service.Timeout = %v, want 5s", cfg.Service.Timeout)
	}
	if cfg.Service.MaxRetries != 0 {
		t.Errorf("Service.MaxRetries = %d, want 0", cfg.Service.MaxRetries)
	}
	if cfg.Service.RetryDelay != 250*time.Millisecond {
		t.Errorf("Service.RetryDelay = %v, want 250ms", cfg.Service.RetryDelay)
	}
	if cfg.Service.RetryClientErrors {
		t.Error("Service.RetryClientErrors = true, want false")
	}
	if cfg.Service.RateLimitPerMin != 120 {
		t.Errorf("Service.RateLimitPerMin = %d, want 120", cfg.Service.RateLimitPerMin)
	}

	// -- Storage --
	if cfg.Storage.DataDir != "/tmp/robin/data" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Storage.SQLitePath != "/tmp/robin/robin.db" {
		t.Errorf("Storage.SQLitePath = %q", cfg.Storage.SQLitePath)
	}

	// -- Alpaca --
	if cfg.Alpaca.APIKey != "test-key" || cfg.Alpaca.APISecret != "test-secret" {
		t.Errorf("Alpaca credentials = %q/%q", cfg.Alpaca.APIKey, cfg.Alpaca.APISecret)
	}
	if cfg.Alpaca.Feed != "sip" {
		t.Errorf("Alpaca.Feed = %q, want sip", cfg.Alpaca.Feed)
	}

	// -- Logging --
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}

	if !cfg.IsProduction() {
		t.Error("IsProduction() = false, want true")
	}
	if w := cfg.Warnings(); len(w) != 0 {
		t.Errorf("unexpected warnings: %v", w)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "logging:\n  level: warn\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Service.Timeout != 10*time.Second {
		t.Errorf("Service.Timeout = %v, want 10s", cfg.Service.Timeout)
	}
	if cfg.Service.MaxRetries != 2 {
		t.Errorf("Service.MaxRetries = %d, want 2", cfg.Service.MaxRetries)
	}
	if cfg.Service.RetryDelay != time.Second {
		t.Errorf("Service.RetryDelay = %v, want 1s", cfg.Service.RetryDelay)
	}
	if !cfg.Service.RetryClientErrors {
		t.Error("Service.RetryClientErrors = false, want true")
	}
	if cfg.Service.BaseURL != "" {
		t.Errorf("Service.BaseURL = %q, want empty", cfg.Service.BaseURL)
	}
	if cfg.Logging.Level != "warn" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") returned error: %v", err)
	}
	if cfg.Environment != "development" {
		t.Errorf("Environment = %q, want development", cfg.Environment)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
service:
  base_url: "http://yaml:8000"
alpaca:
  api_key: "yaml-key"
  api_secret: "yaml-secret"
storage:
  data_dir: "/original/data"
`)

	t.Setenv("ROBIN_API_URL", "http://env:9000")
	t.Setenv("ROBIN_MAX_RETRIES", "5")
	t.Setenv("ROBIN_TIMEOUT", "not-a-duration")
	t.Setenv("ALPACA_API_KEY", "env-key")
	t.Setenv("DATA_DIR", "/env/data")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Service.BaseURL != "http://env:9000" {
		t.Errorf("Service.BaseURL = %q, want env override", cfg.Service.BaseURL)
	}
	if cfg.Service.MaxRetries != 5 {
		t.Errorf("Service.MaxRetries = %d, want 5", cfg.Service.MaxRetries)
	}
	// Unparseable values are ignored.
	if cfg.Service.Timeout != 10*time.Second {
		t.Errorf("Service.Timeout = %v, want default", cfg.Service.Timeout)
	}
	if cfg.Alpaca.APIKey != "env-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q (env override)", cfg.Alpaca.APIKey, "env-key")
	}
	// api_secret should remain from YAML since no env override was set.
	if cfg.Alpaca.APISecret != "yaml-secret" {
		t.Errorf("Alpaca.APISecret = %q, want %q (from YAML)", cfg.Alpaca.APISecret, "yaml-secret")
	}
	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want %q (env override)", cfg.Storage.DataDir, "/env/data")
	}

	t.Setenv("APCA_API_KEY_ID", "canonical-key")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Alpaca.APIKey != "canonical-key" {
		t.Errorf("Alpaca.APIKey = %q, APCA_API_KEY_ID should win", cfg.Alpaca.APIKey)
	}
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
service:
  max_retries: -1
  timeout: -1s
logging:
  format: xml
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestWarnings(t *testing.T) {
	cfg := Default()
	cfg.Environment = "Production"
	w := cfg.Warnings()
	if len(w) != 1 {
		t.Fatalf("expected 1 warning, got %v", w)
	}

	cfg.Service.BaseURL = "https://robin.example.com"
	if w := cfg.Warnings(); len(w) != 0 {
		t.Errorf("unexpected warnings: %v", w)
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("ROBIN_API_URL=http://dotenv:8000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// t.Setenv("", ...) leaves the key present but empty; godotenv does not
	// overwrite present keys, so remove it outright and restore afterwards.
	os.Unsetenv("ROBIN_API_URL")
	t.Cleanup(func() { os.Unsetenv("ROBIN_API_URL") })

	if err := LoadDotEnv(envFile, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("ROBIN_API_URL"); got != "http://dotenv:8000" {
		t.Errorf("ROBIN_API_URL = %q", got)
	}
	if err := LoadDotEnv(filepath.Join(dir, "none.env")); err != nil {
		t.Errorf("missing files should be ignored: %v", err)
	}
}
