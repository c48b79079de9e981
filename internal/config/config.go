package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Remote   RemoteConfig   `yaml:"remote"`
	Sync     SyncConfig     `yaml:"sync"`
	Log      LogConfig      `yaml:"log"`
	Backup   BackupConfig   `yaml:"backup"`
	Advice   AdviceConfig   `yaml:"advice"`
}

// ServerConfig contains HTTP server settings for the remote ledger service.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig contains local database settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// RemoteConfig contains remote ledger service client settings. An empty
// BaseURL means no remote identity: the app runs local-only.
type RemoteConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"-"` // env-only, never in YAML
	OwnerID string `yaml:"owner_id"`
}

// SyncConfig contains reconciliation settings.
type SyncConfig struct {
	Cooldown Duration `yaml:"cooldown"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// BackupConfig contains S3-compatible database backup settings. An empty
// bucket disables backups.
type BackupConfig struct {
	Endpoint  string   `yaml:"endpoint"`
	Bucket    string   `yaml:"bucket"`
	AccessKey string   `yaml:"-"` // env-only, never in YAML
	SecretKey string   `yaml:"-"` // env-only, never in YAML
	Region    string   `yaml:"region"`
	UseSSL    *bool    `yaml:"use_ssl"`
	URLExpiry Duration `yaml:"url_expiry"`
}

// AdviceConfig contains financial advisor settings.
type AdviceConfig struct {
	APIKey string `yaml:"-"` // env-only, never in YAML
	Model  string `yaml:"model"`
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
// Returns an immutable Config suitable for concurrent read access.
func Load() (*Config, error) {
	cfg := newDefaults()

	configPath := getEnv("BUDGETVAULT_CONFIG_PATH", "config/budgetvault.yaml")

	// Load YAML file if it exists (missing file is not an error)
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific path.
// Used for testing and explicit path specification.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Database: DatabaseConfig{
			Path: "data/budgetvault.db",
		},
		Sync: SyncConfig{
			Cooldown: Duration(5 * time.Minute),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Backup: BackupConfig{
			URLExpiry: Duration(1 * time.Hour),
		},
		Advice: AdviceConfig{
			Model: "gpt-4o-mini",
		},
	}
}

// loadYAMLFile loads configuration from a YAML file if it exists.
// Missing file is not an error; we just use defaults.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty env vars override config values.
func applyEnvOverrides(cfg *Config) {
	// Server
	if v := os.Getenv("BUDGETVAULT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("BUDGETVAULT_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = Duration(d)
		}
	}
	if v := os.Getenv("BUDGETVAULT_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = Duration(d)
		}
	}
	if v := os.Getenv("BUDGETVAULT_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ShutdownTimeout = Duration(d)
		}
	}

	// Database
	if v := os.Getenv("BUDGETVAULT_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Remote
	if v := os.Getenv("BUDGETVAULT_REMOTE_URL"); v != "" {
		cfg.Remote.BaseURL = v
	}
	if v := os.Getenv("BUDGETVAULT_API_KEY"); v != "" {
		cfg.Remote.APIKey = v
	}
	if v := os.Getenv("BUDGETVAULT_OWNER_ID"); v != "" {
		cfg.Remote.OwnerID = v
	}

	// Sync
	if v := os.Getenv("BUDGETVAULT_SYNC_COOLDOWN"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Sync.Cooldown = Duration(d)
		}
	}

	// Log
	if v := os.Getenv("BUDGETVAULT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("BUDGETVAULT_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	// Backup
	if v := os.Getenv("BUDGETVAULT_BACKUP_ENDPOINT"); v != "" {
		cfg.Backup.Endpoint = v
	}
	if v := os.Getenv("BUDGETVAULT_BACKUP_BUCKET"); v != "" {
		cfg.Backup.Bucket = v
	}
	if v := os.Getenv("BUDGETVAULT_BACKUP_ACCESS_KEY"); v != "" {
		cfg.Backup.AccessKey = v
	}
	if v := os.Getenv("BUDGETVAULT_BACKUP_SECRET_KEY"); v != "" {
		cfg.Backup.SecretKey = v
	}
	if v := os.Getenv("BUDGETVAULT_BACKUP_REGION"); v != "" {
		cfg.Backup.Region = v
	}

	// Advice (OPENAI_API_KEY is industry convention)
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Advice.APIKey = v
	}
	if v := os.Getenv("BUDGETVAULT_ADVICE_MODEL"); v != "" {
		cfg.Advice.Model = v
	}
}

// validate checks the configuration for inconsistencies. Optional features
// (remote sync, backups, advice) are validated only when enabled.
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Remote.BaseURL != "" {
		if c.Remote.APIKey == "" {
			return errors.New("BUDGETVAULT_API_KEY is required when remote sync is configured")
		}
		if c.Remote.OwnerID == "" {
			return errors.New("remote owner_id is required when remote sync is configured")
		}
	}

	if c.Backup.Bucket != "" {
		if c.Backup.Endpoint == "" {
			return errors.New("backup endpoint is required when a bucket is configured")
		}
		if c.Backup.AccessKey == "" || c.Backup.SecretKey == "" {
			return errors.New("BUDGETVAULT_BACKUP_ACCESS_KEY and BUDGETVAULT_BACKUP_SECRET_KEY are required when a bucket is configured")
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}

	return nil
}

// getEnv returns the env var value or a default when unset.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
