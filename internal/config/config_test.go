package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "budgetvault.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	path := writeConfig(t, "{}")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d", cfg.Server.Port)
	}
	if cfg.Database.Path != "data/budgetvault.db" {
		t.Errorf("default db path = %q", cfg.Database.Path)
	}
	if time.Duration(cfg.Sync.Cooldown) != 5*time.Minute {
		t.Errorf("default sync cooldown = %v", time.Duration(cfg.Sync.Cooldown))
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("default log config = %+v", cfg.Log)
	}
	if cfg.Advice.Model != "gpt-4o-mini" {
		t.Errorf("default advice model = %q", cfg.Advice.Model)
	}
}

func TestLoadFromFile_YAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  shutdown_timeout: 5s
database:
  path: /var/lib/budgetvault/ledger.db
sync:
  cooldown: 10m
log:
  level: debug
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if time.Duration(cfg.Server.ShutdownTimeout) != 5*time.Second {
		t.Errorf("shutdown timeout = %v", time.Duration(cfg.Server.ShutdownTimeout))
	}
	if cfg.Database.Path != "/var/lib/budgetvault/ledger.db" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
	if time.Duration(cfg.Sync.Cooldown) != 10*time.Minute {
		t.Errorf("cooldown = %v", time.Duration(cfg.Sync.Cooldown))
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestLoadFromFile_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	t.Setenv("BUDGETVAULT_PORT", "7070")
	t.Setenv("BUDGETVAULT_LOG_LEVEL", "warn")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("env must win over yaml, port = %d", cfg.Server.Port)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestLoadFromFile_SecretsAreEnvOnly(t *testing.T) {
	// Keys in YAML are ignored on purpose; only env delivers them
	path := writeConfig(t, `
remote:
  base_url: https://ledger.example.com
  owner_id: u1
  api_key: leaked-from-yaml
`)
	t.Setenv("BUDGETVAULT_API_KEY", "from-env")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Remote.APIKey != "from-env" {
		t.Errorf("api key = %q", cfg.Remote.APIKey)
	}
}

func TestValidate_RemoteRequiresKeyAndOwner(t *testing.T) {
	path := writeConfig(t, "remote:\n  base_url: https://ledger.example.com\n  owner_id: u1\n")

	if _, err := LoadFromFile(path); err == nil {
		t.Fatal("expected missing api key to fail validation")
	}

	t.Setenv("BUDGETVAULT_API_KEY", "k")
	if _, err := LoadFromFile(path); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidate_BackupRequiresCredentials(t *testing.T) {
	path := writeConfig(t, "backup:\n  endpoint: s3.example.com\n  bucket: backups\n")

	if _, err := LoadFromFile(path); err == nil {
		t.Fatal("expected missing backup credentials to fail validation")
	}

	t.Setenv("BUDGETVAULT_BACKUP_ACCESS_KEY", "access")
	t.Setenv("BUDGETVAULT_BACKUP_SECRET_KEY", "secret")
	if _, err := LoadFromFile(path); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"bad port", "server:\n  port: 0\n"},
		{"bad log level", "log:\n  level: verbose\n"},
		{"empty db path", "database:\n  path: \"\"\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.yaml)
			if _, err := LoadFromFile(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadFromFile_BadDuration(t *testing.T) {
	path := writeConfig(t, "sync:\n  cooldown: soon\n")
	if _, err := LoadFromFile(path); err == nil {
		t.Fatal("expected duration parse error")
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for a missing explicit path")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("BUDGETVAULT_CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected defaults, port = %d", cfg.Server.Port)
	}
}
