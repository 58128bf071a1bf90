package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.SSLMode != "require" {
		t.Errorf("database.ssl_mode = %s, want require", cfg.Database.SSLMode)
	}
	if cfg.Auth.AccessTokenTTL != 15*time.Minute {
		t.Errorf("auth.access_token_ttl = %v, want 15m", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Auth.MaxLoginFailures != 5 {
		t.Errorf("auth.max_login_failures = %d, want 5", cfg.Auth.MaxLoginFailures)
	}
	if cfg.Uploads.MaxSizeBytes != 5*1024*1024 {
		t.Errorf("uploads.max_size_bytes = %d, want 5MB", cfg.Uploads.MaxSizeBytes)
	}
	if cfg.Storage.DefaultBackend != "local" {
		t.Errorf("storage.default_backend = %s, want local", cfg.Storage.DefaultBackend)
	}
	if !cfg.Security.RateLimiting.Enabled {
		t.Error("rate limiting should default to enabled")
	}
	if cfg.Security.RateLimiting.AuthRequestsPerMinute >= cfg.Security.RateLimiting.RequestsPerMinute {
		t.Error("auth bucket should be stricter than the general bucket")
	}
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9999
database:
  name: clubs
  password: hunter2
auth:
  lockout_duration: 30m
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("server.port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Database.Name != "clubs" {
		t.Errorf("database.name = %s, want clubs", cfg.Database.Name)
	}
	if cfg.Auth.LockoutDuration != 30*time.Minute {
		t.Errorf("auth.lockout_duration = %v, want 30m", cfg.Auth.LockoutDuration)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("SHB_DATABASE_HOST", "db.internal")
	t.Setenv("SHB_REDIS_ADDR", "redis.internal:6379")

	path := writeConfig(t, `
database:
  host: from-file
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("database.host = %s, want db.internal (env should win)", cfg.Database.Host)
	}
	if cfg.Redis.Addr != "redis.internal:6379" {
		t.Errorf("redis.addr = %s, want redis.internal:6379", cfg.Redis.Addr)
	}
}

func TestLoad_ExpandsSecretReferences(t *testing.T) {
	t.Setenv("DB_SECRET", "s3cret")
	path := writeConfig(t, `
database:
  password: ${DB_SECRET}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Password != "s3cret" {
		t.Errorf("database.password = %s, want expanded secret", cfg.Database.Password)
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad port", "server:\n  port: 0\n"},
		{"missing db host", "database:\n  host: \"\"\n"},
		{"bad storage backend", "storage:\n  default_backend: ftp\n"},
		{"s3 without bucket", "storage:\n  default_backend: s3\n"},
		{"azure without account", "storage:\n  default_backend: azure\n"},
		{"bad log level", "logging:\n  level: loud\n"},
		{"bad bcrypt cost", "auth:\n  bcrypt_cost: 99\n"},
		{"notifications without smtp host", "notifications:\n  enabled: true\n"},
		{"tls without cert", "security:\n  tls:\n    enabled: true\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.yaml)); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestGetDSN(t *testing.T) {
	db := DatabaseConfig{
		Host: "localhost", Port: 5432, User: "app", Password: "pw",
		Name: "societyhub", SSLMode: "disable",
	}
	want := "host=localhost port=5432 user=app password=pw dbname=societyhub sslmode=disable"
	if got := db.GetDSN(); got != want {
		t.Errorf("GetDSN() = %q, want %q", got, want)
	}
}

func TestGetAddress(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8081}
	if got := s.GetAddress(); got != "127.0.0.1:8081" {
		t.Errorf("GetAddress() = %q, want 127.0.0.1:8081", got)
	}
}

// writeConfig writes yaml to a temp config file and returns its path.
// An empty string produces a file that exercises pure defaults.
func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
