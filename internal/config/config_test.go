package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Import.MaxUploadSize != 50*1024*1024 {
		t.Errorf("Expected 50MB upload limit, got %d", cfg.Import.MaxUploadSize)
	}
	if !cfg.Import.History {
		t.Error("Expected import history enabled by default")
	}
	if cfg.Import.PollInterval != 2*time.Second {
		t.Errorf("Expected 2s poll interval, got %s", cfg.Import.PollInterval)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_MAX_LIFETIME", "90s")
	t.Setenv("IMPORT_HISTORY", "false")
	t.Setenv("MAX_UPLOAD_SIZE", "1024")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Database.MaxLifetime != 90*time.Second {
		t.Errorf("Expected 90s lifetime, got %s", cfg.Database.MaxLifetime)
	}
	if cfg.Import.History {
		t.Error("Expected history disabled")
	}
	if cfg.Import.MaxUploadSize != 1024 {
		t.Errorf("Expected upload size 1024, got %d", cfg.Import.MaxUploadSize)
	}
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "many")

	if _, err := Load(); err == nil {
		t.Error("Expected error for non-numeric DB_MAX_OPEN_CONNS")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing host", func(c *Config) { c.Database.Host = "" }, true},
		{"missing name", func(c *Config) { c.Database.Name = "" }, true},
		{"zero upload size", func(c *Config) { c.Import.MaxUploadSize = 0 }, true},
		{"zero poll interval", func(c *Config) { c.Import.PollInterval = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Database: DatabaseConfig{Host: "localhost", Name: "erp"},
				Import:   ImportConfig{MaxUploadSize: 1, PollInterval: time.Second},
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	if err := os.WriteFile(file, []byte("ERP_IMPORT_TEST_VALUE=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("ERP_IMPORT_TEST_VALUE") })

	n, err := LoadEnv([]string{file, filepath.Join(dir, ".env.local")})
	if err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 file loaded, got %d", n)
	}
	if got := os.Getenv("ERP_IMPORT_TEST_VALUE"); got != "from-file" {
		t.Errorf("Expected value from file, got %q", got)
	}
}

func TestGetDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "erp", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=erp sslmode=disable"
	if got := db.GetDSN(); got != want {
		t.Errorf("GetDSN() = %q, want %q", got, want)
	}
}
