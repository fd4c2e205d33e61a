package config

import (
	"os"
	"path/filepath"
	"testing"
)

// writeConfig writes YAML content to a temp file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "{}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Port != 8000 {
		t.Errorf("API.Port = %d, want 8000", cfg.API.Port)
	}
	if cfg.Freshness.LocationThreshold != 45 {
		t.Errorf("Freshness.LocationThreshold = %d, want 45", cfg.Freshness.LocationThreshold)
	}
	if cfg.Freshness.DeviceThreshold != 30 {
		t.Errorf("Freshness.DeviceThreshold = %d, want 30", cfg.Freshness.DeviceThreshold)
	}
	if cfg.Aggregation.ChartWindow != 100 {
		t.Errorf("Aggregation.ChartWindow = %d, want 100", cfg.Aggregation.ChartWindow)
	}
	if cfg.MQTT.Enabled {
		t.Error("MQTT.Enabled = true, want false by default")
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
api:
  port: 9000
freshness:
  location_threshold: 60
logging:
  level: debug
  format: text
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Port != 9000 {
		t.Errorf("API.Port = %d, want 9000", cfg.API.Port)
	}
	if cfg.Freshness.LocationThreshold != 60 {
		t.Errorf("Freshness.LocationThreshold = %d, want 60", cfg.Freshness.LocationThreshold)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	// Untouched sections keep defaults.
	if cfg.Freshness.DeviceThreshold != 30 {
		t.Errorf("Freshness.DeviceThreshold = %d, want 30", cfg.Freshness.DeviceThreshold)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /tmp/from-file.db
`)
	t.Setenv("ENVCLOUD_DATABASE_PATH", "/tmp/from-env.db")
	t.Setenv("ENVCLOUD_JWT_SECRET", "env-secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/from-env.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
	if cfg.Security.JWT.Secret != "env-secret" {
		t.Errorf("JWT.Secret = %q, want %q", cfg.Security.JWT.Secret, "env-secret")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load() with missing file should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(*Config) {}, false},
		{"empty database path", func(c *Config) { c.Database.Path = "" }, true},
		{"port out of range", func(c *Config) { c.API.Port = 70000 }, true},
		{"zero location threshold", func(c *Config) { c.Freshness.LocationThreshold = 0 }, true},
		{"negative device threshold", func(c *Config) { c.Freshness.DeviceThreshold = -1 }, true},
		{"zero chart window", func(c *Config) { c.Aggregation.ChartWindow = 0 }, true},
		{"mqtt enabled without host", func(c *Config) {
			c.MQTT.Enabled = true
			c.MQTT.Broker.Host = ""
		}, true},
		{"influx enabled without url", func(c *Config) { c.InfluxDB.Enabled = true }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
