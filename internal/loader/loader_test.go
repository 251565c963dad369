package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xtxerr/sensorlog/config"
	"github.com/xtxerr/sensorlog/internal/errors"
	"github.com/xtxerr/sensorlog/internal/sensor"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.Socket != config.DefaultSocketPath {
		t.Errorf("expected socket %s, got %s", config.DefaultSocketPath, cfg.Socket)
	}
	if len(cfg.Tiers) != 4 {
		t.Errorf("expected 4 default tiers, got %d", len(cfg.Tiers))
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("SENSORLOG_TEST_SOCKET", "/run/sensorlog/test.sock")

	data := `
socket: ${SENSORLOG_TEST_SOCKET}
period: 30s
tiers:
  - name: raw
    capacity: 10
    limit: 8
  - name: coarse
    capacity: 6
    limit: 4
source:
  kind: static
  static:
    pressure: 101.3
    humidity: 45000
  retry:
    attempts: 3
    backoff: 2
logging:
  level: debug
  stats_every: 0
server:
  write_timeout: 1s
`
	path := filepath.Join(t.TempDir(), "sensorlog.yaml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Socket != "/run/sensorlog/test.sock" {
		t.Errorf("expected expanded socket path, got %s", cfg.Socket)
	}
	if cfg.Period.Duration() != 30*time.Second {
		t.Errorf("expected period=30s, got %v", cfg.Period.Duration())
	}
	if len(cfg.Tiers) != 2 || cfg.Tiers[0].Name != "raw" || cfg.Tiers[1].Limit != 4 {
		t.Errorf("unexpected tiers %+v", cfg.Tiers)
	}
	if cfg.Source.Retry.Backoff.Duration() != 2*time.Second {
		t.Errorf("expected integer backoff in seconds, got %v", cfg.Source.Retry.Backoff.Duration())
	}
	if cfg.Server.WriteTimeout.Duration() != time.Second {
		t.Errorf("expected write_timeout=1s, got %v", cfg.Server.WriteTimeout.Duration())
	}

	// untouched sections keep their defaults
	if cfg.Server.AcceptBackoff.Duration() != config.DefaultAcceptBackoff {
		t.Errorf("expected default accept_backoff, got %v", cfg.Server.AcceptBackoff.Duration())
	}
	if cfg.Source.Sysfs.Pressure != config.DefaultBMP280Pressure {
		t.Errorf("expected default sysfs path, got %s", cfg.Source.Sysfs.Pressure)
	}

	srv := ToServerConfig(cfg)
	if srv.Address != cfg.Socket || srv.WriteTimeout != time.Second {
		t.Errorf("unexpected server config %+v", srv)
	}
}

func TestLoad_Errors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")
	_, err := Load(missing)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist for missing file, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), missing) {
		t.Errorf("expected error to name %s, got %v", missing, err)
	}
	if _, err := Parse([]byte("period: [")); err == nil {
		t.Error("expected error for malformed YAML")
	}
	if _, err := Parse([]byte("period: soon")); err == nil {
		t.Error("expected error for bad duration")
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		target error
	}{
		{"empty socket", func(c *Config) { c.Socket = "" }, errors.ErrInvalidConfig},
		{"zero period", func(c *Config) { c.Period = 0 }, errors.ErrInvalidConfig},
		{"no tiers", func(c *Config) { c.Tiers = nil }, errors.ErrInvalidChain},
		{"limit too small", func(c *Config) { c.Tiers[0].Limit = 1 }, errors.ErrInvalidChain},
		{"unknown kind", func(c *Config) { c.Source.Kind = "serial" }, errors.ErrUnsupportedSource},
		{"missing sysfs path", func(c *Config) { c.Source.Sysfs.Humidity = "" }, errors.ErrMissingField},
		{"snmp without host", func(c *Config) { c.Source.Kind = SourceSNMP }, errors.ErrMissingField},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, errors.ErrInvalidConfig},
		{"negative attempts", func(c *Config) { c.Source.Retry.Attempts = -1 }, errors.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, tt.target) {
				t.Errorf("expected %v, got %v", tt.target, err)
			}
		})
	}
}

func TestBuildSource(t *testing.T) {
	cfg := DefaultConfig().Source

	src, err := BuildSource(&cfg)
	if err != nil {
		t.Fatalf("BuildSource(sysfs): %v", err)
	}
	if _, ok := src.(*sensor.SysfsSource); !ok {
		t.Errorf("expected *sensor.SysfsSource, got %T", src)
	}

	cfg.Kind = SourceStatic
	cfg.Static = StaticConfig{Pressure: 100, Humidity: 40000}
	src, err = BuildSource(&cfg)
	if err != nil {
		t.Fatalf("BuildSource(static): %v", err)
	}
	static, ok := src.(*sensor.StaticSource)
	if !ok {
		t.Fatalf("expected *sensor.StaticSource, got %T", src)
	}
	if static.Values.Pressure != 100 || static.Values.Humidity != 40000 {
		t.Errorf("unexpected static values %+v", static.Values)
	}

	cfg.Retry.Attempts = 3
	src, err = BuildSource(&cfg)
	if err != nil {
		t.Fatalf("BuildSource(retry): %v", err)
	}
	if _, ok := src.(*sensor.StaticSource); ok {
		t.Error("expected retrying wrapper")
	}

	cfg.Kind = SourceSNMP
	if _, err := BuildSource(&cfg); !errors.IsValidation(err) {
		t.Errorf("expected validation error for empty snmp config, got %v", err)
	}

	cfg.Kind = "serial"
	if _, err := BuildSource(&cfg); !errors.Is(err, errors.ErrUnsupportedSource) {
		t.Errorf("expected ErrUnsupportedSource, got %v", err)
	}
}
