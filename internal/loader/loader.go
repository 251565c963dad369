// Package loader handles configuration file loading, validation, and
// turning the configuration into the daemon's collaborators.
package loader

import (
	"fmt"
	"os"

	"github.com/xtxerr/sensorlog/internal/errors"
	"github.com/xtxerr/sensorlog/internal/logging"
	"github.com/xtxerr/sensorlog/internal/sampler"
	"github.com/xtxerr/sensorlog/internal/sensor"
	"github.com/xtxerr/sensorlog/internal/server"
	"github.com/xtxerr/sensorlog/internal/storage/types"
	"github.com/xtxerr/sensorlog/internal/validation"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Load
// =============================================================================

// Load loads configuration from a YAML file layered on DefaultConfig.
// ${VAR} references are expanded from the environment before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	return Parse(data)
}

// Parse parses YAML configuration layered on DefaultConfig.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	// Start with defaults
	cfg := DefaultConfig()

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// =============================================================================
// Validation
// =============================================================================

// Validate validates the configuration.
func Validate(cfg *Config) error {
	errs := errors.NewValidationErrors()

	if err := validation.ValidateSocketPath(cfg.Socket); err != nil {
		errs.AddField("socket", err.Error())
	}
	if cfg.Period.Duration() <= 0 {
		errs.AddField("period", "must be positive")
	}

	errs.Add(types.ValidateChain(cfg.Tiers))

	switch cfg.Source.Kind {
	case SourceSysfs:
		p := cfg.Source.Sysfs
		for field, path := range map[string]string{
			"pressure":    p.Pressure,
			"bmp280_temp": p.BMP280Temp,
			"htu21_temp":  p.HTU21Temp,
			"humidity":    p.Humidity,
		} {
			if path == "" {
				errs.AddMissing("source.sysfs." + field)
			}
		}
	case SourceSNMP:
		errs.Add(cfg.Source.SNMP.Validate())
	case SourceStatic:
	default:
		errs.Add(fmt.Errorf("source.kind %q: %w", cfg.Source.Kind, errors.ErrUnsupportedSource))
	}

	if cfg.Source.Retry.Attempts < 0 {
		errs.AddField("source.retry.attempts", "must not be negative")
	}
	if cfg.Source.Retry.Backoff.Duration() < 0 {
		errs.AddField("source.retry.backoff", "must not be negative")
	}

	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		errs.Add(errors.NewInvalidValue("logging.level", cfg.Logging.Level, err.Error()))
	}
	if cfg.Logging.StatsEvery < 0 {
		errs.AddField("logging.stats_every", "must not be negative")
	}

	if cfg.Server.AcceptBackoff.Duration() < 0 {
		errs.AddField("server.accept_backoff", "must not be negative")
	}
	if cfg.Server.WriteTimeout.Duration() < 0 {
		errs.AddField("server.write_timeout", "must not be negative")
	}

	return errs.Err()
}

// =============================================================================
// Conversion: Config → Collaborators
// =============================================================================

// BuildSource creates the configured sample source, wrapped for retries
// when source.retry.attempts is above one.
func BuildSource(cfg *SourceConfig) (sampler.Source[sensor.Reading], error) {
	var src sampler.Source[sensor.Reading]

	switch cfg.Kind {
	case SourceSysfs:
		src = sensor.NewSysfsSource(cfg.Sysfs)

	case SourceSNMP:
		s, err := sensor.NewSNMPSource(cfg.SNMP)
		if err != nil {
			return nil, err
		}
		src = s

	case SourceStatic:
		src = &sensor.StaticSource{
			Values: sensor.Reading{
				Pressure:   cfg.Static.Pressure,
				BMP280Temp: cfg.Static.BMP280Temp,
				HTU21Temp:  cfg.Static.HTU21Temp,
				Humidity:   cfg.Static.Humidity,
			},
		}

	default:
		return nil, fmt.Errorf("source.kind %q: %w", cfg.Kind, errors.ErrUnsupportedSource)
	}

	return sampler.Retry(src, cfg.Retry.Attempts, cfg.Retry.Backoff.Duration()), nil
}

// ToServerConfig converts the socket settings to a server configuration.
func ToServerConfig(cfg *Config) *server.Config {
	return &server.Config{
		Address:       cfg.Socket,
		AcceptBackoff: cfg.Server.AcceptBackoff.Duration(),
		WriteTimeout:  cfg.Server.WriteTimeout.Duration(),
	}
}
