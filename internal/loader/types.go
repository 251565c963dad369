// Package loader - Configuration Types
//
// Defines the YAML configuration structure for sensorlogd.
//
//	socket:   path of the snapshot socket
//	period:   sampling period
//	tiers:    ordered retention chain, finest first
//	source:   where samples come from (sysfs, snmp, static)
//	logging:  level, format, stats interval
//	server:   acceptor and client write behavior
package loader

import (
	"strconv"
	"time"

	"github.com/xtxerr/sensorlog/config"
	"github.com/xtxerr/sensorlog/internal/sensor"
	"github.com/xtxerr/sensorlog/internal/storage/types"
)

// Source kinds.
const (
	SourceSysfs  = "sysfs"
	SourceSNMP   = "snmp"
	SourceStatic = "static"
)

// =============================================================================
// Root Configuration
// =============================================================================

// Config is the root configuration structure for sensorlogd.
type Config struct {
	// Socket is the path of the snapshot socket.
	Socket string `yaml:"socket"`

	// Period is the sampling period.
	Period Duration `yaml:"period"`

	// Tiers is the retention chain. A non-empty list in the file replaces
	// the default chain as a whole.
	Tiers []types.TierSpec `yaml:"tiers"`

	Source  SourceConfig  `yaml:"source"`
	Logging LoggingConfig `yaml:"logging"`
	Server  ServerConfig  `yaml:"server"`
}

// =============================================================================
// Source Configuration
// =============================================================================

// SourceConfig selects and configures the sample source.
type SourceConfig struct {
	// Kind is one of sysfs, snmp or static.
	Kind string `yaml:"kind"`

	Sysfs  sensor.SysfsPaths `yaml:"sysfs"`
	SNMP   sensor.SNMPConfig `yaml:"snmp"`
	Static StaticConfig      `yaml:"static"`

	Retry RetryConfig `yaml:"retry"`
}

// StaticConfig holds the fixed values of the static source, in iio units.
type StaticConfig struct {
	Pressure   float32 `yaml:"pressure"`
	BMP280Temp int32   `yaml:"bmp280_temp"`
	HTU21Temp  int32   `yaml:"htu21_temp"`
	Humidity   int32   `yaml:"humidity"`
}

// RetryConfig controls retries of a failed sample within one period.
type RetryConfig struct {
	// Attempts is the total number of tries. 0 or 1 disables retries.
	Attempts int `yaml:"attempts"`

	// Backoff is the pause between tries.
	Backoff Duration `yaml:"backoff"`
}

// =============================================================================
// Runtime Configuration
// =============================================================================

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`

	// StatsEvery logs loop statistics every n periods. 0 disables it.
	StatsEvery int `yaml:"stats_every"`
}

// ServerConfig controls the snapshot socket.
type ServerConfig struct {
	AcceptBackoff Duration `yaml:"accept_backoff"`
	WriteTimeout  Duration `yaml:"write_timeout"`
}

// =============================================================================
// Defaults
// =============================================================================

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Socket: config.DefaultSocketPath,
		Period: Duration(config.DefaultSamplePeriod),
		Tiers:  types.DefaultChain(),

		Source: SourceConfig{
			Kind:  SourceSysfs,
			Sysfs: sensor.DefaultSysfsPaths(),
			Retry: RetryConfig{
				Attempts: 1,
				Backoff:  Duration(config.DefaultRetryBackoff),
			},
		},

		Logging: LoggingConfig{
			Level:      "info",
			StatsEvery: config.DefaultStatsEvery,
		},

		Server: ServerConfig{
			AcceptBackoff: Duration(config.DefaultAcceptBackoff),
			WriteTimeout:  Duration(config.DefaultWriteTimeout),
		},
	}
}

// =============================================================================
// Helper Types
// =============================================================================

// Duration is a time.Duration that can be unmarshaled from YAML.
// Supports "90s", "1m30s" or a plain integer number of seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	// yaml.v3 decodes plain integers into strings as well
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if secs, err := strconv.Atoi(s); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
