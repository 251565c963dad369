// Package config provides configuration defaults and utilities
// for the sensorlog application.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via sensorlog.yaml or command line flags.
package config

import "time"

// =============================================================================
// Socket Defaults
// =============================================================================

const (
	// DefaultSocketPath is the filesystem path of the snapshot socket.
	// A stale socket file left by a previous run is removed at startup.
	// Override via config: socket
	DefaultSocketPath = "/tmp/sensorlog.sock"

	// DefaultAcceptBackoff is the pause after a failed accept before
	// the acceptor tries again.
	// Override via config: server.accept_backoff
	DefaultAcceptBackoff = 5 * time.Second

	// DefaultWriteTimeout bounds a single snapshot write to a client.
	// Zero disables the deadline and a client that never reads stalls
	// the sampling loop.
	// Override via config: server.write_timeout
	DefaultWriteTimeout = 10 * time.Second
)

// =============================================================================
// Sampling Defaults
// =============================================================================

const (
	// DefaultSamplePeriod is the time between two sensor reads.
	// Override via config: period
	DefaultSamplePeriod = time.Minute

	// DefaultStatsEvery is the number of sampling periods between two
	// statistics log lines. Zero disables the stats log.
	// Override via config: logging.stats_every
	DefaultStatsEvery = 60

	// DefaultRetryBackoff is the pause between two attempts when a sample
	// source is configured to retry.
	// Override via config: source.retry.backoff
	DefaultRetryBackoff = 500 * time.Millisecond
)

// =============================================================================
// Retention Chain Defaults
// =============================================================================
//
// With a one minute period the default chain keeps about one hour of raw
// samples, one day of half-hour averages, a month of half-day averages and
// a year of roughly two-week averages. Each capacity leaves head room above
// the limit so a carry never hits a full tier.

const (
	DefaultMinuteCapacity = 64
	DefaultMinuteLimit    = 60

	DefaultHourCapacity = 26
	DefaultHourLimit    = 24

	DefaultDayCapacity = 33
	DefaultDayLimit    = 31

	DefaultMonthCapacity = 14
	DefaultMonthLimit    = 12
)

// =============================================================================
// Sysfs Sensor Defaults
// =============================================================================

const (
	// DefaultBMP280Pressure is the iio pressure attribute of the BMP280.
	DefaultBMP280Pressure = "/sys/bus/i2c/devices/i2c-1/1-0076/iio:device1/in_pressure_input"

	// DefaultBMP280Temperature is the iio temperature attribute of the BMP280.
	DefaultBMP280Temperature = "/sys/bus/i2c/devices/i2c-1/1-0076/iio:device1/in_temp_input"

	// DefaultHTU21Temperature is the iio temperature attribute of the HTU21.
	DefaultHTU21Temperature = "/sys/bus/i2c/devices/i2c-1/1-0040/iio:device0/in_temp_input"

	// DefaultHTU21Humidity is the iio relative humidity attribute of the HTU21.
	DefaultHTU21Humidity = "/sys/bus/i2c/devices/i2c-1/1-0040/iio:device0/in_humidityrelative_input"
)

// =============================================================================
// SNMP Sensor Defaults
// =============================================================================

const (
	// DefaultSNMPPort is the standard SNMP agent port.
	DefaultSNMPPort = 161

	// DefaultSNMPTimeoutMs is the timeout for a single SNMP request.
	// Override via config: source.snmp.timeout_ms
	DefaultSNMPTimeoutMs = 5000

	// DefaultSNMPRetries is the number of retry attempts after timeout.
	// Override via config: source.snmp.retries
	DefaultSNMPRetries = 2
)
