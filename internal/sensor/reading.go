// Package sensor provides the environment sample type retained by sensorlog
// and the sources that produce it.
//
// A Reading carries one measurement of a BMP280 (pressure, temperature) and
// an HTU21 (temperature, relative humidity) in the units the Linux iio
// subsystem reports: pressure in kPa, temperatures in milli-degrees Celsius
// and humidity in milli-percent.
package sensor

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xtxerr/sensorlog/internal/errors"
)

var errNonFinite = errors.New("value is not a finite number")

// Reading is one environment sample.
type Reading struct {
	// Timestamp is the time since the Unix epoch.
	Timestamp time.Duration

	Pressure   float32 // kPa
	BMP280Temp int32   // m°C
	HTU21Temp  int32   // m°C
	Humidity   int32   // m%RH
}

// NewReading creates a reading stamped with at.
func NewReading(at time.Time, pressure float32, bmp280Temp, htu21Temp, humidity int32) Reading {
	return Reading{
		Timestamp:  time.Duration(at.UnixNano()),
		Pressure:   pressure,
		BMP280Temp: bmp280Temp,
		HTU21Temp:  htu21Temp,
		Humidity:   humidity,
	}
}

// Time returns the timestamp as a time.Time.
func (r Reading) Time() time.Time {
	return time.Unix(0, int64(r.Timestamp))
}

// TimestampMs returns the timestamp in Unix milliseconds.
func (r Reading) TimestampMs() int64 {
	return r.Timestamp.Milliseconds()
}

// String returns a human-readable multi-line rendering.
func (r Reading) String() string {
	return fmt.Sprintf("\ttime      = %d\n\tpressure  = %g\n\tbmp280Temp= %d\n\thtu21Temp = %d\n\thumidity  = %d\n",
		r.TimestampMs(), r.Pressure, r.BMP280Temp, r.HTU21Temp, r.Humidity)
}

// AppendJSON appends the JSON object for r to dst.
//
// Pressure is rendered in hPa with two decimals, temperatures in °C with
// three and humidity in %RH with two.
func (r Reading) AppendJSON(dst []byte) []byte {
	dst = append(dst, `{"timestamp":`...)
	dst = strconv.AppendInt(dst, r.TimestampMs(), 10)
	dst = append(dst, `,"pressure":`...)
	dst = strconv.AppendFloat(dst, float64(r.Pressure)*10, 'f', 2, 64)
	dst = append(dst, `,"bmp280Temp":`...)
	dst = strconv.AppendFloat(dst, float64(r.BMP280Temp)/1000, 'f', 3, 64)
	dst = append(dst, `,"htu21Temp":`...)
	dst = strconv.AppendFloat(dst, float64(r.HTU21Temp)/1000, 'f', 3, 64)
	dst = append(dst, `,"humidity":`...)
	dst = strconv.AppendFloat(dst, float64(r.Humidity)/1000, 'f', 2, 64)
	return append(dst, '}')
}

// MarshalJSON implements json.Marshaler.
func (r Reading) MarshalJSON() ([]byte, error) {
	return r.AppendJSON(nil), nil
}

// EncodeJSON writes the JSON object for r to w.
// It has the shape the snapshot writer expects of a sample encoder.
func EncodeJSON(w io.Writer, r Reading) error {
	var scratch [128]byte
	_, err := w.Write(r.AppendJSON(scratch[:0]))
	return err
}
