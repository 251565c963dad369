package sensor

import (
	"bufio"
	"context"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xtxerr/sensorlog/config"
	"github.com/xtxerr/sensorlog/internal/errors"
)

// SysfsPaths names the iio attribute files a SysfsSource reads.
type SysfsPaths struct {
	Pressure   string `yaml:"pressure"`
	BMP280Temp string `yaml:"bmp280_temp"`
	HTU21Temp  string `yaml:"htu21_temp"`
	Humidity   string `yaml:"humidity"`
}

// DefaultSysfsPaths returns the attribute paths of a BMP280 at 0x76 and an
// HTU21 at 0x40 on i2c bus 1.
func DefaultSysfsPaths() SysfsPaths {
	return SysfsPaths{
		Pressure:   config.DefaultBMP280Pressure,
		BMP280Temp: config.DefaultBMP280Temperature,
		HTU21Temp:  config.DefaultHTU21Temperature,
		Humidity:   config.DefaultHTU21Humidity,
	}
}

// SysfsSource reads one Reading per call from the iio sysfs interface.
type SysfsSource struct {
	Paths SysfsPaths

	// Now stamps readings. Defaults to time.Now.
	Now func() time.Time
}

// NewSysfsSource creates a source reading the given paths.
func NewSysfsSource(paths SysfsPaths) *SysfsSource {
	return &SysfsSource{Paths: paths, Now: time.Now}
}

// Sample reads all four attributes. Any unreadable or unparsable attribute
// fails the whole reading; no partial reading is returned.
func (s *SysfsSource) Sample(ctx context.Context) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	at := now()

	pressure, err := readFloat(s.Paths.Pressure)
	if err != nil {
		return Reading{}, err
	}
	bmpTemp, err := readInt(s.Paths.BMP280Temp)
	if err != nil {
		return Reading{}, err
	}
	htuTemp, err := readInt(s.Paths.HTU21Temp)
	if err != nil {
		return Reading{}, err
	}
	humidity, err := readInt(s.Paths.Humidity)
	if err != nil {
		return Reading{}, err
	}

	return NewReading(at, pressure, bmpTemp, htuTemp, humidity), nil
}

// readLine returns the first line of an attribute file.
func readLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.NewSampleUnavailable(path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", errors.NewSampleUnavailable(path, err)
		}
		return "", errors.NewSampleUnavailable(path, errors.New("empty attribute"))
	}
	return strings.TrimSpace(sc.Text()), nil
}

func readFloat(path string) (float32, error) {
	line, err := readLine(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(line, 32)
	if err != nil {
		return 0, errors.NewSampleUnavailable(path, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.NewSampleUnavailable(path, errNonFinite)
	}
	return float32(v), nil
}

func readInt(path string) (int32, error) {
	line, err := readLine(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(line, 10, 32)
	if err != nil {
		return 0, errors.NewSampleUnavailable(path, err)
	}
	return int32(v), nil
}
