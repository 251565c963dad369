package sensor

import (
	"time"

	"github.com/xtxerr/sensorlog/internal/storage/types"
)

// Total is the running sum of readings.
//
// Integer fields widen to int64 and the pressure to float64. The timestamp
// sum is split into whole seconds and nanoseconds because the sum of a few
// epoch timestamps in nanoseconds already overflows int64.
type Total struct {
	Seconds    int64
	Nanos      int64
	Pressure   float64
	BMP280Temp int64
	HTU21Temp  int64
	Humidity   int64
}

// Average averages readings through a Total.
type Average struct{}

var _ types.Averager[Reading, Total] = Average{}

// Empty returns the zero total.
func (Average) Empty() Total {
	return Total{}
}

// Accumulate adds r to acc.
func (Average) Accumulate(r Reading, acc *Total) {
	acc.Seconds += int64(r.Timestamp / time.Second)
	acc.Nanos += int64(r.Timestamp % time.Second)
	acc.Pressure += float64(r.Pressure)
	acc.BMP280Temp += int64(r.BMP280Temp)
	acc.HTU21Temp += int64(r.HTU21Temp)
	acc.Humidity += int64(r.Humidity)
}

// Divide returns the mean reading. Integer fields truncate.
func (Average) Divide(acc Total, count int) Reading {
	n := int64(count)

	secs := acc.Seconds / n
	rem := acc.Seconds % n
	nanos := (rem*int64(time.Second) + acc.Nanos) / n

	return Reading{
		Timestamp:  time.Duration(secs)*time.Second + time.Duration(nanos),
		Pressure:   float32(acc.Pressure / float64(n)),
		BMP280Temp: int32(acc.BMP280Temp / n),
		HTU21Temp:  int32(acc.HTU21Temp / n),
		Humidity:   int32(acc.Humidity / n),
	}
}
