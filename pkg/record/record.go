// Package record defines the emitted measurement record and its CSV encoding.
package record

import (
	"fmt"
	"io"
	"strconv"

	"github.com/openrover/soilbox/pkg/telemetry"
)

// Header is the fixed CSV column order expected by downstream tooling.
const Header = "time_ms,site,sensor,value,unit,temp_C,hum_%,press_hPa"

// Record is one emitted measurement. Created fresh on every read, immutable
// once emitted.
type Record struct {
	TimeMs uint32 // milliseconds since process start
	Site   int
	Sensor string
	Value  float32
	Digits int // fractional digits for Value: 3 for gas, 2 for environment
	Unit   string
	Env    telemetry.Reading
}

// CSV renders the record in the fixed field order. The environmental
// snapshot is repeated on every line for correlation.
func (r Record) CSV() string {
	digits := r.Digits
	if digits == 0 {
		digits = 3
	}

	return fmt.Sprintf("%d,%d,%s,%s,%s,%.2f,%.2f,%.2f",
		r.TimeMs, r.Site, r.Sensor,
		strconv.FormatFloat(float64(r.Value), 'f', digits, 32),
		r.Unit, r.Env.Temperature, r.Env.Humidity, r.Env.Pressure)
}

// Writer emits records line by line.
type Writer struct {
	w io.Writer
}

// NewWriter wraps w. When header is set, the column header is written first.
func NewWriter(w io.Writer, header bool) (*Writer, error) {
	if header {
		if _, err := fmt.Fprintln(w, Header); err != nil {
			return nil, fmt.Errorf("writing header: %w", err)
		}
	}
	return &Writer{w: w}, nil
}

// Write emits one record.
func (w *Writer) Write(r Record) error {
	if _, err := fmt.Fprintln(w.w, r.CSV()); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	return nil
}
