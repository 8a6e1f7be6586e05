package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/i474232898/weather-forecast-etl/internal/forecast"
)

// DefaultPrefix names artifacts weather_forecast_data_<date>.csv.
const DefaultPrefix = "weather_forecast_data"

// IOError reports a failed artifact write and the path it targeted.
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("write forecast artifact %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ArtifactPath names the artifact for a run by its calendar date.
func ArtifactPath(dir, prefix string, date time.Time) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s.csv", prefix, date.Format("2006-01-02")))
}

// CSVWriter serializes a forecast table as comma-separated text.
type CSVWriter struct{}

func NewCSVWriter() *CSVWriter {
	return &CSVWriter{}
}

// Write replaces any file at path with the header and one line per row.
// It is not transactional: a failure midway can leave a truncated file.
func (w *CSVWriter) Write(table forecast.Table, path string) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			return &IOError{Path: path, Op: "mkdir", Err: mkErr}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return &IOError{Path: path, Op: "create", Err: err}
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = &IOError{Path: path, Op: "close", Err: closeErr}
		}
	}()

	writer := csv.NewWriter(f)

	if err := writer.Write(forecast.Header); err != nil {
		return &IOError{Path: path, Op: "write header", Err: err}
	}

	for _, r := range table {
		record := []string{
			formatFloat(r.Latitude),
			formatFloat(r.Longitude),
			r.Time,
			formatFloat(r.TemperatureC),
			formatFloat(r.HumidityPct),
		}
		if err := writer.Write(record); err != nil {
			return &IOError{Path: path, Op: "write row", Err: err}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return &IOError{Path: path, Op: "flush", Err: err}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
