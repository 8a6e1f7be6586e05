package forecast

import (
	"context"

	"github.com/i474232898/weather-forecast-etl/internal/credential"
)

// Fetcher retrieves the raw forecast for a query (e.g. the TMD NWP API).
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, token credential.Token, q Query) (Response, error)
}

// Writer persists a flattened table to a destination path.
type Writer interface {
	Write(table Table, path string) error
}
