package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/weather-forecast-etl/internal/credential"
	"github.com/i474232898/weather-forecast-etl/internal/forecast"
	"github.com/i474232898/weather-forecast-etl/internal/forecast/providers"
	"github.com/i474232898/weather-forecast-etl/internal/output"
	"github.com/i474232898/weather-forecast-etl/internal/pipeline"
	"github.com/i474232898/weather-forecast-etl/internal/store"
)

type staticCredentials struct {
	token credential.Token
}

func (s staticCredentials) Load() (credential.Token, error) {
	if s.token == "" {
		return "", fmt.Errorf("%w: TMD_API_TOKEN", credential.ErrMissing)
	}
	return s.token, nil
}

type fixture struct {
	svc   *pipeline.Service
	store *store.MemoryStore
	dir   string
	calls *int32
}

func newFixture(t *testing.T, creds credential.Provider, handler http.HandlerFunc) fixture {
	t.Helper()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	memStore := store.NewMemoryStore(10, 0)
	fetcher := providers.NewTMDProvider(srv.Client(), providers.TMDOptions{BaseURL: srv.URL})

	svc := pipeline.NewService(creds, fetcher, output.NewCSVWriter(), memStore, pipeline.Options{
		Domain:    "2",
		Province:  "พิษณุโลก",
		Amphoe:    "เมืองพิษณุโลก",
		StartHour: 14,
		Location:  time.FixedZone("ICT", 7*60*60),
		OutputDir: dir,
	}, nil)

	return fixture{svc: svc, store: memStore, dir: dir, calls: &calls}
}

func TestRunWritesDatedArtifact(t *testing.T) {
	f := newFixture(t, staticCredentials{token: "token-abcdefgh-1234"}, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("starttime"); got != "2024-10-07T14:00:00" {
			t.Errorf("unexpected starttime %q", got)
		}
		fmt.Fprint(w, `{"WeatherForecasts":[
			{"location":{"lat":16.82,"lon":100.26},"forecasts":[
				{"time":"2024-10-07T14:00:00+07:00","data":{"tc":31.5,"rh":66}},
				{"time":"2024-10-07T15:00:00+07:00","data":{"tc":32.5,"rh":62}}]},
			{"location":{"lat":16.9,"lon":100.3},"forecasts":[
				{"time":"2024-10-07T14:00:00+07:00","data":{"tc":30,"rh":70}}]}]}`)
	})

	// 2024-10-07 03:00 UTC is 10:00 ICT on the same date.
	logical := time.Date(2024, 10, 7, 3, 0, 0, 0, time.UTC)
	rec, err := f.svc.Run(context.Background(), logical, pipeline.TriggerManual)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantPath := filepath.Join(f.dir, "weather_forecast_data_2024-10-07.csv")
	if rec.Artifact != wantPath {
		t.Fatalf("expected artifact %q, got %q", wantPath, rec.Artifact)
	}
	if rec.Status != pipeline.RunSucceeded || rec.Summary.Rows != 3 || rec.Summary.Locations != 2 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	data, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d lines", len(lines))
	}
	if lines[0] != "Latitude,Longitude,Time,Temperature (°C),Humidity (%)" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[3] != "16.9,100.3,2024-10-07T14:00:00+07:00,30,70" {
		t.Fatalf("unexpected last row %q", lines[3])
	}

	latest, err := f.svc.GetLatest()
	if err != nil || latest.ID != rec.ID {
		t.Fatalf("expected run to be recorded, got %+v (%v)", latest, err)
	}
}

func TestRunEmptyForecastWritesHeaderOnly(t *testing.T) {
	f := newFixture(t, staticCredentials{token: "token-abcdefgh-1234"}, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"WeatherForecasts":[]}`)
	})

	rec, err := f.svc.Run(context.Background(), time.Date(2024, 10, 7, 3, 0, 0, 0, time.UTC), pipeline.TriggerOnce)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(rec.Artifact)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != "Latitude,Longitude,Time,Temperature (°C),Humidity (%)" {
		t.Fatalf("expected header only, got %q", got)
	}
}

func TestRunMissingCredentialMakesNoRequest(t *testing.T) {
	f := newFixture(t, staticCredentials{}, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	rec, err := f.svc.Run(context.Background(), time.Now(), pipeline.TriggerSchedule)
	if !errors.Is(err, credential.ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}
	if got := atomic.LoadInt32(f.calls); got != 0 {
		t.Fatalf("expected no HTTP requests, got %d", got)
	}
	if rec.Status != pipeline.RunFailed || rec.Error == "" {
		t.Fatalf("expected failed record, got %+v", rec)
	}

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no artifact, found %d files", len(entries))
	}
}

func TestRunSurfacesFetchError(t *testing.T) {
	f := newFixture(t, staticCredentials{token: "token-abcdefgh-1234"}, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	})

	_, err := f.svc.Run(context.Background(), time.Now(), pipeline.TriggerSchedule)

	var fetchErr *forecast.FetchError
	if !errors.As(err, &fetchErr) || fetchErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 FetchError, got %v", err)
	}

	latest, err := f.store.Latest()
	if err != nil || latest.Status != pipeline.RunFailed {
		t.Fatalf("expected failed run recorded, got %+v (%v)", latest, err)
	}
}

func TestRunSurfacesMalformedResponse(t *testing.T) {
	f := newFixture(t, staticCredentials{token: "token-abcdefgh-1234"}, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"WeatherForecasts":[{"location":{"lat":1,"lon":2},"forecasts":[{"time":"t"}]}]}`)
	})

	_, err := f.svc.Run(context.Background(), time.Now(), pipeline.TriggerSchedule)

	var malformed *forecast.MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
}
