package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast-etl/internal/common"
	"github.com/i474232898/weather-forecast-etl/internal/credential"
	"github.com/i474232898/weather-forecast-etl/internal/forecast"
)

const (
	// DefaultTMDBaseURL is the TMD NWP area forecast endpoint.
	DefaultTMDBaseURL = "https://data.tmd.go.th/nwpapi/v1/forecast/area/place"

	// DefaultMaxAttempts bounds the 422 start-time correction loop,
	// counting the first request.
	DefaultMaxAttempts = 3
)

var validate = validator.New()

// TMDOptions configures a TMDProvider. Zero values fall back to defaults.
type TMDOptions struct {
	BaseURL        string
	MaxAttempts    int
	RateLimitRPS   float64
	RateLimitBurst int
	Logger         *zap.Logger
}

// TMDProvider implements the forecast.Fetcher interface for the TMD NWP API.
type TMDProvider struct {
	name        string
	baseURL     string
	maxAttempts int
	httpCfg     HTTPClientConfig
	circuit     *gobreaker.CircuitBreaker
	logger      *zap.Logger
}

// NewTMDProvider creates a TMD fetcher guarded by a rate limiter and circuit breaker.
func NewTMDProvider(client *http.Client, opts TMDOptions) *TMDProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "tmd",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultTMDBaseURL
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TMDProvider{
		name:        "tmd",
		baseURL:     baseURL,
		maxAttempts: maxAttempts,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Limiter: newLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		},
		circuit: cb,
		logger:  logger.With(zap.String("provider", "tmd")),
	}
}

func (p *TMDProvider) Name() string {
	return p.name
}

// Fetch retrieves the forecast for q. A 422 naming the earliest accepted
// start time is retried with that time, up to maxAttempts requests in total.
// Any other non-200 status is terminal.
func (p *TMDProvider) Fetch(ctx context.Context, token credential.Token, q forecast.Query) (forecast.Response, error) {
	if token.Value() == "" {
		return forecast.Response{}, credential.ErrMissing
	}
	if err := validate.Struct(q); err != nil {
		return forecast.Response{}, fmt.Errorf("invalid forecast query: %w", err)
	}

	query := q
	for attempt := 1; ; attempt++ {
		u := p.buildURL(query)
		p.logger.Info("requesting forecast",
			zap.Int("attempt", attempt),
			zap.String("url", u),
			zap.Stringer("token", token),
		)

		res, err := doRequest(ctx, p.httpCfg, p.circuit, func() (*http.Request, error) {
			req, err := http.NewRequest(http.MethodGet, u, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Accept", "application/json")
			req.Header.Set("Authorization", token.Bearer())
			return req, nil
		})
		if err != nil {
			var fetchErr *forecast.FetchError
			if errors.As(err, &fetchErr) {
				fetchErr.Attempts = attempt
				return forecast.Response{}, fetchErr
			}
			return forecast.Response{}, fmt.Errorf("tmd request failed: %w", err)
		}

		body := string(res.Body)

		switch res.StatusCode {
		case http.StatusOK:
			return decodeResponse(res.Body)

		case http.StatusUnprocessableEntity:
			failure := &forecast.FetchError{
				StatusCode: res.StatusCode,
				Body:       common.TruncateBody(body, 2048),
				Attempts:   attempt,
			}

			hint, err := forecast.ParseStartTimeHint(body)
			if err != nil {
				failure.Err = err
				return forecast.Response{}, failure
			}
			if hint == query.StartTime {
				failure.Err = forecast.ErrStartTimeRejected
				return forecast.Response{}, failure
			}
			if attempt >= p.maxAttempts {
				failure.Err = forecast.ErrRetriesExhausted
				return forecast.Response{}, failure
			}

			p.logger.Warn("start time rejected; retrying with server minimum",
				zap.String("rejected", query.StartTime),
				zap.String("starttime", hint),
			)
			query = query.WithStartTime(hint)

		default:
			return forecast.Response{}, &forecast.FetchError{
				StatusCode: res.StatusCode,
				Body:       common.TruncateBody(body, 2048),
				Attempts:   attempt,
			}
		}
	}
}

// buildURL keeps the parameter order of the documented query grammar.
func (p *TMDProvider) buildURL(q forecast.Query) string {
	return fmt.Sprintf("%s?domain=%s&province=%s&amphoe=%s&fields=%s&starttime=%s",
		p.baseURL,
		url.QueryEscape(q.Domain),
		url.QueryEscape(q.Province),
		url.QueryEscape(q.Amphoe),
		forecast.Fields,
		url.QueryEscape(q.StartTime),
	)
}

func decodeResponse(body []byte) (forecast.Response, error) {
	var payload forecast.Response
	if err := json.Unmarshal(body, &payload); err != nil {
		return forecast.Response{}, &forecast.MalformedResponseError{Path: "body", Err: err}
	}
	if payload.WeatherForecasts == nil {
		return forecast.Response{}, &forecast.MalformedResponseError{Path: "WeatherForecasts"}
	}
	return payload, nil
}
