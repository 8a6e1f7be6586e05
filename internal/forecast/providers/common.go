package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-forecast-etl/internal/common"
	"github.com/i474232898/weather-forecast-etl/internal/forecast"
)

// maxBodyBytes caps how much of an upstream body is read into memory.
const maxBodyBytes = 32 << 20

// HTTPClientConfig bundles the HTTP client and outbound rate limiting.
type HTTPClientConfig struct {
	Client  *http.Client
	Limiter *rate.Limiter
}

var (
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

// upstreamResponse is a response whose body has been fully read and closed.
type upstreamResponse struct {
	StatusCode int
	Body       []byte
}

// doRequest executes a single request through the rate limiter and the
// circuit breaker. Transport errors and 5xx responses count as breaker
// failures; a 5xx is returned as a *forecast.FetchError. Every other status
// is handed back to the caller to classify. No retries happen here.
func doRequest(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (upstreamResponse, error) {
	if cfg.Client == nil {
		return upstreamResponse{}, errNoHTTPClient
	}

	if cfg.Limiter != nil {
		if err := cfg.Limiter.Wait(ctx); err != nil {
			return upstreamResponse{}, fmt.Errorf("rate limit wait canceled: %w", err)
		}
	}

	req, err := buildRequest()
	if err != nil {
		return upstreamResponse{}, err
	}

	// Ensure the request obeys context cancellation.
	req = req.WithContext(ctx)

	var out upstreamResponse
	_, err = cb.Execute(func() (interface{}, error) {
		resp, execErr := cfg.Client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if readErr != nil {
			return nil, fmt.Errorf("read response body: %w", readErr)
		}

		out = upstreamResponse{StatusCode: resp.StatusCode, Body: body}
		if resp.StatusCode >= 500 {
			return nil, &forecast.FetchError{
				StatusCode: resp.StatusCode,
				Body:       common.TruncateBody(string(body), 2048),
			}
		}
		return nil, nil
	})

	if err != nil {
		// If circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return upstreamResponse{}, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return upstreamResponse{}, err
	}

	return out, nil
}

// newLimiter builds a token-bucket limiter; a non-positive rps disables limiting.
func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
