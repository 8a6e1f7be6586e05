package forecast

import (
	"errors"
	"fmt"
)

// ErrUnparsableServerHint is returned when a 422 body does not carry the
// expected minimum start time sentence.
var ErrUnparsableServerHint = errors.New("unparsable server start time hint")

// MalformedResponseError reports a response body that does not match the
// expected forecast shape. It is never retried.
type MalformedResponseError struct {
	Path string
	Err  error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed forecast response at %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("malformed forecast response: missing %s", e.Path)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

func missing(path string) error {
	return &MalformedResponseError{Path: path}
}

var (
	// ErrRetriesExhausted is wrapped by FetchError when every corrected start
	// time was rejected and the attempt ceiling was reached.
	ErrRetriesExhausted = errors.New("start time retries exhausted")

	// ErrStartTimeRejected is wrapped by FetchError when the server rejects
	// the very start time it previously suggested.
	ErrStartTimeRejected = errors.New("server rejected its own suggested start time")
)

// FetchError is a terminal upstream failure: a non-200 status other than a
// recoverable 422, or a 422 that could not be resolved.
type FetchError struct {
	StatusCode int
	Body       string
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch forecast failed: status %d after %d attempt(s): %s", e.StatusCode, e.Attempts, e.Body)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
