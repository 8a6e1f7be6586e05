package forecast

import (
	"fmt"
	"strings"
)

const startTimeHintMarker = "starttime must be a date after or equal to "

// ParseStartTimeHint extracts the earliest accepted start time from a 422
// body such as "The starttime must be a date after or equal to 2024-10-05T08:00:00."
// The timestamp runs up to the next period, or the closing quote when the
// sentence sits inside a JSON string without one.
func ParseStartTimeHint(body string) (string, error) {
	idx := strings.Index(body, startTimeHintMarker)
	if idx < 0 {
		return "", fmt.Errorf("%w: marker not found", ErrUnparsableServerHint)
	}

	rest := body[idx+len(startTimeHintMarker):]
	if end := strings.IndexAny(rest, ".\"\n"); end >= 0 {
		rest = rest[:end]
	}

	hint := strings.TrimSpace(rest)
	if hint == "" {
		return "", fmt.Errorf("%w: empty timestamp", ErrUnparsableServerHint)
	}
	return hint, nil
}
