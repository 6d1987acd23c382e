// internal/time_parser.go
// ------------------------
// Helpers for parsing the time values the workbench server puts in rate
// limit headers: retry-after delays (seconds or an HTTP-date) and epoch
// second reset timestamps.
//
// Functions:
// - ParseRetryAfter: convert a retry-after header value into a duration.
// - UnixToMs: convert a UNIX timestamp in seconds to milliseconds.
// - IsInFuture: check if a timestamp (ms) is in the future.
package internal

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ParseRetryAfter converts a retry-after header value into a duration.
// Both the delta-seconds form ("5") and the HTTP-date form are accepted;
// anything unparsable, negative, or in the past yields 0.
func ParseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}

	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}

	return 0
}

// UnixToMs converts a UNIX timestamp in seconds to milliseconds.
func UnixToMs(timestamp int64) int64 {
	return timestamp * 1000
}

// IsInFuture checks if a timestamp (in ms) is in the future relative to the current time.
func IsInFuture(ms int64) bool {
	return ms > time.Now().UnixMilli()
}
