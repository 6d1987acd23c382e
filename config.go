// config.go
// ----------
// This file defines the ClientConfig structure, which customizes the client's
// behavior: target server, HTTP transport, retry budget, backoff base, and
// the collaborators (token source, cache, notifier) the request layer calls
// out to.
//
// Zero values are filled in by NewClient; ConfigFromEnv builds a config from
// WORKBENCH_* environment variables for CLI-style consumers.
package workbenchbridge

import (
	"net/http"
	"os"
	"strconv"
	"time"
)

const (
	// DefaultMaxRetries is the retry budget for one logical call.
	DefaultMaxRetries = 3
	// DefaultBaseBackoff is the unit of the proactive backoff step function.
	DefaultBaseBackoff = time.Second
	// DefaultAuthWaitDelay is how long a call waits for an in-flight login
	// before re-checking for a token.
	DefaultAuthWaitDelay = 500 * time.Millisecond
	// DefaultRetryAfter applies when a 429 carries no retry-after header.
	DefaultRetryAfter = 5 * time.Second
)

// ClientConfig customizes a Client. BaseURL is required; everything else has
// a usable default.
type ClientConfig struct {
	BaseURL    string
	HTTPClient *http.Client

	MaxRetries    int           // retry budget per logical call
	BaseBackoff   time.Duration // proactive backoff unit
	AuthWaitDelay time.Duration // wait between token re-checks
	RetryAfter    time.Duration // fallback 429 wait

	TokenSource TokenSource // nil means no credentials ever available
	Cache       Cache       // nil disables response caching
	Notifier    Notifier    // nil drops all notifications
}

func (c *ClientConfig) applyDefaults() {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = DefaultBaseBackoff
	}
	if c.AuthWaitDelay <= 0 {
		c.AuthWaitDelay = DefaultAuthWaitDelay
	}
	if c.RetryAfter <= 0 {
		c.RetryAfter = DefaultRetryAfter
	}
}

// ConfigFromEnv reads WORKBENCH_BASE_URL, WORKBENCH_MAX_RETRIES and
// WORKBENCH_BASE_BACKOFF_MS, falling back to defaults for anything unset or
// unparsable. Collaborators still have to be attached by the caller.
func ConfigFromEnv() ClientConfig {
	cfg := ClientConfig{
		BaseURL: os.Getenv("WORKBENCH_BASE_URL"),
	}
	if v := os.Getenv("WORKBENCH_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxRetries = n
		}
	}
	if v := os.Getenv("WORKBENCH_BASE_BACKOFF_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.BaseBackoff = time.Duration(ms) * time.Millisecond
		}
	}
	return cfg
}
