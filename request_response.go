package workbenchbridge

// Request describes one logical call against the workbench server.
// Endpoint is a server-relative path ("/api/list-files"); the client's
// BaseURL is prepended before dispatch.
type Request struct {
	Method   string
	Endpoint string
	Headers  map[string]string
	Body     []byte

	// ContentType overrides the default "application/json" body type.
	ContentType string

	// Silent suppresses notifier output for every failure of this call.
	// Used for background calls such as the silent re-authentication.
	Silent bool

	// MaxRetries overrides the client-wide retry budget when > 0.
	MaxRetries int
}

// Response is the normalized result of one request: status code, lowercased
// single-value headers, and the full body.
type Response struct {
	StatusCode int
	Status     string
	Headers    map[string]string
	Data       []byte
}

// Header returns the named response header (keys are lowercased) or "".
func (r *Response) Header(name string) string {
	if r == nil || r.Headers == nil {
		return ""
	}
	return r.Headers[name]
}

// RateLimitInfo is the client's view of the server-advertised quota.
// A nil field means "unknown / unbounded". ResetAt is a UNIX timestamp
// in milliseconds.
type RateLimitInfo struct {
	RemainingRequests *int
	MaxRequests       *int
	ResetAt           *int64
}

// clone returns a deep copy so callers can never reach the limiter's
// internal record through a snapshot.
func (i RateLimitInfo) clone() RateLimitInfo {
	var out RateLimitInfo
	if i.RemainingRequests != nil {
		v := *i.RemainingRequests
		out.RemainingRequests = &v
	}
	if i.MaxRequests != nil {
		v := *i.MaxRequests
		out.MaxRequests = &v
	}
	if i.ResetAt != nil {
		v := *i.ResetAt
		out.ResetAt = &v
	}
	return out
}
