package workbenchbridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opengovern/workbench-bridge/internal"
)

// unauthenticatedPrefixes lists the routes reachable without a bearer token.
// Everything else requires the primary token before dispatch.
var unauthenticatedPrefixes = []string{
	"/api/options/models",
	"/api/options/agents",
	"/api/options/security-analyzers",
	"/config.json",
	"/api/github/callback",
}

func requiresAuth(endpoint string) bool {
	for _, prefix := range unauthenticatedPrefixes {
		if strings.HasPrefix(endpoint, prefix) {
			return false
		}
	}
	return true
}

// RequestExecutor performs one logical request with authentication, retry,
// and error-surfacing policy. Each logical request is submitted to the
// RateLimiter as a single queued unit.
type RequestExecutor struct {
	client *Client
	sleep  func(time.Duration) // swapped out in tests
}

func NewRequestExecutor(client *Client) *RequestExecutor {
	return &RequestExecutor{client: client, sleep: time.Sleep}
}

// Execute runs the request through the queue and returns the raw response.
// Responses with status < 400 are returned as-is; everything terminal is
// surfaced through the notifier first unless the request is silent.
func (re *RequestExecutor) Execute(req *Request) (*Response, error) {
	retries := req.MaxRetries
	if retries <= 0 {
		retries = re.client.config.MaxRetries
	}
	return re.client.limiter.Enqueue(func() (*Response, error) {
		return re.run(req, &retries)
	})
}

// ExecuteJSON runs the request and decodes the JSON body into out.
func (re *RequestExecutor) ExecuteJSON(req *Request, out interface{}) error {
	resp, err := re.Execute(req)
	if err != nil {
		return err
	}
	return re.decode(req, resp, out)
}

// decode unmarshals a response body; a decode failure is itself a surfaced
// terminal failure.
func (re *RequestExecutor) decode(req *Request, resp *Response, out interface{}) error {
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		re.notify(req, "Request failed", fmt.Sprintf("%s returned an invalid response body", req.Endpoint))
		return fmt.Errorf("decode %s response: %w", req.Endpoint, err)
	}
	return nil
}

// run is the body of one queued unit. The recursive self-retry of the
// original design is flattened into this loop; retries carries the remaining
// budget across re-executions when the queue re-runs the unit after a 429.
func (re *RequestExecutor) run(req *Request, retries *int) (*Response, error) {
	cfg := re.client.config
	for {
		if *retries < 0 {
			re.notify(req, "Request failed", fmt.Sprintf("%s: retries exhausted", req.Endpoint))
			return nil, fmt.Errorf("%s %s: %w", req.Method, req.Endpoint, ErrRetriesExhausted)
		}

		var token, githubToken string
		if cfg.TokenSource != nil {
			token = cfg.TokenSource.GetToken()
			githubToken = cfg.TokenSource.GetGitHubToken()
		}

		if requiresAuth(req.Endpoint) && token == "" {
			// A login may still be in flight; give it a moment and re-check.
			re.client.debugf("no token for %s yet, waiting %v\n", req.Endpoint, cfg.AuthWaitDelay)
			re.sleep(cfg.AuthWaitDelay)
			*retries--
			continue
		}

		resp, err := re.attempt(req, token, githubToken)
		if err != nil {
			re.notify(req, "Connection error", err.Error())
			return nil, err
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			re.client.debugf("401 from %s, re-authenticating\n", req.Endpoint)
			re.reauthenticate()
			*retries--
			continue
		case resp.StatusCode == http.StatusTooManyRequests:
			wait := internal.ParseRetryAfter(resp.Header("retry-after"))
			if wait <= 0 {
				wait = cfg.RetryAfter
			}
			re.client.debugf("429 from %s, waiting %v before retry\n", req.Endpoint, wait)
			re.sleep(wait)
			*retries--
			// Hand control back to the queue so the retry keeps its place at
			// the front and the queue's own backoff kicks in as well.
			return nil, &RateLimitedError{RetryAfter: wait}
		case resp.StatusCode >= 400:
			re.notify(req, "Request failed", fmt.Sprintf("%s: %s", req.Endpoint, resp.Status))
			return resp, &RequestError{URL: req.Endpoint, StatusCode: resp.StatusCode, Status: resp.Status}
		}

		return resp, nil
	}
}

// attempt performs exactly one HTTP round trip and forwards response headers
// to the rate limiter.
func (re *RequestExecutor) attempt(req *Request, token, githubToken string) (*Response, error) {
	cfg := re.client.config
	url := strings.TrimRight(cfg.BaseURL, "/") + req.Endpoint

	httpReq, err := http.NewRequest(req.Method, url, bytes.NewReader(req.Body))
	if err != nil {
		return nil, err
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	if githubToken != "" {
		httpReq.Header.Set("X-GitHub-Token", githubToken)
	}
	if len(req.Body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		contentType := req.ContentType
		if contentType == "" {
			contentType = "application/json"
		}
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("X-Request-Id", uuid.NewString())

	httpResp, err := cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	headers := make(map[string]string, len(httpResp.Header))
	for k, vals := range httpResp.Header {
		if len(vals) > 0 {
			headers[strings.ToLower(k)] = vals[0]
		}
	}
	re.client.limiter.UpdateFromHeaders(headers)

	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    headers,
		Data:       data,
	}, nil
}

// reauthenticate performs the silent authenticate call directly rather than
// through the queue: it runs inside the drain loop's slot, so enqueueing it
// would deadlock behind the very unit that is waiting on it. Failures are
// not surfaced; the follow-up retry of the original call reports the outcome.
func (re *RequestExecutor) reauthenticate() {
	req := &Request{Method: http.MethodPost, Endpoint: "/api/authenticate", Silent: true}
	var token, githubToken string
	if ts := re.client.config.TokenSource; ts != nil {
		token = ts.GetToken()
		githubToken = ts.GetGitHubToken()
	}
	if _, err := re.attempt(req, token, githubToken); err != nil {
		re.client.debugf("silent re-authentication failed: %v\n", err)
	}
}

func (re *RequestExecutor) notify(req *Request, topic, message string) {
	if req.Silent || re.client.config.Notifier == nil {
		return
	}
	re.client.config.Notifier.Error(topic, message)
}
