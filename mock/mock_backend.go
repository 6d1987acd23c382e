// Package mock provides a scripted in-memory backend for exercising the
// workbench client without a real server. Plug it in as the HTTP transport:
//
//	backend := &mock.Backend{}
//	client := workbenchbridge.NewClient(workbenchbridge.ClientConfig{
//		BaseURL:    "http://workbench.test",
//		HTTPClient: backend.Client(),
//	})
package mock

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// Response is one scripted reply. Err, when set, simulates a transport
// failure instead of producing a response.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Err        error
}

// Backend implements http.RoundTripper with a scripted response sequence.
// Responses are consumed in order; once the script is exhausted (or empty)
// every request gets a plain 200. The 429 knobs mirror real throttling:
// ShouldReturn429Always for a saturated server, RequestsUntilRateLimit for
// one that throttles after N requests.
type Backend struct {
	Script                 []Response
	ShouldReturn429Always  bool
	RequestsUntilRateLimit int

	mu       sync.Mutex
	requests []recordedRequest
}

type recordedRequest struct {
	method string
	path   string
	header http.Header
	body   []byte
}

// Client wraps the backend in an http.Client.
func (b *Backend) Client() *http.Client {
	return &http.Client{Transport: b}
}

func (b *Backend) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		req.Body.Close()
	}

	b.mu.Lock()
	b.requests = append(b.requests, recordedRequest{
		method: req.Method,
		path:   req.URL.RequestURI(),
		header: req.Header.Clone(),
		body:   body,
	})
	count := len(b.requests)

	if b.ShouldReturn429Always || (b.RequestsUntilRateLimit > 0 && count > b.RequestsUntilRateLimit) {
		b.mu.Unlock()
		return makeResponse(req, Response{
			StatusCode: http.StatusTooManyRequests,
			Headers:    map[string]string{"Retry-After": "0"},
			Body:       []byte(`{"error":"Rate limited"}`),
		})
	}

	var scripted Response
	if len(b.Script) > 0 {
		scripted = b.Script[0]
		b.Script = b.Script[1:]
	} else {
		scripted = Response{StatusCode: http.StatusOK, Body: []byte(`{"success":true}`)}
	}
	b.mu.Unlock()

	if scripted.Err != nil {
		return nil, scripted.Err
	}
	return makeResponse(req, scripted)
}

func makeResponse(req *http.Request, r Response) (*http.Response, error) {
	if r.StatusCode == 0 {
		r.StatusCode = http.StatusOK
	}
	header := make(http.Header)
	for k, v := range r.Headers {
		header.Set(k, v)
	}
	return &http.Response{
		StatusCode: r.StatusCode,
		Status:     fmt.Sprintf("%d %s", r.StatusCode, http.StatusText(r.StatusCode)),
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(r.Body)),
		Request:    req,
	}, nil
}

// RequestCount reports how many requests the backend has seen.
func (b *Backend) RequestCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

// Request returns the method, path, headers and body of the i-th recorded
// request.
func (b *Backend) Request(i int) (method, path string, header http.Header, body []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := b.requests[i]
	return r.method, r.path, r.header, r.body
}

// Paths returns "METHOD path" for every recorded request, in order.
func (b *Backend) Paths() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.requests))
	for i, r := range b.requests {
		out[i] = r.method + " " + r.path
	}
	return out
}
