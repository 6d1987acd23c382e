package workbenchbridge

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/opengovern/workbench-bridge/mock"
)

func newTestClient(backend *mock.Backend, mutate func(*ClientConfig)) (*Client, *sleepRecorder) {
	cfg := ClientConfig{
		BaseURL:     "http://workbench.test",
		HTTPClient:  backend.Client(),
		TokenSource: &fakeTokens{tokens: []string{"primary-token"}, github: "gh-token"},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	c := NewClient(cfg)
	rec := &sleepRecorder{}
	c.executor.sleep = rec.sleep
	c.limiter.sleep = rec.sleep
	return c, rec
}

func TestAuthHeadersInjected(t *testing.T) {
	backend := &mock.Backend{}
	c, _ := newTestClient(backend, nil)

	if _, err := c.executor.Execute(&Request{Method: http.MethodGet, Endpoint: "/api/list-files"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, _, header, _ := backend.Request(0)
	if got := header.Get("Authorization"); got != "Bearer primary-token" {
		t.Errorf("expected bearer header, got %q", got)
	}
	if got := header.Get("X-GitHub-Token"); got != "gh-token" {
		t.Errorf("expected github token header, got %q", got)
	}
	if header.Get("X-Request-Id") == "" {
		t.Error("expected a request id header")
	}
}

func TestUnauthorizedTriggersSilentReauthAndRetry(t *testing.T) {
	backend := &mock.Backend{Script: []mock.Response{
		{StatusCode: http.StatusUnauthorized},
		{StatusCode: http.StatusOK}, // the silent authenticate call
		{StatusCode: http.StatusOK, Body: []byte(`{"success":true}`)},
	}}
	notifier := &recordingNotifier{}
	c, _ := newTestClient(backend, func(cfg *ClientConfig) { cfg.Notifier = notifier })

	resp, err := c.executor.Execute(&Request{Method: http.MethodGet, Endpoint: "/api/list-files"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 after re-auth, got %d", resp.StatusCode)
	}

	want := []string{
		"GET /api/list-files",
		"POST /api/authenticate",
		"GET /api/list-files",
	}
	got := backend.Paths()
	if len(got) != len(want) {
		t.Fatalf("expected requests %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected requests %v, got %v", want, got)
		}
	}
	if notifier.count() != 0 {
		t.Errorf("recovered 401 must not notify, got %v", notifier.calls)
	}
}

func TestRateLimitedRetryHonorsRetryAfter(t *testing.T) {
	backend := &mock.Backend{Script: []mock.Response{
		{StatusCode: http.StatusTooManyRequests, Headers: map[string]string{"Retry-After": "2"}},
		{StatusCode: http.StatusOK},
	}}
	c, rec := newTestClient(backend, nil)

	resp, err := c.executor.Execute(&Request{Method: http.MethodGet, Endpoint: "/api/list-files"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected eventual 200, got %d", resp.StatusCode)
	}
	if backend.RequestCount() != 2 {
		t.Fatalf("expected 2 attempts, got %d", backend.RequestCount())
	}
	if !rec.contains(2 * time.Second) {
		t.Errorf("expected a 2s retry-after sleep, recorded %v", rec.durations())
	}
}

func TestRateLimitedDefaultRetryAfter(t *testing.T) {
	backend := &mock.Backend{Script: []mock.Response{
		{StatusCode: http.StatusTooManyRequests},
		{StatusCode: http.StatusOK},
	}}
	c, rec := newTestClient(backend, nil)

	if _, err := c.executor.Execute(&Request{Method: http.MethodGet, Endpoint: "/api/list-files"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rec.contains(DefaultRetryAfter) {
		t.Errorf("expected the default retry-after sleep, recorded %v", rec.durations())
	}
}

func TestRetriesExhausted(t *testing.T) {
	backend := &mock.Backend{ShouldReturn429Always: true}
	notifier := &recordingNotifier{}
	c, _ := newTestClient(backend, func(cfg *ClientConfig) { cfg.Notifier = notifier })

	_, err := c.executor.Execute(&Request{
		Method:     http.MethodGet,
		Endpoint:   "/api/list-files",
		MaxRetries: 2,
	})
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", err)
	}
	// Budget 2 allows the initial attempt plus two retries.
	if backend.RequestCount() != 3 {
		t.Errorf("expected 3 attempts, got %d", backend.RequestCount())
	}
	if notifier.count() != 1 {
		t.Errorf("expected exactly one terminal notification, got %v", notifier.calls)
	}
}

func TestUnauthenticatedRouteSkipsAuthWait(t *testing.T) {
	backend := &mock.Backend{Script: []mock.Response{
		{StatusCode: http.StatusOK, Body: []byte(`["model-a"]`)},
	}}
	c, rec := newTestClient(backend, func(cfg *ClientConfig) {
		cfg.TokenSource = &fakeTokens{} // no token at all
	})

	if _, err := c.executor.Execute(&Request{Method: http.MethodGet, Endpoint: "/api/options/models"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.durations()) != 0 {
		t.Errorf("unauthenticated route must not wait for a token, slept %v", rec.durations())
	}
	_, _, header, _ := backend.Request(0)
	if header.Get("Authorization") != "" {
		t.Errorf("unexpected auth header %q", header.Get("Authorization"))
	}
	if backend.RequestCount() != 1 {
		t.Errorf("expected a single request, got %d", backend.RequestCount())
	}
}

func TestAuthenticatedCallWaitsForPendingLogin(t *testing.T) {
	backend := &mock.Backend{}
	c, rec := newTestClient(backend, func(cfg *ClientConfig) {
		// Token shows up on the second check, as if a login just finished.
		cfg.TokenSource = &fakeTokens{tokens: []string{"", "late-token"}}
	})

	if _, err := c.executor.Execute(&Request{Method: http.MethodGet, Endpoint: "/api/list-files"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rec.contains(DefaultAuthWaitDelay) {
		t.Errorf("expected an auth-wait sleep, recorded %v", rec.durations())
	}
	_, _, header, _ := backend.Request(0)
	if got := header.Get("Authorization"); got != "Bearer late-token" {
		t.Errorf("expected the late token, got %q", got)
	}
}

func TestClientErrorSurfacedNotRetried(t *testing.T) {
	backend := &mock.Backend{Script: []mock.Response{
		{StatusCode: http.StatusNotFound},
	}}
	notifier := &recordingNotifier{}
	c, _ := newTestClient(backend, func(cfg *ClientConfig) { cfg.Notifier = notifier })

	_, err := c.executor.Execute(&Request{Method: http.MethodGet, Endpoint: "/api/list-files"})
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.StatusCode != http.StatusNotFound || reqErr.URL != "/api/list-files" {
		t.Errorf("unexpected error detail: %+v", reqErr)
	}
	if backend.RequestCount() != 1 {
		t.Errorf("client errors must not retry, saw %d requests", backend.RequestCount())
	}
	if notifier.count() != 1 {
		t.Errorf("expected one notification, got %v", notifier.calls)
	}
}

func TestTransportErrorSurfaced(t *testing.T) {
	backend := &mock.Backend{Script: []mock.Response{
		{Err: errors.New("connection refused")},
	}}
	notifier := &recordingNotifier{}
	c, _ := newTestClient(backend, func(cfg *ClientConfig) { cfg.Notifier = notifier })

	if _, err := c.executor.Execute(&Request{Method: http.MethodGet, Endpoint: "/api/list-files"}); err == nil {
		t.Fatal("expected a transport error")
	}
	if notifier.count() != 1 || !strings.HasPrefix(notifier.calls[0], "Connection error") {
		t.Errorf("expected a connection error notification, got %v", notifier.calls)
	}
}

func TestSilentSuppressesNotifications(t *testing.T) {
	backend := &mock.Backend{Script: []mock.Response{
		{StatusCode: http.StatusInternalServerError},
	}}
	notifier := &recordingNotifier{}
	c, _ := newTestClient(backend, func(cfg *ClientConfig) { cfg.Notifier = notifier })

	if _, err := c.executor.Execute(&Request{
		Method:   http.MethodGet,
		Endpoint: "/api/list-files",
		Silent:   true,
	}); err == nil {
		t.Fatal("expected an error")
	}
	if notifier.count() != 0 {
		t.Errorf("silent request must not notify, got %v", notifier.calls)
	}
}

func TestDecodeFailureSurfaced(t *testing.T) {
	backend := &mock.Backend{Script: []mock.Response{
		{StatusCode: http.StatusOK, Body: []byte(`not json`)},
	}}
	notifier := &recordingNotifier{}
	c, _ := newTestClient(backend, func(cfg *ClientConfig) { cfg.Notifier = notifier })

	var out []string
	err := c.executor.ExecuteJSON(&Request{Method: http.MethodGet, Endpoint: "/api/list-files"}, &out)
	if err == nil {
		t.Fatal("expected a decode error")
	}
	if notifier.count() != 1 {
		t.Errorf("expected one notification, got %v", notifier.calls)
	}
}

func TestResponseHeadersUpdateQuota(t *testing.T) {
	backend := &mock.Backend{Script: []mock.Response{
		{StatusCode: http.StatusOK, Headers: map[string]string{
			"X-RateLimit-Remaining": "7",
			"X-RateLimit-Limit":     "50",
		}},
	}}
	c, _ := newTestClient(backend, nil)

	if _, err := c.executor.Execute(&Request{Method: http.MethodGet, Endpoint: "/api/list-files"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info := c.GetRateLimitInfo()
	if info.RemainingRequests == nil || *info.RemainingRequests != 7 {
		t.Errorf("expected remaining 7, got %v", info.RemainingRequests)
	}
	if info.MaxRequests == nil || *info.MaxRequests != 50 {
		t.Errorf("expected limit 50, got %v", info.MaxRequests)
	}
}
