// rate_limiter.go
// ----------------
// This file defines the RateLimiter type: a single-flight FIFO queue of
// outbound request units plus the client's view of the server-advertised
// quota.
//
// Responsibilities:
// - Serializing all outbound requests through one drain loop so at most one
//   unit is in flight at a time.
// - Computing a proactive backoff delay from the remaining/total quota ratio
//   before each dispatch.
// - Re-inserting a unit at the front of the queue when it signals a 429,
//   doubling an internal reactive backoff each time.
// - Storing rate limit info parsed from response headers and notifying
//   registered listeners on every update.
package workbenchbridge

import (
	"strconv"
	"sync"
	"time"

	"github.com/opengovern/workbench-bridge/internal"
)

// maxReactiveBackoff caps the doubling reactive backoff.
const maxReactiveBackoff = 30 * time.Second

type operationResult struct {
	resp *Response
	err  error
}

// queuedOperation is one unit of work awaiting its turn on the queue. The
// result channel is buffered so the drain loop never blocks on settlement.
type queuedOperation struct {
	execute func() (*Response, error)
	result  chan operationResult
}

// RateLimiter owns the request queue and the shared RateLimitInfo record.
// All mutation happens under one mutex, from the enqueue entry point or the
// single drain goroutine.
type RateLimiter struct {
	mu         sync.Mutex
	queue      []*queuedOperation
	processing bool

	info            RateLimitInfo
	baseBackoff     time.Duration
	reactiveBackoff time.Duration // doubles per 429 signal, reset on settle
	listeners       []RateLimitListener

	sleep func(time.Duration) // swapped out in tests
}

func NewRateLimiter(baseBackoff time.Duration) *RateLimiter {
	if baseBackoff <= 0 {
		baseBackoff = DefaultBaseBackoff
	}
	return &RateLimiter{
		baseBackoff: baseBackoff,
		sleep:       time.Sleep,
	}
}

// Enqueue appends a unit to the tail of the queue, starts the drain loop if
// none is running, and blocks until the unit settles.
func (r *RateLimiter) Enqueue(execute func() (*Response, error)) (*Response, error) {
	op := &queuedOperation{
		execute: execute,
		result:  make(chan operationResult, 1),
	}
	r.mu.Lock()
	r.queue = append(r.queue, op)
	if !r.processing {
		r.processing = true
		go r.drain()
	}
	r.mu.Unlock()

	res := <-op.result
	return res.resp, res.err
}

// drain executes queued units one at a time. It is never re-entrant: the
// processing flag is only cleared here, under the same lock that observes
// the queue empty, so enqueue/exit cannot strand a unit.
func (r *RateLimiter) drain() {
	for {
		r.mu.Lock()
		if len(r.queue) == 0 {
			r.processing = false
			r.mu.Unlock()
			return
		}
		delay := r.proactiveDelayLocked()
		r.mu.Unlock()

		if delay > 0 {
			r.sleep(delay)
		}

		r.mu.Lock()
		op := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()

		resp, err := op.execute()
		if IsRateLimited(err) {
			// The unit hit a 429. Put it back at the front so its retry runs
			// ahead of later-enqueued work, double the reactive backoff, and
			// wait before touching the queue again. The unit stays unsettled.
			r.mu.Lock()
			r.queue = append([]*queuedOperation{op}, r.queue...)
			if r.reactiveBackoff == 0 {
				r.reactiveBackoff = r.baseBackoff
			}
			r.reactiveBackoff *= 2
			if r.reactiveBackoff > maxReactiveBackoff {
				r.reactiveBackoff = maxReactiveBackoff
			}
			wait := r.reactiveBackoff
			r.mu.Unlock()

			r.sleep(wait)
			continue
		}

		r.mu.Lock()
		r.reactiveBackoff = 0
		r.mu.Unlock()
		op.result <- operationResult{resp: resp, err: err}
	}
}

// proactiveDelayLocked maps the remaining/total ratio onto a step function.
// Unknown or unbounded quota means no delay.
func (r *RateLimiter) proactiveDelayLocked() time.Duration {
	info := r.info
	if info.RemainingRequests == nil || info.MaxRequests == nil || *info.MaxRequests <= 0 {
		return 0
	}
	pct := float64(*info.RemainingRequests) / float64(*info.MaxRequests)
	switch {
	case pct > 0.5:
		return 0
	case pct > 0.2:
		return r.baseBackoff
	case pct > 0.1:
		return 2 * r.baseBackoff
	default:
		return 4 * r.baseBackoff
	}
}

// UpdateFromHeaders refreshes the stored quota from x-ratelimit-* response
// headers (lowercased keys). Headers are a hint: any header that is missing
// or unparsable leaves the corresponding field untouched, and a response with
// no rate limit headers at all does not notify listeners.
func (r *RateLimiter) UpdateFromHeaders(headers map[string]string) {
	if len(headers) == 0 {
		return
	}

	r.mu.Lock()
	updated := false
	if v, ok := headers["x-ratelimit-remaining"]; ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			r.info.RemainingRequests = &n
			updated = true
		}
	}
	if v, ok := headers["x-ratelimit-limit"]; ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			r.info.MaxRequests = &n
			updated = true
		}
	}
	if v, ok := headers["x-ratelimit-reset"]; ok {
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
			ms := internal.UnixToMs(secs)
			r.info.ResetAt = &ms
			updated = true
		}
	}
	var snapshot RateLimitInfo
	var listeners []RateLimitListener
	if updated {
		snapshot = r.info.clone()
		listeners = r.listeners
	}
	r.mu.Unlock()

	if !updated {
		return
	}
	for _, l := range listeners {
		l(snapshot.clone())
	}
}

// AddListener registers a listener invoked with a snapshot after every quota
// update. Listeners are display-only and never influence scheduling.
func (r *RateLimiter) AddListener(l RateLimitListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// GetRateLimitInfo returns a deep copy of the current quota state. Mutating
// the returned value never affects the limiter.
func (r *RateLimiter) GetRateLimitInfo() RateLimitInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.info.clone()
}
