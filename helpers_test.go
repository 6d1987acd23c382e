package workbenchbridge

import (
	"sync"
	"testing"
	"time"
)

// sleepRecorder replaces time.Sleep in tests: it records requested delays
// and returns immediately.
type sleepRecorder struct {
	mu    sync.Mutex
	slept []time.Duration
}

func (s *sleepRecorder) sleep(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slept = append(s.slept, d)
}

func (s *sleepRecorder) durations() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.slept))
	copy(out, s.slept)
	return out
}

func (s *sleepRecorder) contains(d time.Duration) bool {
	for _, got := range s.durations() {
		if got == d {
			return true
		}
	}
	return false
}

// fakeTokens is a scriptable TokenSource: tokens[i] answers the i-th
// GetToken call, with the last entry repeating.
type fakeTokens struct {
	mu     sync.Mutex
	tokens []string
	github string
	calls  int
}

func (f *fakeTokens) GetToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tokens) == 0 {
		return ""
	}
	i := f.calls
	if i >= len(f.tokens) {
		i = len(f.tokens) - 1
	}
	f.calls++
	return f.tokens[i]
}

func (f *fakeTokens) GetGitHubToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.github
}

// recordingNotifier captures Error notifications.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *recordingNotifier) Error(topic, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, topic+": "+message)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
