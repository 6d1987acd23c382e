// Package auth provides TokenSource implementations for the workbench
// client: fixed tokens, JWT-expiry-aware tokens, and oauth2 adapters.
package auth

import "sync"

// Static holds fixed primary and GitHub tokens. Useful for tests and for
// backends issuing opaque, non-expiring tokens.
type Static struct {
	token       string
	githubToken string
}

func NewStatic(token, githubToken string) *Static {
	return &Static{token: token, githubToken: githubToken}
}

func (s *Static) GetToken() string       { return s.token }
func (s *Static) GetGitHubToken() string { return s.githubToken }

// Mutable is a thread-safe token holder for callers that receive tokens
// asynchronously (e.g. after a login completes). An empty token makes the
// request layer wait for the login rather than fail.
type Mutable struct {
	mu          sync.RWMutex
	token       string
	githubToken string
}

func NewMutable() *Mutable {
	return &Mutable{}
}

func (m *Mutable) SetToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
}

func (m *Mutable) SetGitHubToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.githubToken = token
}

func (m *Mutable) GetToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

func (m *Mutable) GetGitHubToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.githubToken
}
