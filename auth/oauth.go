package auth

import (
	"sync"

	"golang.org/x/oauth2"
)

// OAuth adapts an oauth2.TokenSource (typically a refreshing source from an
// oauth2.Config) to the client's TokenSource interface. Token fetch errors
// map to "no token available", so the request layer waits and retries
// instead of dispatching an unauthenticated call.
type OAuth struct {
	source oauth2.TokenSource

	mu          sync.RWMutex
	githubToken string
}

func NewOAuth(source oauth2.TokenSource) *OAuth {
	return &OAuth{source: oauth2.ReuseTokenSource(nil, source)}
}

func (o *OAuth) GetToken() string {
	tok, err := o.source.Token()
	if err != nil || !tok.Valid() {
		return ""
	}
	return tok.AccessToken
}

func (o *OAuth) SetGitHubToken(token string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.githubToken = token
}

func (o *OAuth) GetGitHubToken() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.githubToken
}
