package workbenchbridge

// TokenSource supplies the current credentials for outbound requests.
// An empty string means "no token available right now"; the executor treats
// a missing primary token on an authenticated route as a login still in
// flight and waits before retrying.
type TokenSource interface {
	GetToken() string
	GetGitHubToken() string
}

// Cache is a key/value store used to memoize idempotent GET responses.
// Values are the raw response bodies; invalidation is always explicit.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Delete(key string)
}

// Notifier receives user-visible error notifications for terminal request
// failures. A nil Notifier drops everything; Request.Silent suppresses
// notifications per call.
type Notifier interface {
	Error(topic, message string)
}

// RateLimitListener observes quota updates parsed from response headers.
// Listeners are for display only and must not block.
type RateLimitListener func(info RateLimitInfo)
