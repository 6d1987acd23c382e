package auth

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// JWTSource holds a bearer token that is a JWT and treats an expired token
// as absent: GetToken returns "" once the exp claim has passed, which sends
// the request layer down its wait-for-login path instead of letting it burn
// retries on guaranteed 401s.
type JWTSource struct {
	mu          sync.RWMutex
	token       string
	githubToken string
	parser      *jwt.Parser
	now         func() time.Time
}

func NewJWTSource() *JWTSource {
	return &JWTSource{
		parser: jwt.NewParser(),
		now:    time.Now,
	}
}

func (j *JWTSource) SetToken(token string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.token = token
}

func (j *JWTSource) SetGitHubToken(token string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.githubToken = token
}

// GetToken returns the stored token, or "" when none is set, the token is
// not a decodable JWT, or its exp claim has passed. The signature is not
// verified here; that is the server's job.
func (j *JWTSource) GetToken() string {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.token == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := j.parser.ParseUnverified(j.token, claims); err != nil {
		return ""
	}
	if !claims.VerifyExpiresAt(j.now().Unix(), false) {
		return ""
	}
	return j.token
}

func (j *JWTSource) GetGitHubToken() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.githubToken
}
