package tokencache

import (
	"time"
)

// Entry represents a cached access token.
type Entry struct {
	// AccessToken is the bearer token value
	AccessToken string `json:"access_token"`

	// TokenType is the token type as issued (normally "Bearer")
	TokenType string `json:"token_type"`

	// Expiry is when the token stops being accepted by the backend
	Expiry time.Time `json:"expiry"`

	// CachedAt is when we cached this token
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired returns true if the token has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expiry)
}

// ExpiresWithin returns true if the token expires within the given leeway.
// Callers should treat such entries as misses so a request never leaves the
// process with a token about to lapse mid-flight.
func (e *Entry) ExpiresWithin(leeway time.Duration) bool {
	return time.Now().Add(leeway).After(e.Expiry)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expiry)
	if ttl < 0 {
		return 0
	}
	return ttl
}
