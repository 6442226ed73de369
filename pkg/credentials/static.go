package credentials

import (
	"context"
	"time"
)

// StaticSource returns a fixed token. Intended for tests and local
// development against emulators; static tokens never rotate.
type StaticSource struct {
	token string
}

// NewStaticSource creates a source that always returns the given token.
func NewStaticSource(token string) *StaticSource {
	return &StaticSource{token: token}
}

// Token implements the transport token source contract.
func (s *StaticSource) Token(ctx context.Context) (string, error) {
	return s.token, nil
}

// TokenWithExpiry reports a far-future expiry so caching decorators treat
// the token as permanently fresh.
func (s *StaticSource) TokenWithExpiry(ctx context.Context) (string, time.Time, error) {
	return s.token, time.Now().Add(24 * time.Hour), nil
}
