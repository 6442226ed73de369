package credentials

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/userhub/userhub-admin-go/pkg/tokencache"
)

// CachedSource shares tokens across processes through the redis-backed token
// cache. Cache reads and writes are best-effort: a broken cache degrades to
// minting through the wrapped source, never to a failed request.
type CachedSource struct {
	inner  Source
	cache  *tokencache.Manager
	key    tokencache.Key
	logger zerolog.Logger
}

// NewCachedSource wraps inner so minted tokens are published under key and
// reused by every process sharing the cache.
func NewCachedSource(inner Source, cache *tokencache.Manager, key tokencache.Key) *CachedSource {
	return &CachedSource{
		inner:  inner,
		cache:  cache,
		key:    key,
		logger: log.With().Str("component", "credentials").Logger(),
	}
}

// TokenWithExpiry serves from the shared cache when a fresh entry exists and
// falls back to the wrapped source otherwise, publishing what it minted.
func (s *CachedSource) TokenWithExpiry(ctx context.Context) (string, time.Time, error) {
	entry, err := s.cache.Get(ctx, s.key)
	if err == nil && !entry.ExpiresWithin(expiryLeeway) {
		return entry.AccessToken, entry.Expiry, nil
	}
	if err != nil && err != tokencache.ErrCacheMiss {
		s.logger.Warn().Err(err).Msg("Token cache read failed")
	}

	token, expiry, err := s.inner.TokenWithExpiry(ctx)
	if err != nil {
		return "", time.Time{}, err
	}

	if setErr := s.cache.Set(ctx, s.key, &tokencache.Entry{
		AccessToken: token,
		TokenType:   "Bearer",
		Expiry:      expiry,
		CachedAt:    time.Now(),
	}); setErr != nil {
		s.logger.Warn().Err(setErr).Msg("Token cache write failed")
	}

	return token, expiry, nil
}

// Token implements the transport token source contract.
func (s *CachedSource) Token(ctx context.Context) (string, error) {
	token, _, err := s.TokenWithExpiry(ctx)
	return token, err
}
