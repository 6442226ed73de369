package credentials

import (
	"context"
	"time"
)

// expiryLeeway is the window before expiry in which a token counts as stale.
// Refreshing inside the window keeps a minted token valid for the whole
// round trip it authorizes.
const expiryLeeway = 30 * time.Second

// Source mints access tokens together with their expiry. The expiry lets
// decorators such as CachedSource persist and share tokens safely.
type Source interface {
	TokenWithExpiry(ctx context.Context) (token string, expiry time.Time, err error)
}

// tokenResponse is the token endpoint's response payload.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}
