package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// ClientCredentialsConfig configures the OAuth2 client-credentials grant.
type ClientCredentialsConfig struct {
	// ClientID and ClientSecret identify the registered application.
	ClientID     string
	ClientSecret string

	// TokenURL is the token endpoint, e.g.
	// https://identity.userhub.io/oauth/token.
	TokenURL string

	// Scopes requested for the minted tokens.
	Scopes []string
}

// ClientCredentialsSource mints access tokens through the OAuth2
// client-credentials grant and reuses them until they approach expiry.
type ClientCredentialsSource struct {
	conf *clientcredentials.Config

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// NewClientCredentialsSource validates the config and builds the source.
func NewClientCredentialsSource(cfg ClientCredentialsConfig) (*ClientCredentialsSource, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.TokenURL == "" {
		return nil, errors.New("credentials: client credentials config incomplete")
	}

	return &ClientCredentialsSource{
		conf: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		},
	}, nil
}

// TokenWithExpiry returns the cached token while it is fresh and mints a new
// one through the token endpoint otherwise.
func (s *ClientCredentialsSource) TokenWithExpiry(ctx context.Context) (string, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Add(expiryLeeway).Before(s.expiry) {
		return s.token, s.expiry, nil
	}

	tok, err := s.conf.Token(ctx)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("credentials: client credentials exchange: %w", err)
	}
	if tok.AccessToken == "" {
		return "", time.Time{}, errors.New("credentials: empty access token in response")
	}

	s.token = tok.AccessToken
	s.expiry = tok.Expiry
	return s.token, s.expiry, nil
}

// Token implements the transport token source contract.
func (s *ClientCredentialsSource) Token(ctx context.Context) (string, error) {
	token, _, err := s.TokenWithExpiry(ctx)
	return token, err
}
