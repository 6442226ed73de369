package credentials

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// grantTypeJWTBearer is the JWT-bearer grant type identifier (RFC 7523).
const grantTypeJWTBearer = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// assertionLifetime bounds how long a signed assertion stays valid.
const assertionLifetime = time.Hour

// ServiceAccount mirrors the JSON key file issued when a UserHub service
// account is created.
type ServiceAccount struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	TokenURI     string `json:"token_uri"`
}

// ServiceAccountSource signs RS256 JWT assertions with a service-account key
// and exchanges them for access tokens (JWT-bearer grant). Tokens are reused
// until they approach expiry.
type ServiceAccountSource struct {
	account    ServiceAccount
	privateKey *rsa.PrivateKey
	scopes     []string
	httpClient *http.Client

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// assertionClaims is the internal claims type used for assertion signing.
type assertionClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope,omitempty"`
}

// NewServiceAccountSource validates the key material and builds the source.
func NewServiceAccountSource(account ServiceAccount, scopes ...string) (*ServiceAccountSource, error) {
	if account.ClientEmail == "" || account.PrivateKey == "" || account.TokenURI == "" {
		return nil, errors.New("credentials: service account key incomplete")
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(account.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("credentials: parse service account private key: %w", err)
	}

	return &ServiceAccountSource{
		account:    account,
		privateKey: key,
		scopes:     scopes,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// NewServiceAccountSourceFromJSON builds a source from raw key file contents.
func NewServiceAccountSourceFromJSON(data []byte, scopes ...string) (*ServiceAccountSource, error) {
	var account ServiceAccount
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("credentials: parse service account JSON: %w", err)
	}
	return NewServiceAccountSource(account, scopes...)
}

// NewServiceAccountSourceFromFile builds a source from a key file on disk.
func NewServiceAccountSourceFromFile(path string, scopes ...string) (*ServiceAccountSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("credentials: read service account file: %w", err)
	}
	return NewServiceAccountSourceFromJSON(data, scopes...)
}

// TokenWithExpiry returns the cached token while it is fresh; otherwise it
// signs a new assertion and exchanges it at the token endpoint.
func (s *ServiceAccountSource) TokenWithExpiry(ctx context.Context) (string, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Add(expiryLeeway).Before(s.expiry) {
		return s.token, s.expiry, nil
	}

	assertion, err := s.signAssertion()
	if err != nil {
		return "", time.Time{}, err
	}

	payload, err := s.exchange(ctx, assertion)
	if err != nil {
		return "", time.Time{}, err
	}

	s.token = payload.AccessToken
	s.expiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	return s.token, s.expiry, nil
}

// Token implements the transport token source contract.
func (s *ServiceAccountSource) Token(ctx context.Context) (string, error) {
	token, _, err := s.TokenWithExpiry(ctx)
	return token, err
}

// signAssertion builds and signs the JWT-bearer assertion.
func (s *ServiceAccountSource) signAssertion() (string, error) {
	now := time.Now()
	claims := assertionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.account.ClientEmail,
			Subject:   s.account.ClientEmail,
			Audience:  jwt.ClaimStrings{s.account.TokenURI},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(assertionLifetime)),
		},
	}
	if len(s.scopes) > 0 {
		claims.Scope = strings.Join(s.scopes, " ")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if s.account.PrivateKeyID != "" {
		token.Header["kid"] = s.account.PrivateKeyID
	}

	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("credentials: sign assertion: %w", err)
	}
	return signed, nil
}

// exchange swaps a signed assertion for an access token.
func (s *ServiceAccountSource) exchange(ctx context.Context, assertion string) (*tokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", grantTypeJWTBearer)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.account.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("credentials: new token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("credentials: token exchange failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("credentials: token exchange unexpected status %d", res.StatusCode)
	}

	var payload tokenResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("credentials: decode token response: %w", err)
	}

	if payload.AccessToken == "" {
		return nil, errors.New("credentials: empty access token in response")
	}

	return &payload, nil
}
