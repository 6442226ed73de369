package tokencache

import (
	"strings"
)

// Key identifies a cached token. Tokens are scoped per project and per
// credential, so two clients with different credentials never share a token.
type Key struct {
	// ProjectID is the UserHub project the token was issued for
	ProjectID string

	// ClientID is the OAuth client or service account ID that requested the token
	ClientID string
}

// String generates a deterministic cache key string.
// Format: userhub:token:<project_id>:<client_id>
//
// Example:
//
//	userhub:token:acme-prod:svc-exporter
func (k Key) String() string {
	parts := []string{"userhub", "token"}

	if k.ProjectID != "" {
		parts = append(parts, k.ProjectID)
	}

	if k.ClientID != "" {
		parts = append(parts, k.ClientID)
	}

	return strings.Join(parts, ":")
}
