package credentials

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClientCredentialsSource_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      ClientCredentialsConfig
		expectError bool
	}{
		{
			name: "valid config",
			config: ClientCredentialsConfig{
				ClientID:     "svc-exporter",
				ClientSecret: "secret",
				TokenURL:     "https://identity.userhub.io/oauth/token",
			},
			expectError: false,
		},
		{
			name: "missing client ID",
			config: ClientCredentialsConfig{
				ClientSecret: "secret",
				TokenURL:     "https://identity.userhub.io/oauth/token",
			},
			expectError: true,
		},
		{
			name: "missing client secret",
			config: ClientCredentialsConfig{
				ClientID: "svc-exporter",
				TokenURL: "https://identity.userhub.io/oauth/token",
			},
			expectError: true,
		},
		{
			name: "missing token URL",
			config: ClientCredentialsConfig{
				ClientID:     "svc-exporter",
				ClientSecret: "secret",
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, err := NewClientCredentialsSource(tt.config)

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if source == nil {
				t.Error("Source is nil")
			}
		})
	}
}

// tokenEndpoint serves a client-credentials token endpoint and counts hits.
// The oauth2 library may send the client ID and secret either as form values
// or as basic auth, so both are accepted.
func tokenEndpoint(t *testing.T, hits *int, expiresIn int) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++

		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm failed: %v", err)
		}
		if got := r.FormValue("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type = %q, want %q", got, "client_credentials")
		}

		clientID := r.FormValue("client_id")
		if clientID == "" {
			clientID, _, _ = r.BasicAuth()
		}
		if clientID != "svc-exporter" {
			t.Errorf("client_id = %q, want %q", clientID, "svc-exporter")
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"cc-token-1","token_type":"Bearer","expires_in":%d}`, expiresIn)
	}))
}

func TestClientCredentialsSource_TokenExchange(t *testing.T) {
	hits := 0
	server := tokenEndpoint(t, &hits, 3600)
	defer server.Close()

	source, err := NewClientCredentialsSource(ClientCredentialsConfig{
		ClientID:     "svc-exporter",
		ClientSecret: "secret",
		TokenURL:     server.URL,
		Scopes:       []string{"userhub.admin"},
	})
	if err != nil {
		t.Fatalf("NewClientCredentialsSource failed: %v", err)
	}

	token, err := source.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() failed: %v", err)
	}
	if token != "cc-token-1" {
		t.Errorf("Token = %q, want %q", token, "cc-token-1")
	}
	if hits != 1 {
		t.Errorf("Token endpoint hits = %d, want 1", hits)
	}
}

func TestClientCredentialsSource_CachesToken(t *testing.T) {
	hits := 0
	server := tokenEndpoint(t, &hits, 3600)
	defer server.Close()

	source, err := NewClientCredentialsSource(ClientCredentialsConfig{
		ClientID:     "svc-exporter",
		ClientSecret: "secret",
		TokenURL:     server.URL,
	})
	if err != nil {
		t.Fatalf("NewClientCredentialsSource failed: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := source.Token(ctx); err != nil {
			t.Fatalf("Token() call %d failed: %v", i+1, err)
		}
	}

	// A long-lived token should be minted once and reused
	if hits != 1 {
		t.Errorf("Token endpoint hits = %d, want 1", hits)
	}
}

func TestClientCredentialsSource_RefreshesNearExpiry(t *testing.T) {
	hits := 0
	// 10s lifetime sits inside the leeway window, so every call re-mints
	server := tokenEndpoint(t, &hits, 10)
	defer server.Close()

	source, err := NewClientCredentialsSource(ClientCredentialsConfig{
		ClientID:     "svc-exporter",
		ClientSecret: "secret",
		TokenURL:     server.URL,
	})
	if err != nil {
		t.Fatalf("NewClientCredentialsSource failed: %v", err)
	}

	ctx := context.Background()
	if _, err := source.Token(ctx); err != nil {
		t.Fatalf("First Token() failed: %v", err)
	}
	if _, err := source.Token(ctx); err != nil {
		t.Fatalf("Second Token() failed: %v", err)
	}

	if hits != 2 {
		t.Errorf("Token endpoint hits = %d, want 2 (near-expiry tokens are stale)", hits)
	}
}

func TestClientCredentialsSource_ExchangeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer server.Close()

	source, err := NewClientCredentialsSource(ClientCredentialsConfig{
		ClientID:     "svc-exporter",
		ClientSecret: "wrong",
		TokenURL:     server.URL,
	})
	if err != nil {
		t.Fatalf("NewClientCredentialsSource failed: %v", err)
	}

	if _, err := source.Token(context.Background()); err == nil {
		t.Error("Expected error for rejected exchange, got nil")
	}
}
