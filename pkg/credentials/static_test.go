package credentials

import (
	"context"
	"testing"
	"time"
)

func TestStaticSource(t *testing.T) {
	source := NewStaticSource("fixed-token")

	token, err := source.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() failed: %v", err)
	}
	if token != "fixed-token" {
		t.Errorf("Token = %q, want %q", token, "fixed-token")
	}

	_, expiry, err := source.TokenWithExpiry(context.Background())
	if err != nil {
		t.Fatalf("TokenWithExpiry() failed: %v", err)
	}
	if !expiry.After(time.Now().Add(time.Hour)) {
		t.Errorf("Expiry = %v, want far future", expiry)
	}
}
