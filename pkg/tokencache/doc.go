// Package tokencache provides shared access-token caching with Redis backend.
//
// Management API tokens are valid for up to an hour, and every process that
// holds credentials for the same project can reuse the same token. Caching the
// token in Redis avoids a token-endpoint round trip per process and keeps the
// token-endpoint rate limit budget intact for fleets of short-lived workers.
//
// # Basic Usage
//
//	// Create Redis client
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	// Create cache manager
//	manager := tokencache.NewManager(redisClient)
//
//	// Create cache key
//	key := tokencache.Key{
//		ProjectID: "acme-prod",
//		ClientID:  "svc-exporter",
//	}
//
//	// Get from cache
//	entry, err := manager.Get(ctx, key)
//	if err == tokencache.ErrCacheMiss {
//		// Cache miss - fetch a fresh token from the token endpoint
//	}
//
// # Storing Tokens
//
//	entry := &tokencache.Entry{
//		AccessToken: token,
//		TokenType:   "Bearer",
//		Expiry:      expiry,
//		CachedAt:    time.Now(),
//	}
//	if err := manager.Set(ctx, key, entry); err != nil {
//		return err
//	}
//
// The Redis TTL is derived from the entry's Expiry, so stale tokens evict
// themselves. Consumers should still treat entries expiring within their
// refresh leeway as misses (see Entry.ExpiresWithin).
//
// # Metrics
//
// The cache manager exports Prometheus metrics:
//
//   - userhub_token_cache_hits_total - Cache hits
//   - userhub_token_cache_misses_total - Cache misses
//   - userhub_token_cache_errors_total{operation} - Cache operation errors
package tokencache
