// Package credentials provides token sources for authorizing UserHub
// management API requests.
//
// Every source satisfies the transport token source contract
// (Token(ctx) (string, error)) and additionally reports token expiry
// through TokenWithExpiry, which lets decorators cache and share tokens:
//
//   - ClientCredentialsSource - OAuth2 client-credentials grant for
//     server-side applications with a client ID and secret
//   - ServiceAccountSource - signs RS256 JWT assertions from a
//     service-account key file and exchanges them (JWT-bearer grant)
//   - CachedSource - redis-backed decorator that shares one token across
//     processes through pkg/tokencache
//   - StaticSource - fixed token for tests and emulators
//
// # Basic Usage
//
//	// Client-credentials grant
//	source, err := credentials.NewClientCredentialsSource(credentials.ClientCredentialsConfig{
//		ClientID:     os.Getenv("USERHUB_CLIENT_ID"),
//		ClientSecret: os.Getenv("USERHUB_CLIENT_SECRET"),
//		TokenURL:     "https://identity.userhub.io/oauth/token",
//	})
//	if err != nil {
//		return err
//	}
//
//	token, err := source.Token(ctx)
//
// # Service Accounts
//
//	// From the JSON key file issued by the UserHub console
//	source, err := credentials.NewServiceAccountSourceFromFile("key.json")
//	if err != nil {
//		return err
//	}
//
// # Sharing Tokens Across Processes
//
//	// Wrap any source so replicas reuse one token instead of minting
//	// their own
//	manager := tokencache.NewManager(redisClient)
//	shared := credentials.NewCachedSource(source, manager, tokencache.Key{
//		ProjectID: "acme-prod",
//		ClientID:  "svc-exporter",
//	})
//
// All sources refresh eagerly: a token that expires within the leeway window
// counts as stale, so a request never leaves the process with a token about
// to lapse mid-flight.
package credentials
