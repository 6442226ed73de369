// Package auth provides user management for UserHub projects.
//
// The client exposes the account operations of the management API with the
// following features:
//
// - Full user enumeration as a lazy, resumable iterator (one page in flight)
// - CRUD operations with fluent create/update builders
// - Typed errors: a coarse ErrorCode on every failure plus a fine-grained
// AuthErrorCode when the backend supplied a recognized reason
// - Every backend failure funneled through one classifier, so callers branch
// on codes instead of matching message strings
//
// # Basic Usage
//
//	// Create the transport against your project
//	tc, err := transport.New(transport.DefaultConfig("acme-prod", tokenSource))
//	if err != nil {
//		return err
//	}
//
//	// Create the auth client
//	client, err := auth.New(auth.Config{Transport: tc})
//	if err != nil {
//		return err
//	}
//
//	user, err := client.GetUser(ctx, "uid-123")
//	if auth.IsUserNotFound(err) {
//		// no such account
//	}
//
// # Enumerating Users
//
//	it := client.Users(ctx, "")
//	for {
//		user, err := it.Next()
//		if errors.Is(err, auth.Done) {
//			break
//		}
//		if err != nil {
//			return err // terminal *AuthError, earlier records stay valid
//		}
//		fmt.Println(user.UID)
//	}
//
// Or with range-over-func:
//
//	for user, err := range client.Users(ctx, "").All() {
//		if err != nil {
//			return err
//		}
//		fmt.Println(user.UID)
//	}
//
// Enumeration is strictly serial: the iterator holds at most one page and
// issues the next fetch only after the previous one completed. Resume a walk
// later by saving it.PageToken() and passing it as startPageToken.
//
// # Error Handling
//
// Failed operations return *AuthError. Branch on the coarse code first, then
// on the fine-grained one when present:
//
//	switch auth.CodeOf(err) {
//	case auth.NotFound:
//		// look at auth.AuthCodeOf(err) / auth.IsUserNotFound(err)
//	case auth.ResourceExhausted:
//		// out of quota, back off until the window resets
//	}
//
// An unrecognized backend reason is not an error in itself: the AuthError
// still carries the coarse code, only AuthCode stays empty.
//
// # Custom Page Sources
//
// The iterator depends on the PageFetcher capability, not on the transport.
// Anything that can produce PageResult values can drive it:
//
//	fetcher := auth.PageFetcherFunc(func(ctx context.Context, maxResults int, pageToken string) (*auth.PageResult, error) {
//		// serve pages from a snapshot, a fixture file, another API, ...
//	})
//	it := auth.NewUserIterator(ctx, fetcher, 100, "")
package auth
