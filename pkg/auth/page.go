package auth

import (
	"context"
	"errors"
)

// PageFetcher retrieves one page of user records. It is the capability the
// iterator drives: implementations own the transport, credentials, and any
// retry behavior, while the iterator owns nothing but the cursor walk.
//
// maxResults is passed through from the caller on every fetch, including
// continuations; implementations clamp or reject it as their backend
// requires. pageToken is "" for the start of the collection, otherwise
// exactly the NextPageToken of the previous page.
type PageFetcher interface {
	FetchPage(ctx context.Context, maxResults int, pageToken string) (*PageResult, error)
}

// PageFetcherFunc adapts a plain function to the PageFetcher interface.
type PageFetcherFunc func(ctx context.Context, maxResults int, pageToken string) (*PageResult, error)

// FetchPage implements PageFetcher.
func (f PageFetcherFunc) FetchPage(ctx context.Context, maxResults int, pageToken string) (*PageResult, error) {
	return f(ctx, maxResults, pageToken)
}

// PageResult is one immutable page of an enumeration: the records in
// backend order plus the cursor for the page after it. A nil token marks the
// final page.
type PageResult struct {
	users         []*ExportedUserRecord
	nextPageToken *string
}

// NewPageResult builds a page from the records and the optional continuation
// token. The token must be nil (final page) or non-empty; a pointer to the
// empty string is rejected because an empty cursor could never resume
// anything. Ownership of the users slice passes to the PageResult.
func NewPageResult(users []*ExportedUserRecord, nextPageToken *string) (*PageResult, error) {
	if nextPageToken != nil && *nextPageToken == "" {
		return nil, errors.New("next page token must be nil or non-empty")
	}

	return &PageResult{
		users:         users,
		nextPageToken: nextPageToken,
	}, nil
}

// Users returns the page's records in backend order. The slice may be empty;
// an empty page is valid whether or not it is the final one.
func (p *PageResult) Users() []*ExportedUserRecord {
	return p.users
}

// NextPageToken returns the continuation cursor and whether one exists.
func (p *PageResult) NextPageToken() (string, bool) {
	if p.nextPageToken == nil {
		return "", false
	}
	return *p.nextPageToken, true
}

// IsEndOfList reports whether this is the final page of the enumeration.
// It is true exactly when NextPageToken reports no cursor.
func (p *PageResult) IsEndOfList() bool {
	return p.nextPageToken == nil
}
