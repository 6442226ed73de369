package auth

import (
	"context"
	"errors"
	"iter"
)

// Done is returned by UserIterator.Next once the enumeration is exhausted.
// It is a clean end-of-list signal, not a failure.
var Done = errors.New("no more users")

// UserIterator walks the full user set of a project as one flat, lazily
// produced sequence. It buffers at most one page: each advance past a page
// boundary issues exactly one fetch, strictly after the previous fetch
// completed, with no prefetching and no overlapping requests.
//
// Iterators are not safe for concurrent use. Run one iterator per goroutine;
// independent iterators over the same project are fine.
type UserIterator struct {
	ctx        context.Context
	fetcher    PageFetcher
	maxResults int

	buf        []*ExportedUserRecord
	pos        int
	nextToken  string
	reachedEnd bool
	err        error
}

// NewUserIterator starts an enumeration through the given fetch capability.
// startPageToken resumes after a previously observed cursor; "" starts at the
// beginning of the collection. maxResults is handed to the fetcher verbatim
// on every page and must be positive per the PageFetcher contract — callers
// wanting a default should go through Client.Users, which applies
// DefaultPageSize before the iterator ever sees the value.
func NewUserIterator(ctx context.Context, fetcher PageFetcher, maxResults int, startPageToken string) *UserIterator {
	return &UserIterator{
		ctx:        ctx,
		fetcher:    fetcher,
		maxResults: maxResults,
		nextToken:  startPageToken,
	}
}

// Next returns the next user record. It returns Done once the final record
// of the final page has been consumed, or a terminal *AuthError when a page
// fetch fails. Both outcomes are sticky: every later call returns the same
// value, and records from pages before the failure remain valid.
func (it *UserIterator) Next() (*ExportedUserRecord, error) {
	if it.err != nil {
		return nil, it.err
	}

	// Empty pages are valid, so draining the buffer may take several
	// fetches before a record or the end of the list shows up.
	for it.pos >= len(it.buf) {
		if it.reachedEnd {
			it.err = Done
			return nil, Done
		}
		if err := it.fetchNextPage(); err != nil {
			it.err = err
			return nil, err
		}
	}

	user := it.buf[it.pos]
	it.pos++
	return user, nil
}

// fetchNextPage issues exactly one fetch for the page at the current cursor
// and replaces the buffer with its records. The continuation token is taken
// from the result as-is; the iterator never synthesizes one.
func (it *UserIterator) fetchNextPage() error {
	page, err := it.fetcher.FetchPage(it.ctx, it.maxResults, it.nextToken)
	if err != nil {
		// Classification passes an existing AuthError through
		// unchanged, so fetchers that already classify lose nothing.
		return classifyError(err)
	}

	it.buf = page.Users()
	it.pos = 0

	if token, ok := page.NextPageToken(); ok {
		it.nextToken = token
	} else {
		it.nextToken = ""
		it.reachedEnd = true
	}
	return nil
}

// PageToken returns the cursor the next fetch would use: pass it as the
// startPageToken of a new iterator to resume the walk at the current page
// boundary. It is "" both before a from-the-start iterator's first fetch and
// after the final page has been fetched. Records still buffered from the
// current page are skipped by a resume, so read it at page boundaries —
// after Next returned Done or an error, or before the first Next.
func (it *UserIterator) PageToken() string {
	return it.nextToken
}

// All adapts the iterator for range-over-func consumption. The sequence
// yields each record with a nil error, then stops — silently on clean
// exhaustion, after yielding a final (nil, *AuthError) pair on fetch
// failure. The sequence is single-use, like the iterator itself.
func (it *UserIterator) All() iter.Seq2[*ExportedUserRecord, error] {
	return func(yield func(*ExportedUserRecord, error) bool) {
		for {
			user, err := it.Next()
			if errors.Is(err, Done) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(user, nil) {
				return
			}
		}
	}
}
