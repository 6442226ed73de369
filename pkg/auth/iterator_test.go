package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/userhub/userhub-admin-go/pkg/transport"
)

// fakeCall records the arguments of one FetchPage invocation.
type fakeCall struct {
	maxResults int
	pageToken  string
}

// fakePage scripts one FetchPage outcome.
type fakePage struct {
	uids  []string
	token *string
	err   error
}

// fakeFetcher serves scripted pages in order and records every call.
type fakeFetcher struct {
	pages []fakePage
	calls []fakeCall
}

func (f *fakeFetcher) FetchPage(ctx context.Context, maxResults int, pageToken string) (*PageResult, error) {
	f.calls = append(f.calls, fakeCall{maxResults: maxResults, pageToken: pageToken})

	if len(f.pages) == 0 {
		return nil, errors.New("fetch beyond scripted pages")
	}
	page := f.pages[0]
	f.pages = f.pages[1:]

	if page.err != nil {
		return nil, page.err
	}
	return NewPageResult(testUsers(page.uids...), page.token)
}

// drainIterator pulls until Done or a terminal failure and returns the uids
// observed on the way.
func drainIterator(t *testing.T, it *UserIterator) ([]string, error) {
	t.Helper()

	var uids []string
	for {
		user, err := it.Next()
		if errors.Is(err, Done) {
			return uids, nil
		}
		if err != nil {
			return uids, err
		}
		uids = append(uids, user.UID)
	}
}

func TestUserIterator_TwoFetchEnumeration(t *testing.T) {
	fetcher := &fakeFetcher{pages: []fakePage{
		{uids: []string{"u1", "u2"}, token: stringPtr("tok1")},
		{uids: []string{"u3"}},
	}}

	it := NewUserIterator(context.Background(), fetcher, DefaultPageSize, "")

	uids, err := drainIterator(t, it)
	if err != nil {
		t.Fatalf("enumeration failed: %v", err)
	}

	if diff := cmp.Diff([]string{"u1", "u2", "u3"}, uids); diff != "" {
		t.Errorf("user sequence mismatch (-want +got):\n%s", diff)
	}

	wantCalls := []fakeCall{
		{maxResults: 1000, pageToken: ""},
		{maxResults: 1000, pageToken: "tok1"},
	}
	if diff := cmp.Diff(wantCalls, fetcher.calls, cmp.AllowUnexported(fakeCall{})); diff != "" {
		t.Errorf("fetch calls mismatch (-want +got):\n%s", diff)
	}
}

func TestUserIterator_FlattensPagesInOrder(t *testing.T) {
	fetcher := &fakeFetcher{pages: []fakePage{
		{uids: []string{"u1", "u2", "u3"}, token: stringPtr("tok1")},
		{uids: []string{"u4"}, token: stringPtr("tok2")},
		{uids: []string{"u5", "u6"}},
	}}

	it := NewUserIterator(context.Background(), fetcher, 3, "")

	uids, err := drainIterator(t, it)
	if err != nil {
		t.Fatalf("enumeration failed: %v", err)
	}

	if diff := cmp.Diff([]string{"u1", "u2", "u3", "u4", "u5", "u6"}, uids); diff != "" {
		t.Errorf("user sequence mismatch (-want +got):\n%s", diff)
	}
	if len(fetcher.calls) != 3 {
		t.Errorf("fetch calls = %d, want 3", len(fetcher.calls))
	}

	// The token chain must be exactly the tokens the pages returned.
	wantTokens := []string{"", "tok1", "tok2"}
	for i, call := range fetcher.calls {
		if call.pageToken != wantTokens[i] {
			t.Errorf("call %d pageToken = %q, want %q", i, call.pageToken, wantTokens[i])
		}
	}
}

func TestUserIterator_EmptyCollection(t *testing.T) {
	fetcher := &fakeFetcher{pages: []fakePage{{}}}

	it := NewUserIterator(context.Background(), fetcher, 10, "")

	uids, err := drainIterator(t, it)
	if err != nil {
		t.Fatalf("enumeration failed: %v", err)
	}
	if len(uids) != 0 {
		t.Errorf("got %d users from an empty collection", len(uids))
	}
	if len(fetcher.calls) != 1 {
		t.Errorf("fetch calls = %d, want 1", len(fetcher.calls))
	}
}

func TestUserIterator_EmptyTerminalPage(t *testing.T) {
	fetcher := &fakeFetcher{pages: []fakePage{
		{uids: []string{"u1"}, token: stringPtr("tok1")},
		{},
	}}

	it := NewUserIterator(context.Background(), fetcher, 10, "")

	uids, err := drainIterator(t, it)
	if err != nil {
		t.Fatalf("enumeration failed: %v", err)
	}
	if diff := cmp.Diff([]string{"u1"}, uids); diff != "" {
		t.Errorf("user sequence mismatch (-want +got):\n%s", diff)
	}
	if len(fetcher.calls) != 2 {
		t.Errorf("fetch calls = %d, want 2", len(fetcher.calls))
	}
}

func TestUserIterator_EmptyMiddlePage(t *testing.T) {
	// A page with zero records but a continuation token is valid; one Next
	// call walks through it to the next record.
	fetcher := &fakeFetcher{pages: []fakePage{
		{token: stringPtr("tok1")},
		{uids: []string{"u1"}},
	}}

	it := NewUserIterator(context.Background(), fetcher, 10, "")

	user, err := it.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if user.UID != "u1" {
		t.Errorf("UID = %q, want %q", user.UID, "u1")
	}
	if len(fetcher.calls) != 2 {
		t.Errorf("fetch calls = %d, want 2", len(fetcher.calls))
	}

	if _, err := it.Next(); !errors.Is(err, Done) {
		t.Errorf("Next after last record = %v, want Done", err)
	}
}

func TestUserIterator_DoneIsSticky(t *testing.T) {
	fetcher := &fakeFetcher{pages: []fakePage{{uids: []string{"u1"}}}}

	it := NewUserIterator(context.Background(), fetcher, 10, "")

	if _, err := drainIterator(t, it); err != nil {
		t.Fatalf("enumeration failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := it.Next(); !errors.Is(err, Done) {
			t.Fatalf("Next after exhaustion = %v, want Done", err)
		}
	}
	if len(fetcher.calls) != 1 {
		t.Errorf("fetch calls = %d, want 1: exhausted iterator must not fetch", len(fetcher.calls))
	}
}

func TestUserIterator_FailureMidSequence(t *testing.T) {
	fetchErr := &transport.Error{
		StatusCode: 503,
		Class:      transport.ErrorClassServer,
		Message:    "backend unavailable",
	}
	fetcher := &fakeFetcher{pages: []fakePage{
		{uids: []string{"u1", "u2"}, token: stringPtr("tok1")},
		{err: fmt.Errorf("request failed: %w", fetchErr)},
	}}

	it := NewUserIterator(context.Background(), fetcher, 10, "")

	uids, err := drainIterator(t, it)
	if err == nil {
		t.Fatal("expected a terminal error")
	}

	// Records from the pages before the failure were yielded and stay valid.
	if diff := cmp.Diff([]string{"u1", "u2"}, uids); diff != "" {
		t.Errorf("user sequence mismatch (-want +got):\n%s", diff)
	}

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("terminal error is %T, want *AuthError", err)
	}
	if authErr.Code != Unavailable {
		t.Errorf("Code = %s, want %s", authErr.Code, Unavailable)
	}

	// Sticky: the same terminal error comes back, with no further fetches.
	_, err2 := it.Next()
	if err2 != err {
		t.Errorf("second Next returned %v, want the same terminal error", err2)
	}
	if len(fetcher.calls) != 2 {
		t.Errorf("fetch calls = %d, want 2: failed iterator must not fetch", len(fetcher.calls))
	}

	// The cursor still points at the failed page, so a new iterator can
	// retry from there.
	if got := it.PageToken(); got != "tok1" {
		t.Errorf("PageToken after failure = %q, want %q", got, "tok1")
	}
}

func TestUserIterator_FailureOnFirstPage(t *testing.T) {
	fetcher := &fakeFetcher{pages: []fakePage{
		{err: errors.New("dial tcp: connection refused")},
	}}

	it := NewUserIterator(context.Background(), fetcher, 10, "")

	uids, err := drainIterator(t, it)
	if err == nil {
		t.Fatal("expected a terminal error")
	}
	if len(uids) != 0 {
		t.Errorf("got %d users before the failure, want 0", len(uids))
	}
	if CodeOf(err) != Unavailable {
		t.Errorf("CodeOf = %s, want %s", CodeOf(err), Unavailable)
	}
}

func TestUserIterator_ClassifiedErrorPassesThroughUnchanged(t *testing.T) {
	want := &AuthError{Code: PermissionDenied, Message: "caller may not list users"}
	fetcher := &fakeFetcher{pages: []fakePage{{err: want}}}

	it := NewUserIterator(context.Background(), fetcher, 10, "")

	_, err := it.Next()
	if err != want {
		t.Errorf("Next returned %v, want the fetcher's AuthError unchanged", err)
	}
}

func TestUserIterator_MaxResultsPassedThroughVerbatim(t *testing.T) {
	fetcher := &fakeFetcher{pages: []fakePage{
		{uids: []string{"u1"}, token: stringPtr("tok1")},
		{uids: []string{"u2"}, token: stringPtr("tok2")},
		{},
	}}

	it := NewUserIterator(context.Background(), fetcher, 7, "")
	if _, err := drainIterator(t, it); err != nil {
		t.Fatalf("enumeration failed: %v", err)
	}

	for i, call := range fetcher.calls {
		if call.maxResults != 7 {
			t.Errorf("call %d maxResults = %d, want 7", i, call.maxResults)
		}
	}
}

func TestUserIterator_StartPageToken(t *testing.T) {
	fetcher := &fakeFetcher{pages: []fakePage{{uids: []string{"u6"}}}}

	it := NewUserIterator(context.Background(), fetcher, 10, "tok5")

	if got := it.PageToken(); got != "tok5" {
		t.Errorf("PageToken before first fetch = %q, want %q", got, "tok5")
	}

	if _, err := drainIterator(t, it); err != nil {
		t.Fatalf("enumeration failed: %v", err)
	}
	if fetcher.calls[0].pageToken != "tok5" {
		t.Errorf("first fetch pageToken = %q, want %q", fetcher.calls[0].pageToken, "tok5")
	}
}

func TestUserIterator_PageTokenAdvancesAtFetch(t *testing.T) {
	fetcher := &fakeFetcher{pages: []fakePage{
		{uids: []string{"u1"}, token: stringPtr("tok1")},
		{uids: []string{"u2"}, token: stringPtr("tok2")},
		{},
	}}

	it := NewUserIterator(context.Background(), fetcher, 10, "")

	if got := it.PageToken(); got != "" {
		t.Errorf("PageToken at start = %q, want empty", got)
	}

	if _, err := it.Next(); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if got := it.PageToken(); got != "tok1" {
		t.Errorf("PageToken after first page = %q, want %q", got, "tok1")
	}

	if _, err := it.Next(); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if got := it.PageToken(); got != "tok2" {
		t.Errorf("PageToken after second page = %q, want %q", got, "tok2")
	}

	if _, err := it.Next(); !errors.Is(err, Done) {
		t.Fatalf("Next = %v, want Done", err)
	}
	if got := it.PageToken(); got != "" {
		t.Errorf("PageToken after exhaustion = %q, want empty", got)
	}
}

func TestUserIterator_NoPrefetch(t *testing.T) {
	fetcher := &fakeFetcher{pages: []fakePage{
		{uids: []string{"u1", "u2"}, token: stringPtr("tok1")},
		{uids: []string{"u3"}},
	}}

	it := NewUserIterator(context.Background(), fetcher, 10, "")

	// Consuming the whole first page must not trigger the second fetch;
	// that happens only when the caller pulls past the boundary.
	for i := 0; i < 2; i++ {
		if _, err := it.Next(); err != nil {
			t.Fatalf("Next failed: %v", err)
		}
	}
	if len(fetcher.calls) != 1 {
		t.Errorf("fetch calls = %d, want 1: iterator prefetched", len(fetcher.calls))
	}

	if _, err := it.Next(); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if len(fetcher.calls) != 2 {
		t.Errorf("fetch calls = %d, want 2", len(fetcher.calls))
	}
}

func TestUserIterator_All(t *testing.T) {
	fetcher := &fakeFetcher{pages: []fakePage{
		{uids: []string{"u1", "u2"}, token: stringPtr("tok1")},
		{uids: []string{"u3"}},
	}}

	it := NewUserIterator(context.Background(), fetcher, 10, "")

	var uids []string
	for user, err := range it.All() {
		if err != nil {
			t.Fatalf("unexpected error mid-range: %v", err)
		}
		uids = append(uids, user.UID)
	}

	if diff := cmp.Diff([]string{"u1", "u2", "u3"}, uids); diff != "" {
		t.Errorf("user sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestUserIterator_AllYieldsTerminalError(t *testing.T) {
	fetcher := &fakeFetcher{pages: []fakePage{
		{uids: []string{"u1"}, token: stringPtr("tok1")},
		{err: &transport.Error{StatusCode: 500, Class: transport.ErrorClassServer, Message: "boom"}},
	}}

	it := NewUserIterator(context.Background(), fetcher, 10, "")

	var uids []string
	var terminal error
	for user, err := range it.All() {
		if err != nil {
			terminal = err
			continue
		}
		uids = append(uids, user.UID)
	}

	if diff := cmp.Diff([]string{"u1"}, uids); diff != "" {
		t.Errorf("user sequence mismatch (-want +got):\n%s", diff)
	}
	if CodeOf(terminal) != Internal {
		t.Errorf("terminal CodeOf = %s, want %s", CodeOf(terminal), Internal)
	}
}

func TestUserIterator_AllEarlyBreak(t *testing.T) {
	fetcher := &fakeFetcher{pages: []fakePage{
		{uids: []string{"u1", "u2"}, token: stringPtr("tok1")},
		{uids: []string{"u3"}},
	}}

	it := NewUserIterator(context.Background(), fetcher, 10, "")

	for user, err := range it.All() {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.UID == "u1" {
			break
		}
	}

	// Breaking the range leaves the iterator usable where it stopped.
	user, err := it.Next()
	if err != nil {
		t.Fatalf("Next after break failed: %v", err)
	}
	if user.UID != "u2" {
		t.Errorf("UID = %q, want %q", user.UID, "u2")
	}
}
