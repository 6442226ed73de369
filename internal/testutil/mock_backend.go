// Package testutil provides testing utilities for the UserHub admin SDK.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock backend endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockBackend is a configurable mock UserHub management API for testing. It
// serves a seedable user fixture set through the default account routes
// (list, lookup, create, update, delete) for any project id, and lets tests
// override individual paths or fail specific list calls.
type MockBackend struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	users        []map[string]any
	listFailures map[int]MockResponse
	quotaRemain  int

	// Tracking
	RequestCount      int
	ListCount         int
	LastRequestHeader http.Header
}

// NewMockBackend creates a new mock backend server.
func NewMockBackend() *MockBackend {
	mock := &MockBackend{
		handlers:     make(map[string]func(w http.ResponseWriter, r *http.Request)),
		listFailures: make(map[int]MockResponse),
		quotaRemain:  1000,
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.mu.Unlock()

		// Check for custom handler
		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		// Default handler
		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockBackend) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockBackend) Close() {
	m.server.Close()
}

// Reset clears all tracking counters and list failures.
func (m *MockBackend) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ListCount = 0
	m.LastRequestHeader = nil
	m.listFailures = make(map[int]MockResponse)
}

// SetHandler sets a custom handler for a specific path. The path is the full
// request path including the /v1/projects/{project} prefix.
func (m *MockBackend) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockBackend) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		WriteMockResponse(w, resp)
	})
}

// SetListFailureAt makes the nth list call (1-based, counted across the
// server's lifetime) answer with the given response instead of a page.
func (m *MockBackend) SetListFailureAt(call int, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listFailures[call] = resp
}

// SetQuotaRemaining changes the X-RateLimit-Remaining value the default
// routes report.
func (m *MockBackend) SetQuotaRemaining(remaining int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotaRemain = remaining
}

// AddUser appends one user object to the fixture set. The map is served
// as-is on the wire, so keys follow the API shape (uid, email, displayName,
// passwordHash, ...).
func (m *MockBackend) AddUser(user map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = append(m.users, user)
}

// SeedUsers fills the fixture set with count generated accounts, uid-0001
// through uid-NNNN, replacing whatever was there.
func (m *MockBackend) SeedUsers(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = make([]map[string]any, 0, count)
	for i := 1; i <= count; i++ {
		m.users = append(m.users, map[string]any{
			"uid":          fmt.Sprintf("uid-%04d", i),
			"email":        fmt.Sprintf("user%04d@example.com", i),
			"displayName":  fmt.Sprintf("User %04d", i),
			"passwordHash": fmt.Sprintf("hash-%04d", i),
			"passwordSalt": fmt.Sprintf("salt-%04d", i),
			"createdAt":    time.Now().Add(-24 * time.Hour).UnixMilli(),
		})
	}
}

// UserCount returns the current fixture set size.
func (m *MockBackend) UserCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockBackend) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetListCount returns the number of list calls made to the server.
func (m *MockBackend) GetListCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ListCount
}

// defaultHandler routes the account endpoints for any project prefix.
func (m *MockBackend) defaultHandler(w http.ResponseWriter, r *http.Request) {
	m.writeDefaultHeaders(w)

	path := r.URL.Path
	switch {
	case strings.HasSuffix(path, "/accounts:list"):
		m.handleList(w, r)
	case strings.HasSuffix(path, "/accounts:lookup"):
		m.handleLookup(w, r)
	case strings.HasSuffix(path, "/accounts") && r.Method == http.MethodPost:
		m.handleCreate(w, r)
	case strings.Contains(path, "/accounts/"):
		m.handleAccount(w, r)
	default:
		writeErrorBody(w, http.StatusNotFound, "unknown endpoint", "")
	}
}

func (m *MockBackend) writeDefaultHeaders(w http.ResponseWriter) {
	m.mu.RLock()
	remaining := m.quotaRemain
	m.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10))
}

// handleList serves one fixture page. Page tokens are the stringified index
// of the first record of the next page.
func (m *MockBackend) handleList(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.ListCount++
	failure, failNow := m.listFailures[m.ListCount]
	m.mu.Unlock()

	if failNow {
		WriteMockResponse(w, failure)
		return
	}

	maxResults, err := strconv.Atoi(r.URL.Query().Get("maxResults"))
	if err != nil || maxResults <= 0 {
		writeErrorBody(w, http.StatusBadRequest, "maxResults must be a positive integer", "")
		return
	}

	start := 0
	if token := r.URL.Query().Get("pageToken"); token != "" {
		start, err = strconv.Atoi(token)
		if err != nil || start < 0 {
			writeErrorBody(w, http.StatusBadRequest, "invalid page token", "")
			return
		}
	}

	m.mu.RLock()
	total := len(m.users)
	end := min(start+maxResults, total)
	page := make([]map[string]any, 0, maxResults)
	if start < total {
		page = append(page, m.users[start:end]...)
	}
	m.mu.RUnlock()

	body := map[string]any{"users": page}
	if end < total {
		body["nextPageToken"] = strconv.Itoa(end)
	}
	_ = json.NewEncoder(w).Encode(body)
}

func (m *MockBackend) handleLookup(w http.ResponseWriter, r *http.Request) {
	var key, value string
	switch {
	case r.URL.Query().Get("email") != "":
		key, value = "email", r.URL.Query().Get("email")
	case r.URL.Query().Get("phoneNumber") != "":
		key, value = "phoneNumber", r.URL.Query().Get("phoneNumber")
	default:
		writeErrorBody(w, http.StatusBadRequest, "lookup needs email or phoneNumber", "")
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, user := range m.users {
		if user[key] == value {
			_ = json.NewEncoder(w).Encode(user)
			return
		}
	}
	writeErrorBody(w, http.StatusNotFound, "no user record found", "USER_NOT_FOUND")
}

func (m *MockBackend) handleCreate(w http.ResponseWriter, r *http.Request) {
	var user map[string]any
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		writeErrorBody(w, http.StatusBadRequest, "malformed request body", "")
		return
	}
	if user == nil {
		user = map[string]any{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	uid, _ := user["uid"].(string)
	if uid == "" {
		uid = fmt.Sprintf("mock-uid-%d", len(m.users)+1)
		user["uid"] = uid
	}
	for _, existing := range m.users {
		if existing["uid"] == uid {
			writeErrorBody(w, http.StatusConflict, "uid already in use", "UID_ALREADY_EXISTS")
			return
		}
		if email, ok := user["email"]; ok && existing["email"] == email {
			writeErrorBody(w, http.StatusConflict, "email already in use", "EMAIL_ALREADY_EXISTS")
			return
		}
	}

	// The backend never echoes the password, it reports hash material.
	delete(user, "password")
	user["createdAt"] = time.Now().UnixMilli()
	m.users = append(m.users, user)
	_ = json.NewEncoder(w).Encode(user)
}

func (m *MockBackend) handleAccount(w http.ResponseWriter, r *http.Request) {
	rawUID := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	uid, err := url.PathUnescape(rawUID)
	if err != nil || uid == "" {
		writeErrorBody(w, http.StatusBadRequest, "invalid uid", "")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i, user := range m.users {
		if user["uid"] == uid {
			idx = i
			break
		}
	}
	if idx == -1 {
		writeErrorBody(w, http.StatusNotFound, "no user record found", "USER_NOT_FOUND")
		return
	}

	switch r.Method {
	case http.MethodGet:
		_ = json.NewEncoder(w).Encode(m.users[idx])
	case http.MethodPatch:
		var patch map[string]any
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeErrorBody(w, http.StatusBadRequest, "malformed request body", "")
			return
		}
		delete(patch, "password")
		for key, value := range patch {
			// Empty string clears the attribute.
			if s, ok := value.(string); ok && s == "" {
				delete(m.users[idx], key)
				continue
			}
			m.users[idx][key] = value
		}
		_ = json.NewEncoder(w).Encode(m.users[idx])
	case http.MethodDelete:
		m.users = append(m.users[:idx], m.users[idx+1:]...)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeErrorBody(w, http.StatusBadRequest, "unsupported method", "")
	}
}

// WriteMockResponse writes a MockResponse to w.
func WriteMockResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		_, _ = w.Write([]byte(resp.Body))
	}
}

func writeErrorBody(w http.ResponseWriter, status int, message, reason string) {
	w.WriteHeader(status)
	_, _ = w.Write([]byte(ErrorBody(status, message, reason)))
}

// ErrorBody renders the backend error envelope.
func ErrorBody(status int, message, reason string) string {
	body := map[string]any{"code": status, "message": message}
	if reason != "" {
		body["reason"] = reason
	}
	raw, _ := json.Marshal(map[string]any{"error": body})
	return string(raw)
}

// NewErrorResponse creates an error response with the backend envelope and
// healthy quota headers.
func NewErrorResponse(status int, message, reason string) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body:       ErrorBody(status, message, reason),
		Headers: map[string]string{
			"Content-Type":          "application/json; charset=utf-8",
			"X-RateLimit-Remaining": "1000",
			"X-RateLimit-Reset":     strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10),
		},
	}
}

// NewUserNotFoundResponse creates the 404 the backend sends for a lookup
// that matched no account.
func NewUserNotFoundResponse() MockResponse {
	return NewErrorResponse(http.StatusNotFound, "no user record found", "USER_NOT_FOUND")
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return NewErrorResponse(http.StatusInternalServerError, "internal error", "")
}

// NewQuotaExceededResponse creates a 429 with nearly exhausted quota headers.
func NewQuotaExceededResponse() MockResponse {
	resp := NewErrorResponse(http.StatusTooManyRequests, "quota exceeded for this window", "")
	resp.Headers["X-RateLimit-Remaining"] = "0"
	resp.Headers["X-RateLimit-Reset"] = strconv.FormatInt(time.Now().Add(30*time.Second).Unix(), 10)
	return resp
}
