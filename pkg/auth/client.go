package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/userhub/userhub-admin-go/pkg/transport"
)

// DefaultPageSize is the page size Users requests from the backend. It is
// also the backend's maximum.
const DefaultPageSize = 1000

// Config holds the client configuration.
type Config struct {
	// Transport is the management API client that carries every request
	Transport *transport.Client

	// Logger overrides the default component logger (optional)
	Logger *zerolog.Logger
}

// Client exposes the user management operations of a UserHub project. All
// methods are safe for concurrent use; the iterators they return are not.
type Client struct {
	transport *transport.Client
	logger    zerolog.Logger
}

// New creates a new user management client.
func New(cfg Config) (*Client, error) {
	if cfg.Transport == nil {
		return nil, fmt.Errorf("transport client is required")
	}

	// Initialize logger
	logger := log.With().Str("component", "userhub-auth").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Client{
		transport: cfg.Transport,
		logger:    logger,
	}, nil
}

// CreateUser creates a new user account from the recorded builder values.
// A nil builder is valid and creates an account with backend-generated
// values throughout.
func (c *Client) CreateUser(ctx context.Context, user *UserToCreate) (*UserRecord, error) {
	if user == nil {
		user = &UserToCreate{}
	}

	body, err := user.validatedRequest()
	if err != nil {
		return nil, err
	}

	c.logger.Debug().Msg("Creating user account")

	resp, err := c.transport.Post(ctx, "/accounts", body)
	if err != nil {
		return nil, classifyError(err)
	}
	return decodeUserRecord(resp)
}

// GetUser looks up a user account by uid. A missing account surfaces as an
// AuthError with code NotFound and auth code UserNotFound.
func (c *Client) GetUser(ctx context.Context, uid string) (*UserRecord, error) {
	if err := validateUID(uid); err != nil {
		return nil, err
	}

	c.logger.Debug().Str("uid", uid).Msg("Fetching user record")

	resp, err := c.transport.Get(ctx, "/accounts/"+url.PathEscape(uid), nil)
	if err != nil {
		return nil, classifyError(err)
	}
	return decodeUserRecord(resp)
}

// GetUserByEmail looks up a user account by email.
func (c *Client) GetUserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	c.logger.Debug().Str("email", email).Msg("Looking up user by email")

	query := url.Values{}
	query.Set("email", email)

	resp, err := c.transport.Get(ctx, "/accounts:lookup", query)
	if err != nil {
		return nil, classifyError(err)
	}
	return decodeUserRecord(resp)
}

// GetUserByPhoneNumber looks up a user account by E.164 phone number.
func (c *Client) GetUserByPhoneNumber(ctx context.Context, phone string) (*UserRecord, error) {
	if err := validatePhoneNumber(phone); err != nil {
		return nil, err
	}

	c.logger.Debug().Str("phone", phone).Msg("Looking up user by phone number")

	query := url.Values{}
	query.Set("phoneNumber", phone)

	resp, err := c.transport.Get(ctx, "/accounts:lookup", query)
	if err != nil {
		return nil, classifyError(err)
	}
	return decodeUserRecord(resp)
}

// UpdateUser applies the recorded builder values to an existing account and
// returns the updated record.
func (c *Client) UpdateUser(ctx context.Context, uid string, user *UserToUpdate) (*UserRecord, error) {
	if err := validateUID(uid); err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("update parameters must not be nil")
	}

	body, err := user.validatedRequest()
	if err != nil {
		return nil, err
	}

	c.logger.Debug().Str("uid", uid).Msg("Updating user account")

	resp, err := c.transport.Patch(ctx, "/accounts/"+url.PathEscape(uid), body)
	if err != nil {
		return nil, classifyError(err)
	}
	return decodeUserRecord(resp)
}

// DeleteUser removes a user account.
func (c *Client) DeleteUser(ctx context.Context, uid string) error {
	if err := validateUID(uid); err != nil {
		return err
	}

	c.logger.Debug().Str("uid", uid).Msg("Deleting user account")

	if _, err := c.transport.Delete(ctx, "/accounts/"+url.PathEscape(uid)); err != nil {
		return classifyError(err)
	}
	return nil
}

// Users starts an enumeration of the project's user accounts with the
// default page size. startPageToken resumes after a previously observed
// cursor; "" starts at the beginning.
func (c *Client) Users(ctx context.Context, startPageToken string) *UserIterator {
	return NewUserIterator(ctx, c.pageFetcher(), DefaultPageSize, startPageToken)
}

// UsersWithPageSize is Users with an explicit backend page size. 0 means
// DefaultPageSize; negative sizes are rejected. The size caps one page, not
// the enumeration.
func (c *Client) UsersWithPageSize(ctx context.Context, startPageToken string, pageSize int) (*UserIterator, error) {
	if pageSize < 0 {
		return nil, fmt.Errorf("page size must not be negative, got %d", pageSize)
	}
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	return NewUserIterator(ctx, c.pageFetcher(), pageSize, startPageToken), nil
}

// pageFetcher returns the live PageFetcher backed by the management API.
func (c *Client) pageFetcher() PageFetcher {
	return &httpFetcher{transport: c.transport}
}

// listUsersResponse is the wire shape of one enumeration page. The token is
// a pointer so a final page (field absent) stays distinct from a malformed
// one (field empty).
type listUsersResponse struct {
	Users         []*apiUser `json:"users"`
	NextPageToken *string    `json:"nextPageToken"`
}

// httpFetcher fetches enumeration pages from GET /accounts:list.
type httpFetcher struct {
	transport *transport.Client
}

// FetchPage implements PageFetcher against the live backend. Failures come
// back already classified.
func (f *httpFetcher) FetchPage(ctx context.Context, maxResults int, pageToken string) (*PageResult, error) {
	query := url.Values{}
	query.Set("maxResults", strconv.Itoa(maxResults))
	if pageToken != "" {
		query.Set("pageToken", pageToken)
	}

	resp, err := f.transport.Get(ctx, "/accounts:list", query)
	if err != nil {
		return nil, classifyError(err)
	}

	var body listUsersResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, classifyError(fmt.Errorf("decode user page: %w", err))
	}

	users := make([]*ExportedUserRecord, 0, len(body.Users))
	for _, u := range body.Users {
		users = append(users, u.toExportedUserRecord())
	}

	page, err := NewPageResult(users, body.NextPageToken)
	if err != nil {
		return nil, classifyError(fmt.Errorf("malformed user page: %w", err))
	}
	return page, nil
}

func decodeUserRecord(resp *transport.Response) (*UserRecord, error) {
	var u apiUser
	if err := json.Unmarshal(resp.Body, &u); err != nil {
		return nil, classifyError(fmt.Errorf("decode user payload: %w", err))
	}
	return u.toUserRecord(), nil
}
