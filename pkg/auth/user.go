package auth

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// maxUIDLength is the backend's limit on caller-chosen uids.
	maxUIDLength = 128

	// minPasswordLength is the backend's minimum password length.
	minPasswordLength = 6
)

// UserMetadata holds the backend-maintained timestamps of a user account,
// in milliseconds since the Unix epoch. A zero value means the event never
// happened.
type UserMetadata struct {
	CreationTimestamp    int64
	LastLogInTimestamp   int64
	LastRefreshTimestamp int64
}

// UserProvider is one identity-provider link of a user account.
type UserProvider struct {
	ProviderID  string `json:"providerId,omitempty"`
	UID         string `json:"uid,omitempty"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	PhotoURL    string `json:"photoUrl,omitempty"`
}

// UserRecord is a user account as the management API reports it.
type UserRecord struct {
	UID           string
	Email         string
	EmailVerified bool
	PhoneNumber   string
	DisplayName   string
	PhotoURL      string
	Disabled      bool
	CustomClaims  map[string]any
	ProviderData  []*UserProvider
	UserMetadata  *UserMetadata
}

// ExportedUserRecord is a user account as the enumeration endpoint reports
// it: the plain record plus the password hash material, which only the
// export surface exposes.
type ExportedUserRecord struct {
	*UserRecord
	PasswordHash string
	PasswordSalt string
}

// apiUser is the wire shape of a user object in management API responses.
type apiUser struct {
	UID           string          `json:"uid"`
	Email         string          `json:"email,omitempty"`
	EmailVerified bool            `json:"emailVerified,omitempty"`
	PhoneNumber   string          `json:"phoneNumber,omitempty"`
	DisplayName   string          `json:"displayName,omitempty"`
	PhotoURL      string          `json:"photoUrl,omitempty"`
	Disabled      bool            `json:"disabled,omitempty"`
	CustomClaims  map[string]any  `json:"customClaims,omitempty"`
	ProviderData  []*UserProvider `json:"providerData,omitempty"`
	CreatedAt     int64           `json:"createdAt,omitempty"`
	LastLoginAt   int64           `json:"lastLoginAt,omitempty"`
	LastRefreshAt int64           `json:"lastRefreshAt,omitempty"`
	PasswordHash  string          `json:"passwordHash,omitempty"`
	PasswordSalt  string          `json:"passwordSalt,omitempty"`
}

func (u *apiUser) toUserRecord() *UserRecord {
	return &UserRecord{
		UID:           u.UID,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		PhoneNumber:   u.PhoneNumber,
		DisplayName:   u.DisplayName,
		PhotoURL:      u.PhotoURL,
		Disabled:      u.Disabled,
		CustomClaims:  u.CustomClaims,
		ProviderData:  u.ProviderData,
		UserMetadata: &UserMetadata{
			CreationTimestamp:    u.CreatedAt,
			LastLogInTimestamp:   u.LastLoginAt,
			LastRefreshTimestamp: u.LastRefreshAt,
		},
	}
}

func (u *apiUser) toExportedUserRecord() *ExportedUserRecord {
	return &ExportedUserRecord{
		UserRecord:   u.toUserRecord(),
		PasswordHash: u.PasswordHash,
		PasswordSalt: u.PasswordSalt,
	}
}

// UserToCreate is the builder for CreateUser. Setters only record values;
// validation runs when the create call assembles the request, so chains
// stay fluent.
type UserToCreate struct {
	params map[string]any
}

func (u *UserToCreate) set(key string, value any) *UserToCreate {
	if u.params == nil {
		u.params = make(map[string]any)
	}
	u.params[key] = value
	return u
}

// UID sets the caller-chosen uid. Omit it to let the backend generate one.
func (u *UserToCreate) UID(uid string) *UserToCreate {
	return u.set("uid", uid)
}

// Email sets the account email.
func (u *UserToCreate) Email(email string) *UserToCreate {
	return u.set("email", email)
}

// EmailVerified marks the email as verified.
func (u *UserToCreate) EmailVerified(verified bool) *UserToCreate {
	return u.set("emailVerified", verified)
}

// Password sets the account password.
func (u *UserToCreate) Password(password string) *UserToCreate {
	return u.set("password", password)
}

// DisplayName sets the display name.
func (u *UserToCreate) DisplayName(name string) *UserToCreate {
	return u.set("displayName", name)
}

// PhotoURL sets the profile photo URL.
func (u *UserToCreate) PhotoURL(url string) *UserToCreate {
	return u.set("photoUrl", url)
}

// PhoneNumber sets the account phone number, in E.164 form.
func (u *UserToCreate) PhoneNumber(phone string) *UserToCreate {
	return u.set("phoneNumber", phone)
}

// Disabled marks the account as disabled.
func (u *UserToCreate) Disabled(disabled bool) *UserToCreate {
	return u.set("disabled", disabled)
}

// validatedRequest checks every recorded parameter and returns the request
// body map. An empty builder is valid: the backend fills in everything.
func (u *UserToCreate) validatedRequest() (map[string]any, error) {
	if u.params == nil {
		return map[string]any{}, nil
	}

	for key, value := range u.params {
		if err := validateUserParam(key, value, false); err != nil {
			return nil, err
		}
	}
	return u.params, nil
}

// UserToUpdate is the builder for UpdateUser. Setters only record values;
// validation runs when the update call assembles the request. Setting
// DisplayName, PhotoURL, or PhoneNumber to "" clears the field on the
// account.
type UserToUpdate struct {
	params map[string]any
}

func (u *UserToUpdate) set(key string, value any) *UserToUpdate {
	if u.params == nil {
		u.params = make(map[string]any)
	}
	u.params[key] = value
	return u
}

// Email replaces the account email.
func (u *UserToUpdate) Email(email string) *UserToUpdate {
	return u.set("email", email)
}

// EmailVerified sets the email verification flag.
func (u *UserToUpdate) EmailVerified(verified bool) *UserToUpdate {
	return u.set("emailVerified", verified)
}

// Password replaces the account password.
func (u *UserToUpdate) Password(password string) *UserToUpdate {
	return u.set("password", password)
}

// DisplayName replaces the display name; "" clears it.
func (u *UserToUpdate) DisplayName(name string) *UserToUpdate {
	return u.set("displayName", name)
}

// PhotoURL replaces the profile photo URL; "" clears it.
func (u *UserToUpdate) PhotoURL(url string) *UserToUpdate {
	return u.set("photoUrl", url)
}

// PhoneNumber replaces the phone number, in E.164 form; "" clears it.
func (u *UserToUpdate) PhoneNumber(phone string) *UserToUpdate {
	return u.set("phoneNumber", phone)
}

// Disabled sets the disabled flag.
func (u *UserToUpdate) Disabled(disabled bool) *UserToUpdate {
	return u.set("disabled", disabled)
}

// CustomClaims replaces the account's custom claims wholesale. Pass an
// empty or nil map to remove all claims.
func (u *UserToUpdate) CustomClaims(claims map[string]any) *UserToUpdate {
	return u.set("customClaims", claims)
}

// validatedRequest checks every recorded parameter and returns the request
// body map. Unlike creation, an empty update is a programming error.
func (u *UserToUpdate) validatedRequest() (map[string]any, error) {
	if len(u.params) == 0 {
		return nil, fmt.Errorf("update parameters must not be empty")
	}

	for key, value := range u.params {
		if err := validateUserParam(key, value, true); err != nil {
			return nil, err
		}
	}
	return u.params, nil
}

// validateUserParam checks one builder parameter. forUpdate relaxes the
// string fields that updates may clear with "".
func validateUserParam(key string, value any, forUpdate bool) error {
	switch key {
	case "uid":
		return validateUID(value.(string))
	case "email":
		return validateEmail(value.(string))
	case "password":
		if len(value.(string)) < minPasswordLength {
			return fmt.Errorf("password must be at least %d characters", minPasswordLength)
		}
	case "phoneNumber":
		phone := value.(string)
		if forUpdate && phone == "" {
			return nil
		}
		return validatePhoneNumber(phone)
	case "customClaims":
		if _, err := json.Marshal(value); err != nil {
			return fmt.Errorf("custom claims must serialize to JSON: %v", err)
		}
	}
	return nil
}

func validateUID(uid string) error {
	if uid == "" {
		return fmt.Errorf("uid must not be empty")
	}
	if len(uid) > maxUIDLength {
		return fmt.Errorf("uid must be at most %d characters, got %d", maxUIDLength, len(uid))
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email must not be empty")
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" {
		return fmt.Errorf("malformed email address %q", email)
	}
	return nil
}

// validatePhoneNumber accepts E.164 form: a leading + followed by 1 to 15
// digits.
func validatePhoneNumber(phone string) error {
	digits, ok := strings.CutPrefix(phone, "+")
	if !ok || len(digits) == 0 || len(digits) > 15 {
		return fmt.Errorf("phone number %q is not in E.164 form", phone)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return fmt.Errorf("phone number %q is not in E.164 form", phone)
		}
	}
	return nil
}
