package shared

import (
	"context"
	"encoding/json"
	"strings"
)

// Session keys kept for parity with the browser storage layout of the
// previous dashboard.
const (
	TokenKey         = "fungus_token"
	UserKey          = "fungus_user"
	LogsFiltersKey   = "fungus_logs_filters"
	RedirectAfterKey = "fungus_redirect_after_login"
)

// Profile is the cached user profile returned by the API on login.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Credentials is the single access point to the bearer credential and
// cached profile. Values are read from the request session on every call.
type Credentials struct{}

// NewCredentials returns the credential service.
func NewCredentials() *Credentials {
	return &Credentials{}
}

// Credential returns the bearer token stored for the current request.
func (c *Credentials) Credential(ctx context.Context) (string, error) {
	sess := SessionFromContext(ctx)
	if sess == nil {
		return "", ErrNoSession
	}
	token := strings.TrimSpace(sess.Get(TokenKey))
	if token == "" {
		return "", ErrNotAuthenticated
	}
	return token, nil
}

// SetCredential stores a token and the profile that came with it.
func (c *Credentials) SetCredential(ctx context.Context, token string, profile Profile) error {
	sess := SessionFromContext(ctx)
	if sess == nil {
		return ErrNoSession
	}
	raw, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	sess.Set(TokenKey, token)
	sess.Set(UserKey, string(raw))
	return nil
}

// Profile decodes the cached profile. ok is false when nobody is signed in.
func (c *Credentials) Profile(ctx context.Context) (Profile, bool) {
	sess := SessionFromContext(ctx)
	if sess == nil || sess.Get(TokenKey) == "" {
		return Profile{}, false
	}
	raw := sess.Get(UserKey)
	if raw == "" {
		return Profile{}, false
	}
	var p Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Profile{}, false
	}
	return p, true
}

// Clear removes the credential, the cached profile and persisted filters.
func (c *Credentials) Clear(ctx context.Context) {
	sess := SessionFromContext(ctx)
	if sess == nil {
		return
	}
	sess.Delete(TokenKey)
	sess.Delete(UserKey)
	sess.Delete(LogsFiltersKey)
}

// RememberRedirect stores the path to return to after the next login.
func (c *Credentials) RememberRedirect(ctx context.Context, path string) {
	sess := SessionFromContext(ctx)
	if sess == nil || !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		return
	}
	sess.Set(RedirectAfterKey, path)
}

// TakeRedirect returns and forgets the deferred navigation target.
func (c *Credentials) TakeRedirect(ctx context.Context) string {
	sess := SessionFromContext(ctx)
	if sess == nil {
		return ""
	}
	target := sess.Get(RedirectAfterKey)
	sess.Delete(RedirectAfterKey)
	return target
}
