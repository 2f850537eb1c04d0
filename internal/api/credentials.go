package api

import (
	"context"
	"errors"
	"strings"
)

// ErrNoServiceToken is returned by an empty StaticCredential.
var ErrNoServiceToken = errors.New("api: service token not configured")

// StaticCredential is a fixed bearer token for callers without a browser
// session, such as the background worker. Clear is a no-op: a refused token
// stays refused until the process is reconfigured.
type StaticCredential string

// Credential returns the token.
func (c StaticCredential) Credential(context.Context) (string, error) {
	token := strings.TrimSpace(string(c))
	if token == "" {
		return "", ErrNoServiceToken
	}
	return token, nil
}

// Clear implements CredentialSource.
func (StaticCredential) Clear(context.Context) {}
