package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/fungus-mycelium/fungus-admin/internal/api"
	"github.com/fungus-mycelium/fungus-admin/internal/shared"
)

// ErrInvalidCredentials is returned when the API refuses a login.
var ErrInvalidCredentials = invalidCredentialsError{}

type invalidCredentialsError struct{}

func (invalidCredentialsError) Error() string { return "auth: invalid credentials" }

func (invalidCredentialsError) UserMessage() string {
	return "Correo o contraseña incorrectos."
}

// Service wraps the authentication endpoints of the API.
type Service struct {
	client      *api.Client
	credentials *shared.Credentials
}

// NewService constructs a new Service.
func NewService(client *api.Client, credentials *shared.Credentials) *Service {
	return &Service{client: client, credentials: credentials}
}

// Login exchanges email and password for a token and stores both the token
// and the returned profile in the request session.
func (s *Service) Login(ctx context.Context, email, password string) (shared.Profile, error) {
	env, err := s.client.Post(ctx, "/auth/login", loginRequest{
		Email:    strings.TrimSpace(email),
		Password: password,
	})
	if err != nil {
		switch {
		case errors.Is(err, api.ErrUnauthorized), errors.Is(err, api.ErrNotFound):
			return shared.Profile{}, ErrInvalidCredentials
		default:
			return shared.Profile{}, err
		}
	}
	result, err := api.Decode[loginResult](env)
	if err != nil {
		return shared.Profile{}, err
	}
	if strings.TrimSpace(result.Token) == "" {
		return shared.Profile{}, ErrInvalidCredentials
	}
	if err := s.credentials.SetCredential(ctx, result.Token, result.User); err != nil {
		return shared.Profile{}, err
	}
	return result.User, nil
}

// ChangePassword asks the API to replace the password of the signed-in user.
func (s *Service) ChangePassword(ctx context.Context, current, next string) error {
	_, err := s.client.Put(ctx, "/auth/password", passwordRequest{CurrentPassword: current, NewPassword: next})
	return err
}

// Logout forgets the credential of the current session.
func (s *Service) Logout(ctx context.Context) {
	s.credentials.Clear(ctx)
}
