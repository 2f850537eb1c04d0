package auth

import "github.com/fungus-mycelium/fungus-admin/internal/shared"

// loginRequest is the body of POST /auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResult is the payload the API returns on a successful login.
type loginResult struct {
	Token string         `json:"token"`
	User  shared.Profile `json:"user"`
}

// passwordRequest is the body of PUT /auth/password.
type passwordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}
