package dto

import "github.com/google/uuid"

// Credentials is the body of register and login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type (
	RegisterRequest = Credentials
	LoginRequest    = Credentials
)

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type DeleteAccountRequest struct {
	Password string `json:"password"`
}

// AuthResponse carries a token pair. The access token's email claim is the
// identity every per-user route is scoped to.
type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	User         UserResponse `json:"user"`
}

type UserResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}
