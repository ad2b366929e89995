package domain

import "encoding/json"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse is the platform's auth envelope. Tokens are optional:
// signup without auto-activation returns a user but no access token,
// and refresh may omit the user and the rotated refresh token.
type AuthResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	User         *User  `json:"user,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}
