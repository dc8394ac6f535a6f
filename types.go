package goDesk

import "github.com/MrEthical07/goDesk/session"

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	LastName string `json:"lastname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by login, registration and refresh. RefreshToken is empty when
// the backend did not reissue one.
type AuthResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Name         string `json:"name"`
	LastName     string `json:"lastname"`
	Email        string `json:"email"`
}

// Identity returns the display profile carried by the response.
func (r AuthResponse) Identity() *session.Identity {
	return &session.Identity{
		Name:     r.Name,
		LastName: r.LastName,
		Email:    r.Email,
	}
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}
