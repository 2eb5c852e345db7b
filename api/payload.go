package api

import "github.com/hansamarket/go-session/session"

// AuthPayload is the data portion returned by /auth/login and /auth/register.
type AuthPayload struct {
	AccessToken  string              `json:"accessToken"`
	RefreshToken string              `json:"refreshToken"`
	ExpiresIn    int                 `json:"expiresIn"`
	User         session.UserProfile `json:"user"`
}

// TokenPair is the data portion returned by /auth/refresh. The profile is not
// re-sent on refresh; the client keeps its cached copy.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

// MePayload is the data portion returned by /auth/me.
type MePayload struct {
	User session.UserProfile `json:"user"`
}

// StatusPayload is the data portion returned by /auth/status.
type StatusPayload struct {
	IsAuthenticated bool                 `json:"isAuthenticated"`
	User            *session.UserProfile `json:"user,omitempty"`
}

// LoginRequest is the body posted to /auth/login.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe,omitempty"`
}

// RegisterRequest is the body posted to /auth/register.
type RegisterRequest struct {
	Email       string           `json:"email"`
	Password    string           `json:"password"`
	FirstName   string           `json:"firstName"`
	LastName    string           `json:"lastName"`
	Phone       string           `json:"phone,omitempty"`
	Country     session.Country  `json:"country,omitempty"`
	Language    session.Language `json:"language,omitempty"`
	AcceptTerms bool             `json:"acceptTerms"`
}

// RefreshRequest is the body posted to /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// LogoutRequest is the body posted to /auth/logout.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// VerifyEmailRequest is the body posted to /auth/verify-email.
type VerifyEmailRequest struct {
	Token string `json:"token"`
}

// ResendVerificationRequest is the body posted to /auth/resend-verification.
type ResendVerificationRequest struct {
	Email string `json:"email"`
}
