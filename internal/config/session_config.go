package config

import (
	"time"
)

type SessionConfig interface {
	GetHTTPTimeout() time.Duration
	GetResendCooldown() time.Duration
	TestLoginEnabled() bool
}

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetHTTPTimeout() time.Duration {
	return 15 * time.Second
}

// GetResendCooldown is the client-side wait between verification emails for
// the same address.
func (Session) GetResendCooldown() time.Duration {
	return 60 * time.Second
}

// TestLoginEnabled reports whether the backend-free test login is available.
// It requires an explicit opt-in and is never honoured in production builds.
func (s Session) TestLoginEnabled() bool {
	if (EnvVars{}).GetEnv() == "PROD" {
		return false
	}
	return GetEnv("TEST_LOGIN_ENABLED", "false") == "true"
}
