package api

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/hansamarket/go-session/session"
)

// TokenExpiry reads the exp claim from an access token without verifying its
// signature. The result is informational only - the client never enforces
// expiry locally, the backend's 401 is the authority. Local test tokens and
// tokens that are not JWTs report no expiry.
func TokenExpiry(raw string) (time.Time, bool) {
	if raw == "" || strings.HasPrefix(raw, session.LocalTokenPrefix) {
		return time.Time{}, false
	}

	var claims jwtlib.RegisteredClaims
	parser := jwtlib.NewParser()
	if _, _, err := parser.ParseUnverified(raw, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
