package session

import "strings"

// LocalTokenPrefix marks access tokens that were fabricated locally by the
// test-login path. Tokens carrying this prefix were never issued by the
// backend, so the request pipeline and session restore must not attempt
// refresh or profile fetches for them.
const LocalTokenPrefix = "local."

// Country codes served by the marketplace.
type Country string

const (
	CountrySweden  Country = "SE"
	CountryNorway  Country = "NO"
	CountryDenmark Country = "DK"
)

// Language codes supported by the marketplace UI.
type Language string

const (
	LanguageSwedish   Language = "sv"
	LanguageNorwegian Language = "no"
	LanguageDanish    Language = "da"
	LanguageEnglish   Language = "en"
)

// VerificationLevel is the strongest identity verification a user has completed.
type VerificationLevel string

const (
	VerificationNone   VerificationLevel = "NONE"
	VerificationEmail  VerificationLevel = "EMAIL"
	VerificationPhone  VerificationLevel = "PHONE"
	VerificationBankID VerificationLevel = "BANKID"
)

// UserProfile is the identity snapshot mirrored from the backend. It is
// read-mostly: the backend owns it, the client caches it alongside the token
// pair and replaces it wholesale on profile refresh.
type UserProfile struct {
	ID                string            `json:"id"`
	Email             string            `json:"email"`
	FirstName         string            `json:"firstName"`
	LastName          string            `json:"lastName"`
	Role              string            `json:"role,omitempty"`
	VerificationLevel VerificationLevel `json:"verificationLevel,omitempty"`
	Country           Country           `json:"country,omitempty"`
	Language          Language          `json:"language,omitempty"`
}

// Session is the authenticated identity held client-side: the token pair plus
// the cached profile. A Session is either complete or absent; a token without
// a profile (or the reverse) is never treated as authenticated.
type Session struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresIn    int         `json:"expiresIn,omitempty"` // advisory, seconds; never enforced client-side
	User         UserProfile `json:"user"`
}

// Complete reports whether all fields required for an authenticated session
// are populated.
func (s Session) Complete() bool {
	return s.AccessToken != "" && s.RefreshToken != "" && s.User.ID != ""
}

// IsLocal reports whether the session was fabricated by the test-login path
// rather than issued by the backend.
func (s Session) IsLocal() bool {
	return strings.HasPrefix(s.AccessToken, LocalTokenPrefix)
}
