package exchange

import "errors"

var (
	InvalidCredentialsErr    = errors.New("invalid email or password")
	DuplicateAccountErr      = errors.New("an account with this email already exists")
	NetworkErr               = errors.New("could not reach the authentication service")
	UnauthorizedErr          = errors.New("unauthorized")
	CooldownErr              = errors.New("a verification email was sent recently")
	ImpersonationDisabledErr = errors.New("test login is not enabled")
	NoSessionErr             = errors.New("no session present")
)

// ValidationError is a client-side rejection raised before any network call
// is made. The field names the offending input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
