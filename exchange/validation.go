package exchange

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/hansamarket/go-session/session"
)

// Basic local@domain.tld shape. Anything stricter belongs to the backend.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Nordic subscriber numbers: +46 (SE), +47 (NO) or +45 (DK) followed by
// 6-12 digits, with spaces and dashes tolerated.
var phonePattern = regexp.MustCompile(`^\+4[567][0-9 -]{6,14}$`)

// Validator holds the client-side checks that run before any network call.
// A failed check never reaches the backend.
type Validator struct{}

// NewValidator creates a new Validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateLogin checks login inputs.
func (v *Validator) ValidateLogin(email, password string) error {
	if err := v.validateEmail(email); err != nil {
		return err
	}
	if password == "" {
		return &ValidationError{Field: "password", Reason: "password is required"}
	}
	return nil
}

// ValidateRegistration checks every registration field.
func (v *Validator) ValidateRegistration(reg Registration) error {
	if err := v.validateEmail(reg.Email); err != nil {
		return err
	}
	if err := v.ValidatePasswordStrength(reg.Password); err != nil {
		return err
	}
	if len(strings.TrimSpace(reg.FirstName)) < 2 {
		return &ValidationError{Field: "firstName", Reason: "first name must be at least 2 characters"}
	}
	if len(strings.TrimSpace(reg.LastName)) < 2 {
		return &ValidationError{Field: "lastName", Reason: "last name must be at least 2 characters"}
	}
	if reg.Phone != "" && !phonePattern.MatchString(reg.Phone) {
		return &ValidationError{Field: "phone", Reason: "phone must be a Nordic number (+46, +47 or +45)"}
	}
	if reg.Country != "" {
		switch reg.Country {
		case session.CountrySweden, session.CountryNorway, session.CountryDenmark:
		default:
			return &ValidationError{Field: "country", Reason: "country must be SE, NO or DK"}
		}
	}
	if !reg.AcceptTerms {
		return &ValidationError{Field: "acceptTerms", Reason: "terms must be accepted"}
	}
	return nil
}

// ValidatePasswordStrength checks if a password meets the signup
// requirements:
// - at least 8 characters long
// - contains uppercase and lowercase letters
// - contains at least one number
// - contains at least one symbol
func (v *Validator) ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return &ValidationError{Field: "password", Reason: "password must be at least 8 characters long"}
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
		hasSymbol bool
	)

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasNumber = true
		default:
			hasSymbol = true
		}
	}

	if !hasUpper {
		return &ValidationError{Field: "password", Reason: "password must contain at least one uppercase letter"}
	}
	if !hasLower {
		return &ValidationError{Field: "password", Reason: "password must contain at least one lowercase letter"}
	}
	if !hasNumber {
		return &ValidationError{Field: "password", Reason: "password must contain at least one number"}
	}
	if !hasSymbol {
		return &ValidationError{Field: "password", Reason: "password must contain at least one symbol"}
	}
	return nil
}

func (v *Validator) validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &ValidationError{Field: "email", Reason: "email is required"}
	}
	if !emailPattern.MatchString(email) {
		return &ValidationError{Field: "email", Reason: "invalid email format"}
	}
	return nil
}
