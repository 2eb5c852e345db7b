package exchange_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hansamarket/go-session/exchange"
	"github.com/hansamarket/go-session/session"
)

func validRegistration() exchange.Registration {
	return exchange.Registration{
		Email:       "anna@example.com",
		Password:    "Sw3d!shPass",
		FirstName:   "Anna",
		LastName:    "Andersson",
		Phone:       "+46701234567",
		Country:     session.CountrySweden,
		Language:    session.LanguageSwedish,
		AcceptTerms: true,
	}
}

func TestValidator_ValidateLogin(t *testing.T) {
	v := exchange.NewValidator()

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, v.ValidateLogin("anna@example.com", "secret"))
	})

	t.Run("blank email", func(t *testing.T) {
		err := v.ValidateLogin("", "secret")
		require.Error(t, err)
		require.True(t, exchange.IsValidation(err))
	})

	t.Run("malformed email", func(t *testing.T) {
		for _, email := range []string{"anna", "anna@", "@example.com", "anna@example", "an na@example.com"} {
			err := v.ValidateLogin(email, "secret")
			require.Error(t, err, "email %q should be rejected", email)
		}
	})

	t.Run("blank password", func(t *testing.T) {
		err := v.ValidateLogin("anna@example.com", "")
		require.Error(t, err)
		require.Contains(t, err.Error(), "password")
	})
}

func TestValidator_ValidatePasswordStrength(t *testing.T) {
	v := exchange.NewValidator()

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, v.ValidatePasswordStrength("Sw3d!shPass"))
	})

	cases := []struct {
		name     string
		password string
		want     string
	}{
		{"too short", "abc", "at least 8 characters"},
		{"no uppercase", "sw3d!shpass", "uppercase"},
		{"no lowercase", "SW3D!SHPASS", "lowercase"},
		{"no number", "Swed!shPass", "number"},
		{"no symbol", "Sw3dishPass", "symbol"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.ValidatePasswordStrength(tc.password)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestValidator_ValidateRegistration(t *testing.T) {
	v := exchange.NewValidator()

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, v.ValidateRegistration(validRegistration()))
	})

	t.Run("valid without phone", func(t *testing.T) {
		reg := validRegistration()
		reg.Phone = ""
		require.NoError(t, v.ValidateRegistration(reg))
	})

	t.Run("short first name", func(t *testing.T) {
		reg := validRegistration()
		reg.FirstName = "A"
		err := v.ValidateRegistration(reg)
		require.Error(t, err)
		require.Contains(t, err.Error(), "firstName")
	})

	t.Run("short last name", func(t *testing.T) {
		reg := validRegistration()
		reg.LastName = " B "
		err := v.ValidateRegistration(reg)
		require.Error(t, err)
		require.Contains(t, err.Error(), "lastName")
	})

	t.Run("non-Nordic phone", func(t *testing.T) {
		for _, phone := range []string{"0701234567", "+1 555 0100", "+44 20 7946 0958"} {
			reg := validRegistration()
			reg.Phone = phone
			err := v.ValidateRegistration(reg)
			require.Error(t, err, "phone %q should be rejected", phone)
		}
	})

	t.Run("Nordic phones accepted", func(t *testing.T) {
		for _, phone := range []string{"+46701234567", "+47 912 34 567", "+45 20-12-34-56"} {
			reg := validRegistration()
			reg.Phone = phone
			require.NoError(t, v.ValidateRegistration(reg), "phone %q should be accepted", phone)
		}
	})

	t.Run("unknown country", func(t *testing.T) {
		reg := validRegistration()
		reg.Country = session.Country("FI")
		err := v.ValidateRegistration(reg)
		require.Error(t, err)
		require.Contains(t, err.Error(), "country")
	})

	t.Run("terms not accepted", func(t *testing.T) {
		reg := validRegistration()
		reg.AcceptTerms = false
		err := v.ValidateRegistration(reg)
		require.Error(t, err)
		require.Contains(t, err.Error(), "acceptTerms")
	})
}
