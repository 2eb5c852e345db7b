package stubserver

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/hansamarket/go-session/api"
	"github.com/hansamarket/go-session/internal/utils"
)

func newUserID() string {
	return uuid.New().String()
}

// RegisterHandler creates an account and signs it in. The heavy field
// validation lives client-side; the stub only rejects what would corrupt its
// state.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Email == "" || req.Password == "" {
			respondError(w, http.StatusBadRequest, "email and password are required")
			return
		}
		if !req.AcceptTerms {
			respondError(w, http.StatusBadRequest, "terms must be accepted")
			return
		}

		hash, err := HashPassword(req.Password)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to process password")
			return
		}

		user := &User{
			ID:           newUserID(),
			Email:        req.Email,
			PasswordHash: hash,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Phone:        req.Phone,
			Role:         "USER",
			Country:      req.Country,
			Language:     req.Language,
		}
		if err := s.users.Create(user); err != nil {
			respondError(w, http.StatusConflict, "an account with this email already exists")
			return
		}

		s.mintVerification(user.Email)

		pair, err := s.tokens.IssuePair(user)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to issue tokens")
			return
		}

		s.log.Info().Str("user", user.ID).Msg("account registered")
		respondData(w, http.StatusCreated, api.AuthPayload{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			ExpiresIn:    pair.ExpiresIn,
			User:         user.Profile(),
		})
	}
}

// LoginHandler exchanges an email/password pair for tokens.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		user, err := s.users.GetByEmail(req.Email)
		if err != nil || !CheckPasswordHash(req.Password, user.PasswordHash) {
			respondError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}

		pair, err := s.tokens.IssuePair(user)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to issue tokens")
			return
		}

		s.log.Info().Str("user", user.ID).Msg("login")
		respondData(w, http.StatusOK, api.AuthPayload{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			ExpiresIn:    pair.ExpiresIn,
			User:         user.Profile(),
		})
	}
}

// RefreshHandler rotates a refresh token into a new pair. The presented
// token is consumed even when minting fails, so it can never be replayed.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.RefreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		userID, err := s.tokens.Redeem(req.RefreshToken)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid or expired refresh token")
			return
		}
		user, err := s.users.GetByID(userID)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unknown account")
			return
		}

		pair, err := s.tokens.IssuePair(user)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to issue tokens")
			return
		}
		respondData(w, http.StatusOK, pair)
	}
}

// LogoutHandler invalidates the refresh token. It always answers 2xx; the
// client clears its local state regardless.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.LogoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.RefreshToken != "" {
			s.tokens.Revoke(req.RefreshToken)
		}
		respondData(w, http.StatusOK, nil)
	}
}

// MeHandler returns the profile behind a bearer token.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.authenticate(r)
		if !ok {
			respondError(w, http.StatusUnauthorized, "invalid or expired access token")
			return
		}
		respondData(w, http.StatusOK, api.MePayload{User: user.Profile()})
	}
}

// StatusHandler reports token validity without ever failing the request.
func (s *Server) StatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.authenticate(r)
		if !ok {
			respondData(w, http.StatusOK, api.StatusPayload{IsAuthenticated: false})
			return
		}
		respondData(w, http.StatusOK, api.StatusPayload{
			IsAuthenticated: true,
			User:            utils.Ptr(user.Profile()),
		})
	}
}

// VerifyEmailHandler redeems a verification token.
func (s *Server) VerifyEmailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.VerifyEmailRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
			respondError(w, http.StatusBadRequest, "verification token is required")
			return
		}

		email, found := s.verifications.Get(req.Token)
		if !found {
			respondError(w, http.StatusBadRequest, "invalid or expired verification token")
			return
		}
		s.verifications.Delete(req.Token)

		if err := s.users.SetVerified(email.(string), true); err != nil {
			respondError(w, http.StatusBadRequest, "unknown account")
			return
		}
		respondData(w, http.StatusOK, nil)
	}
}

// ResendVerificationHandler mints a fresh verification token. The response
// does not reveal whether the address exists.
func (s *Server) ResendVerificationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.ResendVerificationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
			respondError(w, http.StatusBadRequest, "email is required")
			return
		}

		if _, err := s.users.GetByEmail(req.Email); err == nil {
			s.mintVerification(req.Email)
		}
		respondData(w, http.StatusOK, nil)
	}
}

// authenticate resolves the bearer token on a request to an account.
func (s *Server) authenticate(r *http.Request) (*User, bool) {
	raw := bearerToken(r)
	if raw == "" {
		return nil, false
	}
	userID, err := s.tokens.ParseAccess(raw)
	if err != nil {
		return nil, false
	}
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, false
	}
	return user, true
}

// mintVerification stores a verification token for an address. A real
// backend would email it; the stub logs it so a developer can copy it.
func (s *Server) mintVerification(email string) {
	token := uuid.New().String()
	s.verifications.Set(token, email, verificationTokenTTL)
	s.log.Info().Str("email", email).Str("token", token).Msg("verification token minted")
}
