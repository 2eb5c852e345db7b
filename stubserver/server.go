// Package stubserver is an in-memory implementation of the marketplace auth
// REST surface. It backs local development and the end-to-end tests of the
// session client; it is not a production backend.
package stubserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/hansamarket/go-session/api"
)

const verificationTokenTTL = 24 * time.Hour

// Server serves the /auth endpoints under a base path.
type Server struct {
	mux           *http.ServeMux
	basePath      string
	users         *UserRepo
	tokens        *TokenIssuer
	verifications *cache.Cache // verification token -> email
	log           zerolog.Logger
}

// Option modifies the Server instance.
type Option func(*Server)

// WithBasePath changes the path prefix the auth routes are mounted under
// ("/api" by default).
func WithBasePath(basePath string) Option {
	return func(s *Server) {
		s.basePath = strings.TrimSuffix(basePath, "/")
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// New creates a stub auth server signing tokens with the given secret.
func New(secret []byte, options ...Option) *Server {
	s := &Server{
		mux:           http.NewServeMux(),
		basePath:      "/api",
		users:         NewUserRepo(),
		tokens:        NewTokenIssuer(secret, "stub-auth"),
		verifications: cache.New(verificationTokenTTL, time.Hour),
		log:           zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}
	s.initRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Users exposes the account store so tests and the CLI command can seed
// accounts.
func (s *Server) Users() *UserRepo {
	return s.users
}

// Seed registers a pre-verified demo account, returning its ID.
func (s *Server) Seed(email, password, firstName, lastName string) (string, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return "", err
	}
	user := &User{
		ID:           newUserID(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         "USER",
		Verified:     true,
	}
	if err := s.users.Create(user); err != nil {
		return "", err
	}
	return user.ID, nil
}

func (s *Server) initRoutes() {
	s.handle(http.MethodPost, api.RouteRegister, s.RegisterHandler())
	s.handle(http.MethodPost, api.RouteLogin, s.LoginHandler())
	s.handle(http.MethodPost, api.RouteRefresh, s.RefreshHandler())
	s.handle(http.MethodPost, api.RouteLogout, s.LogoutHandler())
	s.handle(http.MethodGet, api.RouteMe, s.MeHandler())
	s.handle(http.MethodGet, api.RouteStatus, s.StatusHandler())
	s.handle(http.MethodPost, api.RouteVerifyEmail, s.VerifyEmailHandler())
	s.handle(http.MethodPost, api.RouteResendVerification, s.ResendVerificationHandler())
}

func (s *Server) handle(method, route string, handler http.HandlerFunc) {
	s.mux.HandleFunc(method+" "+s.basePath+route, handler)
}

// respondData writes a success envelope around the payload.
func respondData(w http.ResponseWriter, status int, data any) {
	envelope := api.Response{Success: true}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
		envelope.Data = raw
	}
	writeJSON(w, status, envelope)
}

// respondError writes a failure envelope with the message the client
// surfaces verbatim.
func respondError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, api.Response{Success: false, Message: message, Error: http.StatusText(status)})
}

func writeJSON(w http.ResponseWriter, status int, envelope api.Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope)
}

// bearerToken extracts the bearer credential from an Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
