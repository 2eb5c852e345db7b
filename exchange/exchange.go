// Package exchange turns credentials into sessions against the marketplace
// auth backend and owns every session-mutating operation: login, register,
// refresh, logout and the backend-free test login.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/hansamarket/go-session/api"
	"github.com/hansamarket/go-session/broadcast"
	"github.com/hansamarket/go-session/internal/config"
	"github.com/hansamarket/go-session/session"
)

// Registration carries the signup fields collected from the user.
type Registration struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Phone       string
	Country     session.Country
	Language    session.Language
	AcceptTerms bool
}

// Exchanger performs the credential exchange operations. On success it
// persists the resulting session through the store and publishes the new
// state through the hub; on failure nothing is persisted.
type Exchanger struct {
	baseURL    string
	httpClient *http.Client
	store      session.Store
	hub        *broadcast.Hub
	validator  *Validator
	cooldowns  *cache.Cache
	cooldown   time.Duration
	testLogin  bool
	log        zerolog.Logger
	nowTime    func() time.Time
}

// Option modifies the Exchanger instance.
type Option func(*Exchanger)

// WithHTTPClient replaces the HTTP client used for backend calls.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Exchanger) {
		e.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Exchanger) {
		e.log = log
	}
}

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(e *Exchanger) {
		e.nowTime = nowFunc
	}
}

// New initializes an Exchanger with required dependencies. Optional
// configuration can be provided via options.
func New(cfg config.Config, store session.Store, hub *broadcast.Hub, options ...Option) (*Exchanger, error) {
	if cfg == nil {
		return nil, errors.New("[exchange.New] config is required")
	}
	if store == nil {
		return nil, errors.New("[exchange.New] store is required")
	}
	if hub == nil {
		return nil, errors.New("[exchange.New] hub is required")
	}

	e := &Exchanger{
		baseURL:    cfg.GetAPIBaseURL(),
		httpClient: &http.Client{Timeout: cfg.GetHTTPTimeout()},
		store:      store,
		hub:        hub,
		validator:  NewValidator(),
		cooldowns:  cache.New(cfg.GetResendCooldown(), time.Minute),
		cooldown:   cfg.GetResendCooldown(),
		testLogin:  cfg.TestLoginEnabled(),
		log:        zerolog.Nop(),
		nowTime:    time.Now,
	}

	for _, opt := range options {
		opt(e)
	}

	return e, nil
}

// Login exchanges an email/password pair for a session. Validation failures
// are returned before any network call is made.
func (e *Exchanger) Login(ctx context.Context, email, password string, rememberMe bool) (*session.Session, error) {
	if err := e.validator.ValidateLogin(email, password); err != nil {
		return nil, err
	}

	prior := e.hub.Current()
	e.hub.Publish(broadcast.State{Status: broadcast.StatusPending})

	var payload api.AuthPayload
	err := e.post(ctx, api.RouteLogin, api.LoginRequest{Email: email, Password: password, RememberMe: rememberMe}, &payload)
	if err != nil {
		e.hub.Publish(prior)
		if status := api.ErrorStatus(err); status == http.StatusUnauthorized || status == http.StatusBadRequest || status == http.StatusForbidden {
			return nil, errors.Wrap(InvalidCredentialsErr, err.Error())
		}
		return nil, err
	}

	sess := sessionFromPayload(payload)
	if err := e.commit(sess); err != nil {
		e.hub.Publish(prior)
		return nil, err
	}

	e.log.Info().Str("user", payload.User.ID).Msg("login succeeded")
	return &sess, nil
}

// Register creates an account and logs it in. All field checks run
// client-side first; a backend 409 is reported as a duplicate account.
func (e *Exchanger) Register(ctx context.Context, reg Registration) (*session.Session, error) {
	if err := e.validator.ValidateRegistration(reg); err != nil {
		return nil, err
	}

	prior := e.hub.Current()
	e.hub.Publish(broadcast.State{Status: broadcast.StatusPending})

	req := api.RegisterRequest{
		Email:       reg.Email,
		Password:    reg.Password,
		FirstName:   reg.FirstName,
		LastName:    reg.LastName,
		Phone:       reg.Phone,
		Country:     reg.Country,
		Language:    reg.Language,
		AcceptTerms: reg.AcceptTerms,
	}

	var payload api.AuthPayload
	if err := e.post(ctx, api.RouteRegister, req, &payload); err != nil {
		e.hub.Publish(prior)
		if api.ErrorStatus(err) == http.StatusConflict {
			return nil, errors.Wrap(DuplicateAccountErr, err.Error())
		}
		return nil, err
	}

	sess := sessionFromPayload(payload)
	if err := e.commit(sess); err != nil {
		e.hub.Publish(prior)
		return nil, err
	}

	e.log.Info().Str("user", payload.User.ID).Msg("registration succeeded")
	return &sess, nil
}

// Refresh exchanges a refresh token for a new token pair. It has no side
// effects on the store; RefreshSession is the persisting variant used by the
// request pipeline.
func (e *Exchanger) Refresh(ctx context.Context, refreshToken string) (*api.TokenPair, error) {
	if refreshToken == "" {
		return nil, errors.Wrap(UnauthorizedErr, "[Exchanger.Refresh] no refresh token")
	}

	var pair api.TokenPair
	if err := e.post(ctx, api.RouteRefresh, api.RefreshRequest{RefreshToken: refreshToken}, &pair); err != nil {
		if status := api.ErrorStatus(err); status != 0 {
			return nil, errors.Wrap(UnauthorizedErr, err.Error())
		}
		return nil, err
	}
	return &pair, nil
}

// RefreshSession refreshes the stored session's token pair in place, keeping
// the cached profile, and publishes the result. When the refresh cannot be
// completed the session is terminated: the store is cleared and subscribers
// see the unauthenticated state.
func (e *Exchanger) RefreshSession(ctx context.Context) (*session.Session, error) {
	sess, ok := e.store.Load()
	if !ok {
		return nil, NoSessionErr
	}

	pair, err := e.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		e.log.Warn().Err(err).Msg("refresh failed, terminating session")
		e.Clear()
		return nil, err
	}

	sess.AccessToken = pair.AccessToken
	sess.RefreshToken = pair.RefreshToken
	sess.ExpiresIn = pair.ExpiresIn
	if err := e.commit(sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Logout tells the backend to invalidate the refresh token and tears the
// local session down. The network call is best-effort: its failure is logged
// and deliberately ignored so that logout never fails from the caller's
// perspective.
func (e *Exchanger) Logout(ctx context.Context) {
	if sess, ok := e.store.Load(); ok && !sess.IsLocal() {
		if err := e.post(ctx, api.RouteLogout, api.LogoutRequest{RefreshToken: sess.RefreshToken}, nil); err != nil {
			e.log.Warn().Err(err).Msg("backend logout failed, clearing local session anyway")
		}
	}
	e.Clear()
}

// Clear drops the stored session and broadcasts the unauthenticated state.
func (e *Exchanger) Clear() {
	e.store.Clear()
	e.hub.Publish(broadcast.State{Status: broadcast.StatusUnauthenticated})
}

// CurrentUser fetches a fresh profile for the stored session.
func (e *Exchanger) CurrentUser(ctx context.Context) (*session.UserProfile, error) {
	sess, ok := e.store.Load()
	if !ok {
		return nil, NoSessionErr
	}

	var payload api.MePayload
	if err := e.get(ctx, api.RouteMe, sess.AccessToken, &payload); err != nil {
		if api.ErrorStatus(err) == http.StatusUnauthorized {
			return nil, errors.Wrap(UnauthorizedErr, err.Error())
		}
		return nil, err
	}
	return &payload.User, nil
}

// Status asks the backend whether the stored token is still good. The
// endpoint is tolerant of failure: any error reads as unauthenticated.
func (e *Exchanger) Status(ctx context.Context) api.StatusPayload {
	sess, ok := e.store.Load()
	if !ok {
		return api.StatusPayload{}
	}

	var payload api.StatusPayload
	if err := e.get(ctx, api.RouteStatus, sess.AccessToken, &payload); err != nil {
		e.log.Debug().Err(err).Msg("status check failed, treating as unauthenticated")
		return api.StatusPayload{}
	}
	return payload
}

// VerifyEmail redeems an email verification token.
func (e *Exchanger) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return &ValidationError{Field: "token", Reason: "verification token is required"}
	}
	return e.post(ctx, api.RouteVerifyEmail, api.VerifyEmailRequest{Token: token}, nil)
}

// ResendVerification asks the backend to send a fresh verification email. A
// per-address cooldown stops the caller from hammering the endpoint.
func (e *Exchanger) ResendVerification(ctx context.Context, email string) error {
	if err := e.validator.validateEmail(email); err != nil {
		return err
	}
	if _, hot := e.cooldowns.Get(email); hot {
		return CooldownErr
	}

	if err := e.post(ctx, api.RouteResendVerification, api.ResendVerificationRequest{Email: email}, nil); err != nil {
		return err
	}
	e.cooldowns.Set(email, e.nowTime(), e.cooldown)
	return nil
}

// Impersonate fabricates a session locally without contacting the backend.
// The access token carries the local prefix so the pipeline and session
// restore can tell it apart from backend-issued ones. Only available when
// test login is enabled.
func (e *Exchanger) Impersonate(profile session.UserProfile) (*session.Session, error) {
	if !e.testLogin {
		return nil, ImpersonationDisabledErr
	}
	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}

	sess := session.Session{
		AccessToken:  session.LocalTokenPrefix + uuid.New().String(),
		RefreshToken: session.LocalTokenPrefix + uuid.New().String(),
		ExpiresIn:    3600,
		User:         profile,
	}
	if err := e.commit(sess); err != nil {
		return nil, err
	}

	e.log.Info().Str("user", profile.ID).Msg("test login session created")
	return &sess, nil
}

// commit persists a session and publishes the authenticated state. The save
// happens first so no subscriber can act on a session that was never stored.
func (e *Exchanger) commit(sess session.Session) error {
	if err := e.store.Save(sess); err != nil {
		return errors.Wrap(err, "[Exchanger.commit] persisting session")
	}
	user := sess.User
	e.hub.Publish(broadcast.State{Status: broadcast.StatusAuthenticated, User: &user})
	return nil
}

func (e *Exchanger) post(ctx context.Context, path string, body, out any) error {
	return e.do(ctx, http.MethodPost, path, body, "", out)
}

func (e *Exchanger) get(ctx context.Context, path, bearer string, out any) error {
	return e.do(ctx, http.MethodGet, path, nil, bearer, out)
}

func (e *Exchanger) do(ctx context.Context, method, path string, body any, bearer string, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "[Exchanger] marshalling %s body", path)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, e.baseURL+path, reader)
	if err != nil {
		return errors.Wrapf(err, "[Exchanger] building %s request", path)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(NetworkErr, "[Exchanger] %s %s: %v", method, path, err)
	}
	return api.Decode(resp, out)
}

func sessionFromPayload(payload api.AuthPayload) session.Session {
	return session.Session{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		ExpiresIn:    payload.ExpiresIn,
		User:         payload.User,
	}
}
