// Package client is the composition root of the session manager. It wires
// the token store, the credential exchange, the authenticated request
// pipeline and the propagation hub into one injectable object owned by the
// application - there is no ambient singleton, so tests construct isolated
// instances.
package client

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/hansamarket/go-session/api"
	"github.com/hansamarket/go-session/broadcast"
	"github.com/hansamarket/go-session/exchange"
	"github.com/hansamarket/go-session/internal/config"
	"github.com/hansamarket/go-session/session"
	"github.com/hansamarket/go-session/transport"
)

// Client owns the session for one process.
type Client struct {
	exchange   *exchange.Exchanger
	hub        *broadcast.Hub
	store      session.Store
	httpClient *http.Client
	log        zerolog.Logger
}

// Option modifies the Client instance.
type Option func(*options)

type options struct {
	log           zerolog.Logger
	baseTransport http.RoundTripper
}

// WithLogger sets the logger shared by all components.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithBaseTransport replaces the RoundTripper beneath the pipeline
// (primarily for testing).
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.baseTransport = rt
	}
}

// New wires up a session client against the given store.
func New(cfg config.Config, store session.Store, opts ...Option) (*Client, error) {
	o := &options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(o)
	}

	hub := broadcast.NewHub()

	ex, err := exchange.New(cfg, store, hub, exchange.WithLogger(o.log))
	if err != nil {
		return nil, errors.Wrap(err, "[client.New] creating exchanger")
	}

	trOpts := []transport.Option{transport.WithLogger(o.log)}
	if o.baseTransport != nil {
		trOpts = append(trOpts, transport.WithBase(o.baseTransport))
	}
	tr, err := transport.New(store, ex, trOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "[client.New] creating transport")
	}

	return &Client{
		exchange:   ex,
		hub:        hub,
		store:      store,
		httpClient: &http.Client{Transport: tr, Timeout: cfg.GetHTTPTimeout()},
		log:        o.log,
	}, nil
}

// Init restores the session persisted by a previous run. A local test-login
// session is adopted as-is; a backend-issued one is validated by fetching a
// fresh profile, and any failure there clears the session rather than
// serving an unverifiable identity.
func (c *Client) Init(ctx context.Context) error {
	sess, ok := c.store.Load()
	if !ok {
		c.hub.Publish(broadcast.State{Status: broadcast.StatusUnauthenticated})
		return nil
	}

	c.hub.Publish(broadcast.State{Status: broadcast.StatusPending})

	if sess.IsLocal() {
		user := sess.User
		c.hub.Publish(broadcast.State{Status: broadcast.StatusAuthenticated, User: &user})
		return nil
	}

	profile, err := c.exchange.CurrentUser(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("session restore failed, clearing stored session")
		c.exchange.Clear()
		return nil
	}

	sess.User = *profile
	if err := c.store.Save(sess); err != nil {
		return errors.Wrap(err, "[Client.Init] persisting refreshed profile")
	}
	c.hub.Publish(broadcast.State{Status: broadcast.StatusAuthenticated, User: profile})
	return nil
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string, rememberMe bool) (*session.Session, error) {
	return c.exchange.Login(ctx, email, password, rememberMe)
}

// Register creates an account and logs it in.
func (c *Client) Register(ctx context.Context, reg exchange.Registration) (*session.Session, error) {
	return c.exchange.Register(ctx, reg)
}

// Logout tears the session down; it never fails from the caller's
// perspective.
func (c *Client) Logout(ctx context.Context) {
	c.exchange.Logout(ctx)
}

// Impersonate creates a backend-free test session when test login is
// enabled.
func (c *Client) Impersonate(profile session.UserProfile) (*session.Session, error) {
	return c.exchange.Impersonate(profile)
}

// Status asks the backend whether the stored token is still good.
func (c *Client) Status(ctx context.Context) api.StatusPayload {
	return c.exchange.Status(ctx)
}

// Exchange exposes the credential exchange for the remaining operations
// (email verification, resend cooldown).
func (c *Client) Exchange() *exchange.Exchanger {
	return c.exchange
}

// Subscribe registers a consumer for session state transitions.
func (c *Client) Subscribe() (<-chan broadcast.State, func()) {
	return c.hub.Subscribe()
}

// Current returns the latest session state.
func (c *Client) Current() broadcast.State {
	return c.hub.Current()
}

// IsAuthenticated is derived from the current state.
func (c *Client) IsAuthenticated() bool {
	return c.hub.Current().IsAuthenticated()
}

// HTTPClient returns the client whose transport attaches the bearer token
// and performs the refresh-and-retry-once recovery. All authenticated
// business calls go through it.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}
