// Package transport is the authenticated request pipeline: an
// http.RoundTripper that attaches the session's bearer token to outgoing
// calls and recovers from exactly one class of failure - an expired access
// token - by refreshing and retrying the request once.
package transport

import (
	"context"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/hansamarket/go-session/api"
	"github.com/hansamarket/go-session/session"
)

// Refresher exchanges the stored refresh token for a new token pair,
// persisting the result. A failed refresh terminates the session before the
// error is returned.
type Refresher interface {
	RefreshSession(ctx context.Context) (*session.Session, error)
}

// Transport decorates a base RoundTripper with bearer injection and the
// refresh-and-retry-once recovery. It is the only retry policy in the
// client: network failures and 5xx responses pass through untouched.
type Transport struct {
	base      http.RoundTripper
	store     session.Store
	refresher Refresher
	log       zerolog.Logger

	// Concurrent 401s would each trigger their own refresh; the group
	// coalesces them into a single in-flight exchange shared by all waiters.
	group singleflight.Group
}

// Option modifies the Transport instance.
type Option func(*Transport)

// WithBase replaces the underlying RoundTripper (http.DefaultTransport by
// default).
func WithBase(base http.RoundTripper) Option {
	return func(t *Transport) {
		t.base = base
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(t *Transport) {
		t.log = log
	}
}

// New creates the pipeline transport.
func New(store session.Store, refresher Refresher, options ...Option) (*Transport, error) {
	if store == nil {
		return nil, errors.New("[transport.New] store is required")
	}
	if refresher == nil {
		return nil, errors.New("[transport.New] refresher is required")
	}

	t := &Transport{
		base:      http.DefaultTransport,
		store:     store,
		refresher: refresher,
		log:       zerolog.Nop(),
	}
	for _, opt := range options {
		opt(t)
	}
	return t, nil
}

var _ http.RoundTripper = (*Transport)(nil)

// RoundTrip dispatches the request with the current access token attached.
// On a 401 it refreshes the session and re-dispatches the request exactly
// once with the new token; the retried response is returned as-is, so a
// second 401 can never loop back into another refresh. When the refresh
// fails the session has already been terminated by the refresher and the
// caller sees the original 401.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	sess, ok := t.store.Load()

	outgoing := cloneWithBearer(req, sess, ok)
	resp, err := t.base.RoundTrip(outgoing)
	if err != nil {
		// Transport-level failure: never a refresh trigger.
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || !t.refreshable(req, sess, ok) {
		return resp, nil
	}

	fresh, refreshErr := t.refresh(req.Context())
	if refreshErr != nil {
		t.log.Debug().Err(refreshErr).Str("path", req.URL.Path).Msg("refresh failed, surfacing original 401")
		return resp, nil
	}

	retry, retryable := cloneForRetry(req, fresh.AccessToken)
	if !retryable {
		return resp, nil
	}
	resp.Body.Close()

	t.log.Debug().Str("path", req.URL.Path).Msg("retrying request with refreshed token")
	return t.base.RoundTrip(retry)
}

// refresh funnels concurrent callers through one refresh exchange.
func (t *Transport) refresh(ctx context.Context) (*session.Session, error) {
	v, err, _ := t.group.Do("refresh", func() (any, error) {
		return t.refresher.RefreshSession(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*session.Session), nil
}

// refreshable scopes the recovery path narrowly: only requests that carried a
// backend-issued token, for a session that still holds a refresh token, and
// that are not themselves credential endpoints - a 401 from /auth/login means
// wrong password, not an expired token.
func (t *Transport) refreshable(req *http.Request, sess session.Session, ok bool) bool {
	if !ok || sess.RefreshToken == "" || sess.IsLocal() {
		return false
	}
	for _, route := range api.CredentialRoutes {
		if strings.HasSuffix(req.URL.Path, route) {
			return false
		}
	}
	return true
}

// cloneWithBearer prepares the outgoing copy of req. The caller's request is
// never mutated; RoundTrippers are not allowed to modify their argument.
func cloneWithBearer(req *http.Request, sess session.Session, ok bool) *http.Request {
	clone := req.Clone(req.Context())
	if ok && sess.Complete() {
		clone.Header.Set("Authorization", "Bearer "+sess.AccessToken)
	}
	return clone
}

// cloneForRetry rebuilds the request for its single retry. A request whose
// body was consumed and cannot be replayed is not retryable.
func cloneForRetry(req *http.Request, accessToken string) (*http.Request, bool) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+accessToken)

	if req.Body == nil || req.Body == http.NoBody {
		return clone, true
	}
	if req.GetBody == nil {
		return nil, false
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	clone.Body = body
	return clone, true
}
