package transport_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/hansamarket/go-session/api"
	"github.com/hansamarket/go-session/session"
	"github.com/hansamarket/go-session/session/memstore"
	"github.com/hansamarket/go-session/transport"
)

// stubRefresher implements the refresher contract: on success it persists the
// next session, on failure it terminates whatever is stored.
type stubRefresher struct {
	store session.Store
	next  session.Session
	err   error
	delay time.Duration
	calls atomic.Int64
}

func (r *stubRefresher) RefreshSession(ctx context.Context) (*session.Session, error) {
	r.calls.Add(1)
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	if r.err != nil {
		r.store.Clear()
		return nil, r.err
	}
	if err := r.store.Save(r.next); err != nil {
		return nil, err
	}
	next := r.next
	return &next, nil
}

func staleSession() session.Session {
	return session.Session{
		AccessToken:  "A1",
		RefreshToken: "R1",
		User:         session.UserProfile{ID: "u1", Email: "anna@example.com"},
	}
}

func freshSession() session.Session {
	sess := staleSession()
	sess.AccessToken = "A2"
	sess.RefreshToken = "R2"
	return sess
}

// newClient wires a Transport over the test server and returns an http.Client
// that dispatches through it.
func newClient(t *testing.T, store session.Store, refresher transport.Refresher) *http.Client {
	t.Helper()
	tr, err := transport.New(store, refresher)
	require.NoError(t, err)
	return &http.Client{Transport: tr}
}

func TestTransport_AttachesBearer(t *testing.T) {
	var authHeader atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader.Store(r.Header.Get("Authorization"))
	}))
	defer server.Close()

	store := memstore.New()
	require.NoError(t, store.Save(staleSession()))
	client := newClient(t, store, &stubRefresher{store: store})

	resp, err := client.Get(server.URL + "/listings")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, "Bearer A1", authHeader.Load())
}

func TestTransport_NoSessionMeansNoHeader(t *testing.T) {
	var authHeader atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader.Store(r.Header.Get("Authorization"))
	}))
	defer server.Close()

	client := newClient(t, memstore.New(), &stubRefresher{store: memstore.New()})

	resp, err := client.Get(server.URL + "/listings")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, "", authHeader.Load())
}

func TestTransport_RefreshAndRetryOn401(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.Header.Get("Authorization") != "Bearer A2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	store := memstore.New()
	require.NoError(t, store.Save(staleSession()))
	refresher := &stubRefresher{store: store, next: freshSession()}
	client := newClient(t, store, refresher)

	resp, err := client.Get(server.URL + "/listings")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", string(body))
	require.Equal(t, int64(1), refresher.calls.Load())
	require.Equal(t, int64(2), requests.Load())

	stored, ok := store.Load()
	require.True(t, ok)
	require.Equal(t, "A2", stored.AccessToken)
	require.Equal(t, "R2", stored.RefreshToken)
}

func TestTransport_RetriesAtMostOnce(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	store := memstore.New()
	require.NoError(t, store.Save(staleSession()))
	refresher := &stubRefresher{store: store, next: freshSession()}
	client := newClient(t, store, refresher)

	resp, err := client.Get(server.URL + "/listings")
	require.NoError(t, err)
	resp.Body.Close()

	// The retried 401 is final: one refresh, one retry, no loop.
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, int64(1), refresher.calls.Load())
	require.Equal(t, int64(2), requests.Load())
}

func TestTransport_RefreshFailureSurfacesOriginal401(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	store := memstore.New()
	require.NoError(t, store.Save(staleSession()))
	refresher := &stubRefresher{store: store, err: errors.New("refresh token expired")}
	client := newClient(t, store, refresher)

	resp, err := client.Get(server.URL + "/listings")
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, int64(1), requests.Load())

	// The refresher terminated the session.
	_, ok := store.Load()
	require.False(t, ok)
}

func TestTransport_401WithoutSessionPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	refresher := &stubRefresher{store: memstore.New()}
	client := newClient(t, memstore.New(), refresher)

	resp, err := client.Get(server.URL + "/listings")
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Zero(t, refresher.calls.Load())
}

func TestTransport_LocalSessionNeverRefreshes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	store := memstore.New()
	local := staleSession()
	local.AccessToken = session.LocalTokenPrefix + "abc"
	local.RefreshToken = session.LocalTokenPrefix + "def"
	require.NoError(t, store.Save(local))
	refresher := &stubRefresher{store: store, next: freshSession()}
	client := newClient(t, store, refresher)

	resp, err := client.Get(server.URL + "/listings")
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Zero(t, refresher.calls.Load())
}

func TestTransport_CredentialRoutes401PassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	store := memstore.New()
	require.NoError(t, store.Save(staleSession()))
	refresher := &stubRefresher{store: store, next: freshSession()}
	client := newClient(t, store, refresher)

	for _, route := range api.CredentialRoutes {
		resp, err := client.Post(server.URL+"/api"+route, "application/json", strings.NewReader("{}"))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	// A wrong password is a wrong password, not an expired token.
	require.Zero(t, refresher.calls.Load())
}

func TestTransport_RetryReplaysRequestBody(t *testing.T) {
	var bodies sync.Map
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)
		body, _ := io.ReadAll(r.Body)
		bodies.Store(n, string(body))
		if r.Header.Get("Authorization") != "Bearer A2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
	}))
	defer server.Close()

	store := memstore.New()
	require.NoError(t, store.Save(staleSession()))
	client := newClient(t, store, &stubRefresher{store: store, next: freshSession()})

	resp, err := client.Post(server.URL+"/listings", "application/json", strings.NewReader(`{"title":"Bageri i Malmö"}`))
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, int64(2), requests.Load())
	first, _ := bodies.Load(int64(1))
	second, _ := bodies.Load(int64(2))
	require.Equal(t, first, second, "the retry must replay the identical body")
}

func TestTransport_ConcurrentRefreshIsCoalesced(t *testing.T) {
	const workers = 8

	// The barrier holds every 401 back until all workers are in flight, so
	// their refresh attempts overlap and must collapse into one exchange.
	var arrived atomic.Int64
	barrier := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer A2" {
			if arrived.Add(1) == workers {
				close(barrier)
			}
			<-barrier
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
	}))
	defer server.Close()

	store := memstore.New()
	require.NoError(t, store.Save(staleSession()))
	refresher := &stubRefresher{store: store, next: freshSession(), delay: 100 * time.Millisecond}
	client := newClient(t, store, refresher)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := client.Get(server.URL + "/listings")
			require.NoError(t, err)
			resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode)
		}()
	}
	wg.Wait()

	require.Equal(t, int64(1), refresher.calls.Load())
}

func TestTransport_TransportErrorsPassThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	store := memstore.New()
	require.NoError(t, store.Save(staleSession()))
	refresher := &stubRefresher{store: store, next: freshSession()}
	client := newClient(t, store, refresher)

	_, err := client.Get(server.URL + "/listings")
	require.Error(t, err)
	require.Zero(t, refresher.calls.Load())
}
