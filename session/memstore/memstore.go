// Package memstore is an in-memory Store keyed the same way as the durable
// implementations. It backs tests and short-lived processes that do not want
// a session to outlive them.
package memstore

import (
	"encoding/json"
	"sync"

	"github.com/hansamarket/go-session/session"
)

// Store holds the session values in a mutex-guarded key-value map.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ session.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{values: make(map[string]string)}
}

// Save overwrites all three session keys under a single lock acquisition, so
// concurrent readers never observe a partial write.
func (s *Store) Save(sess session.Session) error {
	user, err := json.Marshal(sess.User)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[session.KeyAccessToken] = sess.AccessToken
	s.values[session.KeyRefreshToken] = sess.RefreshToken
	s.values[session.KeyUser] = string(user)
	return nil
}

// Load returns the stored session, reporting absent when any key is missing
// or the cached profile does not deserialize.
func (s *Store) Load() (session.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	access, ok := s.values[session.KeyAccessToken]
	if !ok || access == "" {
		return session.Session{}, false
	}
	refresh, ok := s.values[session.KeyRefreshToken]
	if !ok || refresh == "" {
		return session.Session{}, false
	}
	raw, ok := s.values[session.KeyUser]
	if !ok {
		return session.Session{}, false
	}

	var user session.UserProfile
	if err := json.Unmarshal([]byte(raw), &user); err != nil || user.ID == "" {
		return session.Session{}, false
	}

	return session.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user,
	}, true
}

// Clear removes all session keys. Idempotent.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, session.KeyAccessToken)
	delete(s.values, session.KeyRefreshToken)
	delete(s.values, session.KeyUser)
}

// Put writes a raw value under a storage key, bypassing Save. It exists so
// tests can stage corrupt or partial states.
func (s *Store) Put(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}
