// Package filestore persists the session to a JSON file on disk. It is the
// durable store used by the CLI, playing the role the browser's local storage
// plays for the web client.
package filestore

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/hansamarket/go-session/session"
)

const fileName = "session.json"

// record is the on-disk layout: the same three keys every store holds, with
// the profile kept serialized so a corrupt profile can be detected
// independently of the token fields.
type record struct {
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
	User         json.RawMessage `json:"user"`
}

// Store writes the session file under a data folder.
type Store struct {
	path string
}

var _ session.Store = (*Store)(nil)

// New creates a file store rooted at dataFolder, creating the folder if
// needed.
func New(dataFolder string) (*Store, error) {
	if err := os.MkdirAll(dataFolder, 0o700); err != nil {
		return nil, errors.Wrap(err, "[filestore.New] creating data folder")
	}
	return &Store{path: filepath.Join(dataFolder, fileName)}, nil
}

// Save writes the whole session in one atomic replace: the record is written
// to a temp file and renamed over the previous one, so readers see either the
// old session or the new one, never a mix.
func (s *Store) Save(sess session.Session) error {
	user, err := json.Marshal(sess.User)
	if err != nil {
		return errors.Wrap(err, "[Store.Save] marshalling profile")
	}

	data, err := json.Marshal(record{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		User:         user,
	})
	if err != nil {
		return errors.Wrap(err, "[Store.Save] marshalling record")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "[Store.Save] writing session file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "[Store.Save] replacing session file")
	}
	return nil
}

// Load reads the session file. A missing file, unreadable record, or a
// profile that does not deserialize all report absent - never an error.
func (s *Store) Load() (session.Session, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return session.Session{}, false
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return session.Session{}, false
	}
	if rec.AccessToken == "" || rec.RefreshToken == "" {
		return session.Session{}, false
	}

	var user session.UserProfile
	if err := json.Unmarshal(rec.User, &user); err != nil || user.ID == "" {
		return session.Session{}, false
	}

	return session.Session{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		User:         user,
	}, true
}

// Clear removes the session file. Removing a file that does not exist is a
// no-op.
func (s *Store) Clear() {
	_ = os.Remove(s.path)
}

// Path returns the location of the session file.
func (s *Store) Path() string {
	return s.path
}
