package memstore_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hansamarket/go-session/session"
	"github.com/hansamarket/go-session/session/memstore"
)

func testSession() session.Session {
	return session.Session{
		AccessToken:  "A1",
		RefreshToken: "R1",
		User: session.UserProfile{
			ID:                "u1",
			Email:             "anna@example.com",
			FirstName:         "Anna",
			LastName:          "Andersson",
			Role:              "USER",
			VerificationLevel: session.VerificationEmail,
			Country:           session.CountrySweden,
			Language:          session.LanguageSwedish,
		},
	}
}

func TestStore_RoundTrip(t *testing.T) {
	store := memstore.New()
	saved := testSession()

	require.NoError(t, store.Save(saved))

	loaded, ok := store.Load()
	require.True(t, ok)
	require.Equal(t, saved.AccessToken, loaded.AccessToken)
	require.Equal(t, saved.RefreshToken, loaded.RefreshToken)
	require.Equal(t, saved.User, loaded.User)
}

func TestStore_LoadAbsent(t *testing.T) {
	t.Run("empty store", func(t *testing.T) {
		store := memstore.New()
		_, ok := store.Load()
		require.False(t, ok)
	})

	t.Run("corrupt profile is fail-safe", func(t *testing.T) {
		store := memstore.New()
		require.NoError(t, store.Save(testSession()))
		store.Put(session.KeyUser, "{not valid json")

		_, ok := store.Load()
		require.False(t, ok)
	})

	t.Run("token without profile is not a session", func(t *testing.T) {
		store := memstore.New()
		store.Put(session.KeyAccessToken, "A1")
		store.Put(session.KeyRefreshToken, "R1")

		_, ok := store.Load()
		require.False(t, ok)
	})

	t.Run("profile without tokens is not a session", func(t *testing.T) {
		store := memstore.New()
		store.Put(session.KeyUser, `{"id":"u1","email":"anna@example.com"}`)

		_, ok := store.Load()
		require.False(t, ok)
	})
}

func TestStore_Clear(t *testing.T) {
	store := memstore.New()
	require.NoError(t, store.Save(testSession()))

	store.Clear()
	_, ok := store.Load()
	require.False(t, ok)

	// Idempotent.
	store.Clear()
	_, ok = store.Load()
	require.False(t, ok)
}

func TestStore_SaveOverwrites(t *testing.T) {
	store := memstore.New()
	require.NoError(t, store.Save(testSession()))

	next := testSession()
	next.AccessToken = "A2"
	next.RefreshToken = "R2"
	require.NoError(t, store.Save(next))

	loaded, ok := store.Load()
	require.True(t, ok)
	require.Equal(t, "A2", loaded.AccessToken)
	require.Equal(t, "R2", loaded.RefreshToken)
}
