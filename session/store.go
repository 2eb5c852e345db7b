package session

// Storage keys, mirrored by every Store implementation. The three values are
// always written and removed together.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

// Store is durable, synchronous persistence for the current Session.
//
// Implementations are infallible from the caller's viewpoint on the read
// side: Load never returns an error, it reports absent instead. A store must
// never expose a partial session - Save writes all three keys together and
// Clear removes them together.
type Store interface {
	// Save overwrites the stored session with the given one.
	Save(sess Session) error

	// Load returns the stored session. It reports absent when any key is
	// missing or the cached profile does not deserialize.
	Load() (Session, bool)

	// Clear removes the stored session. Clearing an empty store is a no-op.
	Clear()
}
