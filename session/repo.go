package session

// Repo is the durable storage boundary for the session. The Store is the
// only caller; UI code never touches storage directly.
type Repo interface {
	// Save persists the session, replacing any previous one
	Save(session Session) error

	// Load retrieves the persisted session. A nil session with a nil error
	// means nothing is persisted.
	Load() (*Session, error)

	// Clear removes the persisted session
	Clear() error
}
