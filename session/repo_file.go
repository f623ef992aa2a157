package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

const sessionFileName = "session.json"

// FileRepo persists the session as JSON under a fixed file name in the
// client state folder, restoring it on next process start. The file is
// written 0600: it holds a live bearer credential.
type FileRepo struct {
	mu   sync.Mutex
	path string
}

var _ Repo = (*FileRepo)(nil)

// NewFileRepo creates a file-backed session repository rooted at folder.
func NewFileRepo(folder string) (*FileRepo, error) {
	if folder == "" {
		return nil, errors.New("[NewFileRepo] state folder is required")
	}
	return &FileRepo{path: filepath.Join(folder, sessionFileName)}, nil
}

// Save persists the session, replacing any previous one.
func (r *FileRepo) Save(session Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return errors.Wrap(err, "[FileRepo.Save] create state folder")
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[FileRepo.Save] marshal session")
	}

	if err := os.WriteFile(r.path, data, 0o600); err != nil {
		return errors.Wrap(err, "[FileRepo.Save] write session file")
	}
	return nil
}

// Load retrieves the persisted session. A missing file is not an error; it
// means no session is persisted.
func (r *FileRepo) Load() (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[FileRepo.Load] read session file")
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, errors.Wrap(err, "[FileRepo.Load] unmarshal session")
	}
	return &session, nil
}

// Clear removes the persisted session. Clearing an already-absent session
// is not an error.
func (r *FileRepo) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileRepo.Clear] remove session file")
	}
	return nil
}
