package repofakes

import (
	"sync"

	"github.com/dialdesk/go-console/session"
)

// FakeSessionRepo is an in-memory session.Repo for tests. Errors can be
// injected per operation to exercise the storage-degradation paths.
type FakeSessionRepo struct {
	mu      sync.Mutex
	stored  *session.Session
	SaveErr error
	LoadErr error
	ClrErr  error

	SaveCalls  int
	ClearCalls int
}

var _ session.Repo = (*FakeSessionRepo)(nil)

// NewFakeSessionRepo creates an empty fake session repository.
func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{}
}

func (r *FakeSessionRepo) Save(s session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.SaveCalls++
	if r.SaveErr != nil {
		return r.SaveErr
	}
	stored := s
	r.stored = &stored
	return nil
}

func (r *FakeSessionRepo) Load() (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.LoadErr != nil {
		return nil, r.LoadErr
	}
	if r.stored == nil {
		return nil, nil
	}
	stored := *r.stored
	return &stored, nil
}

func (r *FakeSessionRepo) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ClearCalls++
	if r.ClrErr != nil {
		return r.ClrErr
	}
	r.stored = nil
	return nil
}

// Stored returns the currently persisted session, or nil.
func (r *FakeSessionRepo) Stored() *session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stored == nil {
		return nil
	}
	stored := *r.stored
	return &stored
}
