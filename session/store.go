package session

import (
	"context"
	"sync"
	"time"

	evbus "github.com/asaskevich/EventBus"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	interrors "github.com/dialdesk/go-console/internal/errors"
	"github.com/dialdesk/go-console/transport"
)

// TopicChanged is published on the event bus after every session state
// transition. Subscribers read the new state via Store.Current.
const TopicChanged = "session.changed"

const (
	loginPath  = "/auth/login"
	logoutPath = "/auth/logout"
)

// Doer is the slice of the request pipeline the store needs for its own
// auth calls. The pipeline attaches the bearer header itself, so the store
// never threads the token into these calls.
type Doer interface {
	Post(ctx context.Context, path string, body, out any) error
}

// Store is the single authoritative holder of login state. It is
// constructed once at process start and passed by handle to the request
// pipeline and to UI-facing code. All mutation goes through its operations;
// nothing mutates Session fields directly.
type Store struct {
	mu        sync.RWMutex
	current   Session
	loading   bool
	repo      Repo
	transport Doer
	bus       evbus.Bus
	logger    zerolog.Logger
	nowTime   func() time.Time
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

// WithBus sets the event bus used for change notifications.
func WithBus(bus evbus.Bus) StoreOption {
	return func(s *Store) {
		s.bus = bus
	}
}

// NewStore initialises the session store and restores any persisted session
// from the repo. Storage failures degrade to an empty in-memory session and
// are logged, never returned: an unavailable storage backend must not stop
// the client from starting.
func NewStore(repo Repo, options ...StoreOption) (*Store, error) {
	if repo == nil {
		return nil, errors.New("[NewStore] session repo is required")
	}

	store := &Store{
		repo:    repo,
		bus:     evbus.New(),
		logger:  zerolog.Nop(),
		nowTime: time.Now,
	}

	for _, opt := range options {
		opt(store)
	}

	restored, err := repo.Load()
	if err != nil {
		store.logger.Warn().Err(err).Msg("session restore failed, starting unauthenticated")
	} else if restored != nil {
		store.current = *restored
	}

	return store, nil
}

// SetTransport binds the request pipeline used for login/logout calls. The
// pipeline needs the store as its token source and the store needs the
// pipeline for its auth calls, so the binding happens after construction.
func (s *Store) SetTransport(d Doer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transport = d
}

// loginResponse tolerates the token field-name variants the backend has
// used over time. accessToken is the canonical field; token and
// access_token are compatibility shims for older backend revisions.
type loginResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"accessToken"`
	LegacyToken  string `json:"token"`
	SnakeToken   string `json:"access_token"`
	RefreshToken string `json:"refreshToken"`
	SnakeRefresh string `json:"refresh_token"`
}

func (r loginResponse) bearerToken() string {
	for _, t := range []string{r.AccessToken, r.LegacyToken, r.SnakeToken} {
		if t != "" {
			return t
		}
	}
	return ""
}

func (r loginResponse) refreshToken() string {
	if r.RefreshToken != "" {
		return r.RefreshToken
	}
	return r.SnakeRefresh
}

// Login authenticates against the platform. On success the user, tokens and
// cleared error are applied as one transition. On any failure the session
// stays unauthenticated, Err carries a human-readable message for the UI,
// and the error is returned to the caller. Login never succeeds silently
// with a missing token.
func (s *Store) Login(ctx context.Context, creds Credentials) error {
	s.SetLoading(true)
	defer s.SetLoading(false)

	s.mu.RLock()
	doer := s.transport
	s.mu.RUnlock()
	if doer == nil {
		return errors.New("[Store.Login] no transport configured")
	}

	// A re-login attempt can still carry a stale bearer; its rejection is a
	// credential error for this caller, not a session expiry.
	var resp loginResponse
	if err := doer.Post(transport.WithLocalUnauthorized(ctx), loginPath, creds, &resp); err != nil {
		s.SetError(loginFailureMessage(err))
		return errors.Wrap(err, "[Store.Login] login request failed")
	}

	token := resp.bearerToken()
	if token == "" {
		s.SetError("login response contained no access token")
		return errors.Wrap(interrors.ErrMissingToken, "[Store.Login]")
	}

	s.mu.Lock()
	s.current = Session{
		User: resp.User,
		Token: &oauth2.Token{
			AccessToken:  token,
			RefreshToken: resp.refreshToken(),
			TokenType:    "Bearer",
		},
	}
	s.persistLocked()
	s.mu.Unlock()

	s.bus.Publish(TopicChanged)
	return nil
}

// Logout clears the session unconditionally. The server-side logout call is
// best-effort: its failure is logged and ignored, local state clearing never
// depends on it.
func (s *Store) Logout(ctx context.Context) {
	s.mu.RLock()
	doer := s.transport
	authenticated := s.current.IsAuthenticated()
	s.mu.RUnlock()

	if doer != nil && authenticated {
		if err := doer.Post(transport.WithLocalUnauthorized(ctx), logoutPath, nil, nil); err != nil {
			s.logger.Debug().Err(err).Msg("server-side logout failed, clearing locally anyway")
		}
	}

	s.clear("")
}

// ForceLogout clears the session locally without a server call. The request
// pipeline invokes it when any authenticated request comes back 401.
func (s *Store) ForceLogout(reason string) {
	s.clear(reason)
}

func (s *Store) clear(errMessage string) {
	s.mu.Lock()
	s.current = Session{Err: errMessage}
	if err := s.repo.Clear(); err != nil {
		s.logger.Warn().Err(err).Msg("clearing persisted session failed")
	}
	s.mu.Unlock()

	s.bus.Publish(TopicChanged)
}

// Token returns the current bearer credential or "". It is a pure read with
// no side effects; the request pipeline calls it on every outbound request.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.AccessToken()
}

// Current returns a snapshot of the session. The returned value shares no
// mutable state with the store.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.current
	if s.current.User != nil {
		user := *s.current.User
		snapshot.User = &user
	}
	if s.current.Token != nil {
		token := *s.current.Token
		snapshot.Token = &token
	}
	return snapshot
}

// SetError records an auth-operation failure message for UI display.
func (s *Store) SetError(message string) {
	s.mu.Lock()
	s.current.Err = message
	s.mu.Unlock()

	s.bus.Publish(TopicChanged)
}

// SetLoading flags an auth operation in flight, for UI feedback only.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// TokenExpiry reports when the access token expires, when that can be
// determined. The token is opaque by contract; when it happens to be a JWT
// the exp claim is read without signature verification (the client holds no
// keys and only uses this for proactive re-login prompts).
func (s *Store) TokenExpiry() (time.Time, bool) {
	token := s.Token()
	if token == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// persistLocked writes the current session through the repo. Callers hold
// the write lock. Failures degrade to in-memory-only state.
func (s *Store) persistLocked() {
	if err := s.repo.Save(s.current); err != nil {
		s.logger.Warn().Err(err).Msg("persisting session failed, continuing in memory")
	}
}

func loginFailureMessage(err error) string {
	var apiErr *transport.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "login failed"
}
