package session

import (
	"sync"
	"time"

	"github.com/MrEthical07/goAuthClient/internal/clock"
)

// DefaultSafetyBuffer is how long before literal expiry a token stops counting
// as valid.
const DefaultSafetyBuffer = 60 * time.Second

// Canceler is notified when the state is cleared. The proactive refresh
// scheduler implements it.
type Canceler interface {
	Cancel()
}

// Observer receives every non-trivial reconcile action and every Clear.
type Observer func(Action)

// Store is the single mutable owner of a client's [State].
type Store struct {
	mu       sync.Mutex
	state    State
	clock    clock.Clock
	buffer   time.Duration
	canceler Canceler
	observer Observer
}

// NewStore creates an empty store. A nil clock falls back to the real clock and
// a negative buffer to [DefaultSafetyBuffer].
func NewStore(clk clock.Clock, safetyBuffer time.Duration) *Store {
	if clk == nil {
		clk = clock.Real{}
	}
	if safetyBuffer < 0 {
		safetyBuffer = DefaultSafetyBuffer
	}
	return &Store{
		clock:  clk,
		buffer: safetyBuffer,
	}
}

// BindScheduler registers the canceler stopped by Clear.
func (s *Store) BindScheduler(c Canceler) {
	s.mu.Lock()
	s.canceler = c
	s.mu.Unlock()
}

// OnReconcile registers an observer for repairs, expiries and clears.
func (s *Store) OnReconcile(fn Observer) {
	s.mu.Lock()
	s.observer = fn
	s.mu.Unlock()
}

// SetUser stores the identity, sets the authenticated flag and stamps the
// validation time. The flag is reconciled against the token on the next read.
func (s *Store) SetUser(u User) {
	s.mu.Lock()
	s.state.UserEmail = u.Email
	s.state.UserID = u.ID
	s.state.SessionID = u.SessionID
	s.state.Authenticated = true
	s.state.LastValidation = s.clock.Now()
	s.mu.Unlock()
}

// SetAccessToken stores token with an expiry of now + expiresIn.
func (s *Store) SetAccessToken(token string, expiresIn time.Duration) {
	s.mu.Lock()
	s.state.AccessToken = token
	s.state.TokenExpiry = s.clock.Now().Add(expiresIn)
	s.mu.Unlock()
}

// Commit applies token and identity atomically and returns the new expiry.
func (s *Store) Commit(u User, token string, expiresIn time.Duration) time.Time {
	s.mu.Lock()
	now := s.clock.Now()
	s.state = State{
		Authenticated:  true,
		UserEmail:      u.Email,
		UserID:         u.ID,
		SessionID:      u.SessionID,
		AccessToken:    token,
		TokenExpiry:    now.Add(expiresIn),
		LastValidation: now,
	}
	expiry := s.state.TokenExpiry
	s.mu.Unlock()
	return expiry
}

// IsAuthenticated reconciles the state and returns the derived flag.
func (s *Store) IsAuthenticated() bool {
	st := s.reconciled()
	return st.Authenticated
}

// CurrentUser returns a copy of the identity when the session is authenticated.
func (s *Store) CurrentUser() (User, bool) {
	st := s.reconciled()
	if !st.Authenticated {
		return User{}, false
	}
	return st.User(), true
}

// AccessToken returns the token when the session is authenticated.
func (s *Store) AccessToken() (string, bool) {
	st := s.reconciled()
	if !st.Authenticated {
		return "", false
	}
	return st.AccessToken, true
}

// Identity returns whatever identity is held, authenticated or not. Refresh
// uses it as a fallback when the identity service omits the user payload.
func (s *Store) Identity() (User, bool) {
	st := s.reconciled()
	u := st.User()
	return u, u.Complete()
}

// Snapshot returns a reconciled copy of the full state.
func (s *Store) Snapshot() State {
	return s.reconciled()
}

// TokenExpiry returns the stored expiry, zero when no token is held.
func (s *Store) TokenExpiry() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.TokenExpiry
}

// Clear resets every field and cancels the bound scheduler. Calling it on an
// empty store is a no-op apart from the cancel.
func (s *Store) Clear() {
	s.mu.Lock()
	wasSet := s.state != (State{})
	s.state = State{}
	canceler := s.canceler
	observer := s.observer
	s.mu.Unlock()

	if canceler != nil {
		canceler.Cancel()
	}
	if wasSet && observer != nil {
		observer(ActionCleared)
	}
}

func (s *Store) reconciled() State {
	s.mu.Lock()
	next, action := Reconcile(s.state, s.clock.Now(), s.buffer)
	s.state = next
	canceler := s.canceler
	observer := s.observer
	s.mu.Unlock()

	if action == ActionCleared && canceler != nil {
		canceler.Cancel()
	}
	if action != ActionNone && observer != nil {
		observer(action)
	}
	return next
}
