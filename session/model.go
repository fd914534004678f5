package session

import "time"

// User is the identity record assigned by the identity service at verification
// or refresh time. Empty fields mean "unknown".
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	SessionID string `json:"session_id,omitempty"`
}

// Complete reports whether the identity carries both an id and an email.
func (u User) Complete() bool {
	return u.ID != "" && u.Email != ""
}

// State is the full session record. Zero values stand for "unset".
type State struct {
	Authenticated  bool
	UserEmail      string
	UserID         string
	SessionID      string
	AccessToken    string
	TokenExpiry    time.Time
	LastValidation time.Time
}

// HasToken reports whether an access token is held, regardless of expiry.
func (s State) HasToken() bool {
	return s.AccessToken != ""
}

// HasUser reports whether both identifiers required for authentication are held.
func (s State) HasUser() bool {
	return s.UserID != "" && s.UserEmail != ""
}

// User returns the identity portion of the state.
func (s State) User() User {
	return User{ID: s.UserID, Email: s.UserEmail, SessionID: s.SessionID}
}

// Action records what Reconcile did to a state.
type Action int

const (
	// ActionNone leaves the state untouched.
	ActionNone Action = iota
	// ActionRepaired set a missing authenticated flag.
	ActionRepaired
	// ActionExpired dropped the flag because the token entered the safety buffer.
	ActionExpired
	// ActionCleared wiped an inconsistent state.
	ActionCleared
)

func (a Action) String() string {
	switch a {
	case ActionRepaired:
		return "repaired"
	case ActionExpired:
		return "expired"
	case ActionCleared:
		return "cleared"
	default:
		return "none"
	}
}

// Valid reports whether s carries a token that is still usable at now (treating
// it as expired buffer before its literal expiry) together with a complete
// identity.
func Valid(s State, now time.Time, buffer time.Duration) bool {
	if !s.HasToken() || !s.HasUser() || s.TokenExpiry.IsZero() {
		return false
	}
	return now.Add(buffer).Before(s.TokenExpiry)
}

// Reconcile returns s corrected so that Authenticated equals Valid(s, now, buffer).
// It never mutates its argument.
func Reconcile(s State, now time.Time, buffer time.Duration) (State, Action) {
	valid := Valid(s, now, buffer)
	switch {
	case valid && s.Authenticated:
		return s, ActionNone
	case valid:
		s.Authenticated = true
		s.LastValidation = now
		return s, ActionRepaired
	case !s.Authenticated:
		return s, ActionNone
	case !s.HasToken() || !s.HasUser():
		return State{}, ActionCleared
	default:
		// Token and identity are kept so a refresh can reuse the identity.
		s.Authenticated = false
		return s, ActionExpired
	}
}
