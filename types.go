package goAuthClient

import (
	"github.com/MrEthical07/goAuthClient/internal/clock"
	"github.com/MrEthical07/goAuthClient/session"
)

// User is the identity the identity service assigned to this client.
type User = session.User

// Clock abstracts time for the bootstrap delays, token expiry and the
// proactive refresh timer.
type Clock = clock.Clock

// Timer is a pending callback returned by [Clock.AfterFunc].
type Timer = clock.Timer

// InitReason explains an [InitResult].
type InitReason int

const (
	// InitNoSession means no authentication marker cookie was present.
	InitNoSession InitReason = iota
	// InitInvalidCookie means the marker was present but user_info was missing
	// or malformed. The session cookies were cleared.
	InitInvalidCookie
	// InitRestored means a refresh restored the session.
	InitRestored
	// InitCacheRestored means a fresh cached snapshot restored the session
	// without a refresh round-trip.
	InitCacheRestored
	// InitExhausted means every refresh attempt failed. The session cookies
	// were cleared.
	InitExhausted
	// InitRejected means the identity service answered 401 to the refresh.
	InitRejected
	// InitAlreadyAuthenticated means a valid session was already held in memory.
	InitAlreadyAuthenticated
	// InitCanceled means the caller stopped waiting. The run itself continues.
	InitCanceled
	// InitProtocolFailure means a refresh succeeded without a usable token or
	// identity. It is not retried and the session cookies were cleared.
	InitProtocolFailure
)

func (r InitReason) String() string {
	switch r {
	case InitNoSession:
		return "no_session"
	case InitInvalidCookie:
		return "invalid_cookie"
	case InitRestored:
		return "restored"
	case InitCacheRestored:
		return "cache_restored"
	case InitExhausted:
		return "exhausted"
	case InitRejected:
		return "rejected"
	case InitAlreadyAuthenticated:
		return "already_authenticated"
	case InitCanceled:
		return "canceled"
	case InitProtocolFailure:
		return "protocol_failure"
	default:
		return "unknown"
	}
}

// InitResult is the outcome of session restoration. Restoration failures are
// reported here rather than as errors: Success is false only when the caller
// stopped waiting or the engine was closed, and Err then says why.
type InitResult struct {
	Success       bool
	Authenticated bool
	Reason        InitReason
	User          *User
	Attempts      int
	Err           error
}

// Phase is the coarse lifecycle state of an [Engine].
type Phase int

const (
	// PhaseUnauthenticated holds no valid session.
	PhaseUnauthenticated Phase = iota
	// PhaseInitializing has a restoration run in flight.
	PhaseInitializing
	// PhaseAuthenticated holds a valid token and identity.
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseInitializing:
		return "initializing"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}
