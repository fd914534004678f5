// Package session holds the canonical in-memory authentication state of a client:
// identity, access token, expiry and the derived authenticated flag.
//
// # Consistency model
//
// The authenticated flag is derived data. Every read runs [Reconcile], which
// repairs a missing flag when token and identity are both valid, drops the flag
// when the token has entered the safety buffer, and clears the whole state when
// the flag is set but the token or identity is missing.
//
// # Architecture boundaries
//
// This package owns the [State] model and the mutex-guarded [Store]. It does NOT
// perform network I/O, read cookies, or schedule refreshes; the bound
// [Canceler] is only told to stop when the state is cleared.
//
// # What this package must NOT do
//
//   - Import goAuthClient, refresh, cookies or schedule (no upward imports).
//   - Call the Canceler or Observer while holding the store lock.
package session
