// Package refresh performs the credentialed access-token refresh exchange and
// classifies its outcome.
//
// # Outcome classes
//
//   - 401 is an authentication failure: the session is gone and must not be retried.
//   - Any other non-2xx status, or a transport error, is transient.
//   - A 2xx response without an access token is a protocol failure.
//
// # Architecture boundaries
//
// This package owns the wire envelope and the classification. Committing the
// result to the session, arming the proactive scheduler and choosing a retry
// policy belong to the Engine.
//
// # What this package must NOT do
//
//   - Read or write cookies (the http.Client's jar carries the refresh signal).
//   - Import goAuthClient, session or schedule.
package refresh
