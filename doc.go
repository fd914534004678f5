// Package goAuthClient manages the client side of a passwordless session: it
// exchanges a one-time passcode for a short-lived access token, restores the
// session from cookies on start-up, refreshes the token before it expires and
// attaches it to backend function calls.
//
// Build an [Engine] with [New]:
//
//	engine, err := goAuthClient.New().
//		WithConfig(cfg).
//		WithLogger(logger).
//		Build()
//
// then call [Engine.Init] once at start-up and [Engine.ExecuteFunction] for
// authenticated work. Engine methods are safe for concurrent use.
//
// # Architecture boundaries
//
// goAuthClient is the public surface: [Engine], [Builder], [Config] and value
// types. Cookie parsing lives in cookies, the refresh exchange in refresh, the
// token and identity record in session, the proactive timer in schedule and
// snapshot persistence in cache. Time, retry loops, HTTP plumbing and audit
// dispatch live under internal/.
//
// # What this package must NOT do
//
//   - Verify token signatures. Claims are only inspected as a last-resort
//     identity source.
//   - Write the authenticated or user_info cookies. The identity service owns
//     them; the Engine only expires them when restoration proves them invalid.
//   - Log access tokens or cookie values.
package goAuthClient
