// Package audit relays session lifecycle events to a caller-supplied sink
// without blocking the code that produced them.
//
// # Components
//
//   - [Sink] receives events (channel, JSON lines, zap, no-op).
//   - [Dispatcher] is a buffered relay that either drops or blocks when full.
//   - [Event] is one lifecycle record: type, user, session, request id, outcome.
//
// # Architecture boundaries
//
// The Engine decides which events exist and when they fire. This package only
// buffers and delivers them.
//
// # What this package must NOT do
//
//   - Carry access tokens or cookie values in events.
//   - Import goAuthClient or any sibling internal package.
package audit
