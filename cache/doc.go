// Package cache holds short-lived snapshots of an authenticated session so a
// restart inside the snapshot TTL can restore without a refresh round-trip.
//
// # Design
//
// A Snapshot is keyed by the user id and session id it was issued for. Keys are
// blake2b digests, so neither identifier appears in plain text in Redis.
// Records are versioned and binary encoded. Expiry is enforced both by the
// backend TTL and by the Timestamp carried in the record.
//
// # Architecture boundaries
//
// This package owns persistence only. Deciding whether a snapshot may be used
// (cookie identity match, remaining token lifetime) belongs to the Engine.
//
// # What this package must NOT do
//
//   - Import goAuthClient, cookies or refresh.
//   - Log or expose access tokens.
package cache
