// Package authtest provides an in-process identity service speaking the same
// protocol as the production backend: OTP request and verification, cookie
// based refresh, logout and bearer-authenticated function calls.
//
// Tokens are real Ed25519-signed JWTs. Failures can be scripted per endpoint
// and every endpoint counts its calls, so tests can assert exactly how much
// network traffic a client produced.
//
// # What this package must NOT do
//
//   - Import goAuthClient. Clients are tested against it, not through it.
//   - Persist anything beyond the process.
package authtest
