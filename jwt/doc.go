// Package jwt mints and reads the access tokens exchanged between the identity
// service and the client.
//
// The client never trusts a token it could not verify for authorization
// decisions; it only reads unverified claims through [Inspect] as a last-resort
// identity source when a refresh response omits the user record. Signing and
// verification through [Manager] serve the test identity service.
package jwt
