// Package cookies reads and clears the session signals a browser-style cookie jar
// carries between runs: the authenticated marker, the URL-encoded user_info
// record and the presence of the http-only refresh token.
//
// The refresh token value is never inspected; only its presence is reported.
// Parsing is a pure function over a raw Cookie header so it can be tested without
// a live jar.
package cookies
