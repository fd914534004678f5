package refresh

import (
	"encoding/json"
	"time"
)

// DefaultExpiresIn applies when a token response carries no usable expires_in.
const DefaultExpiresIn = 21600 * time.Second

// UserPayload is the user record returned by verification and refresh.
type UserPayload struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	SessionID string `json:"session_id,omitempty"`
}

// Tokens is the token block of an identity-service response.
type Tokens struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
}

// Envelope is the shared response body of /auth/verify-otp and /auth/refresh.
type Envelope struct {
	Tokens *Tokens      `json:"tokens,omitempty"`
	User   *UserPayload `json:"user,omitempty"`
}

// ParseEnvelope decodes body. An empty body yields an empty envelope.
func ParseEnvelope(body []byte) (Envelope, error) {
	var env Envelope
	if len(body) == 0 {
		return env, nil
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// AccessToken returns the access token, empty when absent.
func (e Envelope) AccessToken() string {
	if e.Tokens == nil {
		return ""
	}
	return e.Tokens.AccessToken
}

// ExpiresIn returns the token lifetime, falling back to def when the response
// omits it or reports a non-positive value.
func (e Envelope) ExpiresIn(def time.Duration) time.Duration {
	if e.Tokens == nil || e.Tokens.ExpiresIn <= 0 {
		return def
	}
	return time.Duration(e.Tokens.ExpiresIn) * time.Second
}

// CompleteUser returns the user payload when it has both id and email.
func (e Envelope) CompleteUser() (*UserPayload, bool) {
	if e.User == nil || e.User.ID == "" || e.User.Email == "" {
		return nil, false
	}
	return e.User, true
}
