package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned by Inspect for opaque or malformed tokens.
var ErrNotJWT = errors.New("access token is not a decodable jwt")

// Identity is the identity portion of unverified access-token claims.
type Identity struct {
	UserID    string
	Email     string
	SessionID string
	ExpiresAt time.Time
}

// Inspect decodes claims WITHOUT verifying the signature. Only use the result
// as a hint about who the token was issued to.
func Inspect(tokenStr string) (Identity, error) {
	var claims AccessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &claims); err != nil {
		return Identity{}, ErrNotJWT
	}
	id := Identity{
		UserID:    claims.Subject,
		Email:     claims.Email,
		SessionID: claims.SID,
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}
