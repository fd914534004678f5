// Package random produces passcodes and opaque tokens from crypto/rand.
package random

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"math/big"
	"strings"
)

const tokenSize = 32

// ErrInvalidDigits is returned for passcode lengths outside [6,10].
var ErrInvalidDigits = errors.New("invalid otp digits")

// NewOTP returns a numeric passcode of the given length.
func NewOTP(digits int) (string, error) {
	if digits < 6 || digits > 10 {
		return "", ErrInvalidDigits
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// NewToken returns 32 random bytes encoded as unpadded base64url.
func NewToken() (string, error) {
	var raw [tokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// HashToken is the lookup key under which a token is stored, so the
// plaintext never sits in a map or database.
func HashToken(token string) [32]byte {
	return sha256.Sum256([]byte(token))
}
