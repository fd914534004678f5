package cache

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"io"
	"time"

	"github.com/MrEthical07/goAuthClient/session"
	"golang.org/x/crypto/blake2b"
)

const snapshotVersionV1 = 1

// DefaultTTL is how long a snapshot stays usable.
const DefaultTTL = 5 * time.Minute

var (
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("auth state cache unavailable")
	// ErrCorrupt marks a record that cannot be decoded.
	ErrCorrupt = errors.New("auth state cache record corrupt")
)

// Snapshot is the cached authenticated state.
type Snapshot struct {
	User      session.User
	Token     string
	ExpiresIn time.Duration
	Timestamp time.Time
}

// Fresh reports whether the snapshot is younger than ttl at now.
func (s Snapshot) Fresh(now time.Time, ttl time.Duration) bool {
	if s.Timestamp.IsZero() {
		return false
	}
	return now.Sub(s.Timestamp) < ttl
}

// Remaining returns the token lifetime left at now.
func (s Snapshot) Remaining(now time.Time) time.Duration {
	return s.ExpiresIn - now.Sub(s.Timestamp)
}

// Cache stores at most one snapshot per user id and session id pair.
type Cache interface {
	Get(ctx context.Context, user session.User) (Snapshot, bool, error)
	Put(ctx context.Context, snap Snapshot) error
	Delete(ctx context.Context, user session.User) error
}

func keyFor(user session.User) string {
	sum := blake2b.Sum256([]byte(user.ID + "\x00" + user.SessionID))
	return hex.EncodeToString(sum[:16])
}

func encodeSnapshot(s Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(snapshotVersionV1)

	if err := binary.Write(&buf, binary.BigEndian, s.Timestamp.UnixMilli()); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresIn.Milliseconds()); err != nil {
		return nil, err
	}
	for _, field := range []string{s.User.ID, s.User.Email, s.User.SessionID, s.Token} {
		if len(field) > 65535 {
			return nil, errors.New("snapshot field too long")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}

	return buf.Bytes(), nil
}

func decodeSnapshot(data []byte) (Snapshot, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return Snapshot{}, err
	}
	if version != snapshotVersionV1 {
		return Snapshot{}, errors.New("invalid snapshot version")
	}

	var stampMillis, expiresMillis int64
	if err := binary.Read(reader, binary.BigEndian, &stampMillis); err != nil {
		return Snapshot{}, err
	}
	if err := binary.Read(reader, binary.BigEndian, &expiresMillis); err != nil {
		return Snapshot{}, err
	}

	fields := make([]string, 4)
	for i := range fields {
		var n uint16
		if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
			return Snapshot{}, err
		}
		raw := make([]byte, n)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return Snapshot{}, err
		}
		fields[i] = string(raw)
	}
	if reader.Len() != 0 {
		return Snapshot{}, errors.New("trailing snapshot bytes")
	}

	return Snapshot{
		User:      session.User{ID: fields[0], Email: fields[1], SessionID: fields[2]},
		Token:     fields[3],
		ExpiresIn: time.Duration(expiresMillis) * time.Millisecond,
		Timestamp: time.UnixMilli(stampMillis),
	}, nil
}
