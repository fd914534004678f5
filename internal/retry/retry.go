// Package retry runs bounded attempt loops with a fixed backoff between failed
// attempts, sleeping on an injected clock.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAuthClient/internal/clock"
)

// ErrInvalidPolicy is returned when a Policy allows no attempts.
var ErrInvalidPolicy = errors.New("retry policy requires at least one attempt")

// Policy bounds an attempt loop.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Validate reports whether p can drive a loop.
func (p Policy) Validate() error {
	if p.MaxAttempts <= 0 || p.Backoff < 0 {
		return ErrInvalidPolicy
	}
	return nil
}

// Verdict is what a single attempt reports back to the loop.
type Verdict int

const (
	// Succeeded ends the loop successfully.
	Succeeded Verdict = iota
	// Retry asks for another attempt after the backoff.
	Retry
	// Stop ends the loop without success; no further attempts are made.
	Stop
)

// Result summarises a finished loop.
type Result struct {
	Attempts  int
	Succeeded bool
	Stopped   bool
}

// Do invokes attempt up to p.MaxAttempts times. The backoff is slept only after a
// failed attempt that will be followed by another one. A cancelled ctx ends the
// loop with ctx.Err().
func Do(ctx context.Context, clk clock.Clock, p Policy, attempt func(ctx context.Context, n int) Verdict) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var res Result
	for n := 1; n <= p.MaxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Attempts = n
		switch attempt(ctx, n) {
		case Succeeded:
			res.Succeeded = true
			return res, nil
		case Stop:
			res.Stopped = true
			return res, nil
		}
		if n < p.MaxAttempts && p.Backoff > 0 {
			if err := clk.Sleep(ctx, p.Backoff); err != nil {
				return res, err
			}
		}
	}
	return res, nil
}
