package refresh

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MrEthical07/goAuthClient/internal/transport"
)

var (
	// ErrUnauthorized marks a 401 refresh response.
	ErrUnauthorized = errors.New("refresh rejected")
	// ErrUnavailable marks a transport error or non-401 failure status.
	ErrUnavailable = errors.New("refresh unavailable")
	// ErrMissingToken marks a 2xx response without an access token.
	ErrMissingToken = errors.New("refresh response missing access token")
)

// Kind classifies an exchange.
type Kind int

const (
	// KindNone is a successful exchange.
	KindNone Kind = iota
	// KindAuth is a 401: clear the session, do not retry.
	KindAuth
	// KindTransient may be retried with backoff.
	KindTransient
	// KindProtocol is a malformed success response; not retried.
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindAuth:
		return "auth"
	case KindTransient:
		return "transient"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// Result is the classified outcome of one exchange.
type Result struct {
	Kind        Kind
	AccessToken string
	ExpiresIn   time.Duration
	User        *UserPayload
	Status      int
	RequestID   string
	Err         error
}

// OK reports a usable token.
func (r Result) OK() bool {
	return r.Kind == KindNone && r.AccessToken != ""
}

// Refresher posts to the refresh endpoint with a cookie-carrying client.
type Refresher struct {
	client           *http.Client
	endpoint         string
	defaultExpiresIn time.Duration
}

// New returns a Refresher. The client's cookie jar must hold the refresh signal.
func New(client *http.Client, endpoint string, defaultExpiresIn time.Duration) *Refresher {
	if defaultExpiresIn <= 0 {
		defaultExpiresIn = DefaultExpiresIn
	}
	return &Refresher{
		client:           client,
		endpoint:         endpoint,
		defaultExpiresIn: defaultExpiresIn,
	}
}

// Exchange performs one refresh request. It never returns an error; failures
// are reported through Result.Kind and Result.Err.
func (r *Refresher) Exchange(ctx context.Context) Result {
	resp, err := transport.Do(ctx, r.client, transport.Request{
		Method: http.MethodPost,
		URL:    r.endpoint,
	})
	if err != nil {
		return Result{
			Kind: KindTransient,
			Err:  fmt.Errorf("%w: %v", ErrUnavailable, err),
		}
	}

	res := Result{Status: resp.Status, RequestID: resp.RequestID}
	switch {
	case resp.Status == http.StatusUnauthorized:
		res.Kind = KindAuth
		res.Err = ErrUnauthorized
		return res
	case !resp.OK():
		res.Kind = KindTransient
		res.Err = fmt.Errorf("%w: status %d", ErrUnavailable, resp.Status)
		return res
	}

	env, err := ParseEnvelope(resp.Body)
	if err != nil {
		res.Kind = KindProtocol
		res.Err = fmt.Errorf("%w: %v", ErrMissingToken, err)
		return res
	}
	if env.AccessToken() == "" {
		res.Kind = KindProtocol
		res.Err = ErrMissingToken
		return res
	}

	res.Kind = KindNone
	res.AccessToken = env.AccessToken()
	res.ExpiresIn = env.ExpiresIn(r.defaultExpiresIn)
	if u, ok := env.CompleteUser(); ok {
		res.User = u
	}
	return res
}
