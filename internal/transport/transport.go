// Package transport issues the JSON requests the client sends to the identity
// service and to authenticated function endpoints.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// HeaderRequestID carries the per-request correlation id.
const HeaderRequestID = "X-Request-ID"

const maxResponseBytes = 4 << 20

// ErrResponseTooLarge is returned when a response body exceeds the read limit.
var ErrResponseTooLarge = errors.New("response too large")

type requestIDContextKey struct{}

// WithRequestID attaches a correlation id that Do sends instead of a fresh one.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

// RequestIDFromContext returns the id attached by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}

// Request describes one outbound call. A nil Body sends no body.
type Request struct {
	Method string
	URL    string
	Body   any
	Bearer string
}

// Response is the buffered result of a call.
type Response struct {
	Status    int
	Header    http.Header
	Body      []byte
	RequestID string
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// Decode unmarshals the body into out. An empty body leaves out untouched.
func (r *Response) Decode(out any) error {
	if r == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, out)
}

// Do sends req with hc and buffers the response body. Transport failures,
// including context deadline expiry, are returned unwrapped enough for
// errors.Is(err, context.DeadlineExceeded) to hold.
func Do(ctx context.Context, hc *http.Client, req Request) (*Response, error) {
	if hc == nil {
		hc = http.DefaultClient
	}
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader
	if req.Body != nil {
		raw, err := marshalBody(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, err
	}

	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	httpReq.Header.Set(HeaderRequestID, requestID)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Bearer)
	}

	resp, err := hc.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxResponseBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrResponseTooLarge, maxResponseBytes)
	}

	return &Response{
		Status:    resp.StatusCode,
		Header:    resp.Header,
		Body:      data,
		RequestID: requestID,
	}, nil
}

func marshalBody(v any) ([]byte, error) {
	switch b := v.(type) {
	case json.RawMessage:
		if len(b) == 0 {
			return []byte("null"), nil
		}
		return b, nil
	case []byte:
		return b, nil
	default:
		return json.Marshal(v)
	}
}

// ErrorMessage extracts the server-reported message from an error body. It
// understands {"error":"..."}, {"message":"..."} and {"error":{"message":"..."}}.
func ErrorMessage(body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if len(envelope.Error) > 0 {
		var s string
		if err := json.Unmarshal(envelope.Error, &s); err == nil && strings.TrimSpace(s) != "" {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(envelope.Error, &nested); err == nil && strings.TrimSpace(nested.Message) != "" {
			return nested.Message
		}
	}
	return strings.TrimSpace(envelope.Message)
}
