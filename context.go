package goAuthClient

import (
	"context"

	"github.com/MrEthical07/goAuthClient/internal/transport"
)

// WithRequestID attaches a correlation id to ctx. Every request the Engine
// sends under ctx carries it in the X-Request-ID header; without one a fresh
// uuid is generated per request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return transport.WithRequestID(ctx, id)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	return transport.RequestIDFromContext(ctx)
}
