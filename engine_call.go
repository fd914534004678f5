package goAuthClient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goAuthClient/internal/transport"
	"go.uber.org/zap"
)

// ExecuteFunction invokes a named backend function with the session's bearer
// token and returns the raw JSON result.
//
// Without a valid token it refreshes once and fails with
// [ErrNotAuthenticated] if that does not help. A 401 triggers exactly one
// refresh and one retry; when either fails the session is cleared and the
// error matches [ErrAuth]. A call that exceeds Caller.Timeout fails with
// [ErrTimeout] and leaves the session alone. Any other error status yields an
// [*APIError] carrying the server's message.
func (e *Engine) ExecuteFunction(ctx context.Context, name string, payload any) (json.RawMessage, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("%w: invalid function name %q", ErrValidation, name)
	}
	if err := e.WaitForInit(ctx); err != nil {
		return nil, err
	}

	token, ok := e.session.AccessToken()
	if !ok {
		if !e.refresh(ctx) {
			return nil, e.callFailed(name, ErrNotAuthenticated)
		}
		if token, ok = e.session.AccessToken(); !ok {
			return nil, e.callFailed(name, ErrNotAuthenticated)
		}
	}

	resp, err := e.invoke(ctx, name, payload, token)
	if err != nil {
		return nil, e.callFailed(name, err)
	}
	if resp.Status == http.StatusUnauthorized {
		return e.retryAfterReauth(ctx, name, payload)
	}
	if !resp.OK() {
		return nil, e.callFailed(name, newAPIError(resp.Status, transport.ErrorMessage(resp.Body), ErrRequestFailed))
	}

	e.metricInc(MetricCallSuccess)
	return json.RawMessage(resp.Body), nil
}

// ExecuteFunctionInto is ExecuteFunction followed by decoding the result into
// out. An empty result leaves out untouched.
func (e *Engine) ExecuteFunctionInto(ctx context.Context, name string, payload any, out any) error {
	raw, err := e.ExecuteFunction(ctx, name, payload)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode %s result: %v", ErrValidation, name, err)
	}
	return nil
}

func (e *Engine) retryAfterReauth(ctx context.Context, name string, payload any) (json.RawMessage, error) {
	held, _ := e.session.Identity()
	e.metricInc(MetricReauth)
	e.emitAudit(ctx, auditEventReauth, true, held, nil, func() map[string]string {
		return map[string]string{"function": name}
	})

	if !e.reauthenticate(ctx) {
		e.clearSession(ctx, "reauth_failed")
		return nil, e.callFailed(name, fmt.Errorf("%w: session could not be renewed", ErrAuth))
	}
	token, ok := e.session.AccessToken()
	if !ok {
		e.clearSession(ctx, "reauth_failed")
		return nil, e.callFailed(name, fmt.Errorf("%w: session could not be renewed", ErrAuth))
	}

	resp, err := e.invoke(ctx, name, payload, token)
	if err != nil {
		if errors.Is(err, ErrTimeout) || ctx.Err() != nil {
			return nil, e.callFailed(name, err)
		}
		e.clearSession(ctx, "retry_failed")
		return nil, e.callFailed(name, fmt.Errorf("%w: retry after re-authentication failed: %v", ErrAuth, err))
	}
	if !resp.OK() {
		e.clearSession(ctx, "retry_failed")
		return nil, e.callFailed(name, newAPIError(resp.Status, transport.ErrorMessage(resp.Body), ErrAuth))
	}

	e.metricInc(MetricCallSuccess)
	return json.RawMessage(resp.Body), nil
}

// reauthenticate refreshes after a 401. With Caller.CoalesceReauth concurrent
// callers share one refresh.
func (e *Engine) reauthenticate(ctx context.Context) bool {
	if !e.config.Caller.CoalesceReauth {
		return e.refresh(ctx)
	}
	v, _, _ := e.reauth.Do("reauth", func() (any, error) {
		return e.refresh(ctx), nil
	})
	ok, _ := v.(bool)
	return ok
}

func (e *Engine) invoke(ctx context.Context, name string, payload any, token string) (*transport.Response, error) {
	if payload == nil {
		payload = struct{}{}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.config.Caller.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := transport.Do(callCtx, e.http, transport.Request{
		Method: http.MethodPost,
		URL:    e.endpoint(e.config.Endpoints.FunctionPrefix + name),
		Body:   payload,
		Bearer: token,
	})
	e.metricObserve(MetricCallLatency, time.Since(start))

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, transport.ErrResponseTooLarge) {
			return nil, fmt.Errorf("%w: %s: %w", ErrRequestFailed, name, err)
		}
		if callCtx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			e.metricInc(MetricCallTimeout)
			return nil, fmt.Errorf("%w: %s did not answer within %s", ErrTimeout, name, e.config.Caller.Timeout)
		}
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	e.logger.Debug("function call",
		zap.String("function", name),
		zap.Int("status", resp.Status),
		zap.String("request_id", resp.RequestID),
	)
	return resp, nil
}

func (e *Engine) callFailed(name string, err error) error {
	e.metricInc(MetricCallFailure)
	e.logger.Info("function call failed", zap.String("function", name), zap.Error(err))
	return err
}
