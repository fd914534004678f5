package goAuthClient

import (
	"context"
	"sync"

	"github.com/MrEthical07/goAuthClient/internal/retry"
	"github.com/MrEthical07/goAuthClient/refresh"
	"go.uber.org/zap"
)

type initRun struct {
	done   chan struct{}
	result InitResult
}

// initGuard keeps at most one restoration run per Engine and memoizes its result.
type initGuard struct {
	mu  sync.Mutex
	run *initRun
}

func (g *initGuard) acquire(launch func(*initRun)) *initRun {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.run == nil {
		g.run = &initRun{done: make(chan struct{})}
		launch(g.run)
	}
	return g.run
}

func (g *initGuard) current() *initRun {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.run
}

func (g *initGuard) inFlight() bool {
	run := g.current()
	if run == nil {
		return false
	}
	select {
	case <-run.done:
		return false
	default:
		return true
	}
}

func (g *initGuard) reset() {
	g.mu.Lock()
	g.run = nil
	g.mu.Unlock()
}

// Init restores a session from the cookie jar. Concurrent callers share a
// single run and observe the same result; a completed result is returned
// again until Logout.
//
// The run is detached from ctx: a caller whose ctx ends gets
// InitResult{Success: false, Reason: InitCanceled, Err: ctx.Err()} while the
// run continues for everyone else.
func (e *Engine) Init(ctx context.Context) InitResult {
	if err := e.ready(); err != nil {
		return InitResult{Err: err}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	run := e.init.acquire(func(r *initRun) {
		go e.runBootstrap(context.WithoutCancel(ctx), r)
	})

	select {
	case <-run.done:
		return run.result
	case <-ctx.Done():
		return InitResult{Reason: InitCanceled, Err: ctx.Err()}
	}
}

// WaitForInit blocks until an in-flight or completed Init finishes. It returns
// immediately when Init was never called.
func (e *Engine) WaitForInit(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}
	run := e.init.current()
	if run == nil {
		return nil
	}
	select {
	case <-run.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) runBootstrap(ctx context.Context, run *initRun) {
	defer close(run.done)
	run.result = e.bootstrap(ctx)

	e.logger.Info("session restore finished",
		zap.Stringer("reason", run.result.Reason),
		zap.Bool("authenticated", run.result.Authenticated),
		zap.Int("attempts", run.result.Attempts),
		zap.String("request_id", requestIDFromContext(ctx)),
	)
}

func (e *Engine) bootstrap(ctx context.Context) InitResult {
	if u, ok := e.session.CurrentUser(); ok {
		return InitResult{Success: true, Authenticated: true, Reason: InitAlreadyAuthenticated, User: &u}
	}

	if d := e.config.Bootstrap.SettleDelay; d > 0 {
		_ = e.clock.Sleep(ctx, d)
	}

	sig := e.cookies.Signals()
	if !sig.Authenticated {
		e.metricInc(MetricInitNoSession)
		return InitResult{Success: true, Reason: InitNoSession}
	}
	if sig.UserInfo == nil {
		e.metricInc(MetricInitInvalidCookie)
		e.logger.Info("session marker without usable user_info, clearing session cookies",
			zap.Bool("user_info_present", sig.UserInfoPresent))
		e.cookies.ClearSessionCookies()
		return InitResult{Success: true, Reason: InitInvalidCookie}
	}

	cookieUser := User{ID: sig.UserInfo.ID, Email: sig.UserInfo.Email, SessionID: sig.UserInfo.SessionID}
	if u, ok := e.restoreFromCache(ctx, cookieUser); ok {
		e.metricInc(MetricInitCacheRestored)
		e.emitAudit(ctx, auditEventSessionRestored, true, u, nil, func() map[string]string {
			return map[string]string{"source": "cache"}
		})
		return InitResult{Success: true, Authenticated: true, Reason: InitCacheRestored, User: &u}
	}

	policy := retry.Policy{
		MaxAttempts: e.config.Bootstrap.MaxAttempts,
		Backoff:     e.config.Bootstrap.Backoff,
	}
	var last refreshOutcome
	res, err := retry.Do(ctx, e.clock, policy, func(ctx context.Context, n int) retry.Verdict {
		last = e.refreshResult(ctx)
		switch {
		case last.ok():
			return retry.Succeeded
		case last.kind == refresh.KindAuth, last.kind == refresh.KindProtocol:
			return retry.Stop
		}
		e.logger.Info("session restore attempt failed",
			zap.Int("attempt", n),
			zap.Stringer("kind", last.kind),
		)
		return retry.Retry
	})
	if err != nil {
		e.logger.Warn("session restore loop aborted", zap.Error(err))
	}

	switch {
	case res.Succeeded:
		u := last.user
		e.metricInc(MetricInitRestored)
		e.emitAudit(ctx, auditEventSessionRestored, true, u, nil, func() map[string]string {
			return map[string]string{"source": "refresh"}
		})
		return InitResult{Success: true, Authenticated: true, Reason: InitRestored, User: &u, Attempts: res.Attempts}
	case res.Stopped && last.kind == refresh.KindAuth:
		e.metricInc(MetricInitRejected)
		return InitResult{Success: true, Reason: InitRejected, Attempts: res.Attempts}
	case res.Stopped:
		e.cookies.ClearSessionCookies()
		e.emitAudit(ctx, auditEventSessionRestored, false, cookieUser, last.err, nil)
		return InitResult{Success: true, Reason: InitProtocolFailure, Attempts: res.Attempts}
	}

	e.metricInc(MetricInitExhausted)
	e.cookies.ClearSessionCookies()
	e.emitAudit(ctx, auditEventSessionRestored, false, cookieUser, last.err, nil)
	return InitResult{Success: true, Reason: InitExhausted, Attempts: res.Attempts}
}
