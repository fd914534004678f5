package goAuthClient

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/goAuthClient/cache"
	"github.com/MrEthical07/goAuthClient/jwt"
	"github.com/MrEthical07/goAuthClient/refresh"
	"go.uber.org/zap"
)

type refreshOutcome struct {
	kind   refresh.Kind
	user   User
	expiry time.Time
	err    error
}

func (o refreshOutcome) ok() bool {
	return o.err == nil
}

// RefreshTokenIfNeeded returns true without I/O when the held token is valid
// for longer than the proactive buffer, and otherwise performs one refresh.
func (e *Engine) RefreshTokenIfNeeded(ctx context.Context) bool {
	if e.ready() != nil {
		return false
	}
	if _, ok := e.session.AccessToken(); ok {
		if e.session.TokenExpiry().Sub(e.clock.Now()) > e.config.Refresh.ProactiveBuffer {
			return true
		}
	}
	return e.refresh(ctx)
}

func (e *Engine) refresh(ctx context.Context) bool {
	return e.refreshResult(ctx).ok()
}

// refreshResult performs one exchange, bounded by Caller.Timeout, and commits
// its result. Expected failures are reported in the outcome, never panicked or
// logged as errors.
func (e *Engine) refreshResult(ctx context.Context) refreshOutcome {
	exchangeCtx, cancel := context.WithTimeout(ctx, e.config.Caller.Timeout)
	res := e.refresher.Exchange(exchangeCtx)
	cancel()
	log := e.logger.With(
		zap.String("endpoint", e.config.Endpoints.Refresh),
		zap.String("request_id", res.RequestID),
		zap.Int("status", res.Status),
	)

	if !res.OK() {
		out := refreshOutcome{kind: res.Kind}
		switch res.Kind {
		case refresh.KindAuth:
			e.metricInc(MetricRefreshAuthFailure)
			out.err = fmt.Errorf("%w: %v", ErrAuth, res.Err)
			log.Info("refresh rejected, clearing session")
			e.clearSession(ctx, "refresh_rejected")
			e.cookies.ClearSessionCookies()
		case refresh.KindProtocol:
			e.metricInc(MetricRefreshProtocolFailure)
			out.err = fmt.Errorf("%w: %v", ErrProtocol, res.Err)
			log.Warn("refresh response without access token")
		default:
			e.metricInc(MetricRefreshTransientFailure)
			out.err = fmt.Errorf("%w: %v", ErrTransient, res.Err)
			log.Warn("refresh failed", zap.Error(res.Err))
		}
		e.emitAudit(ctx, auditEventRefreshFailure, false, User{}, out.err, func() map[string]string {
			return map[string]string{"kind": res.Kind.String()}
		})
		return out
	}

	user, source, ok := e.resolveIdentity(res)
	if !ok {
		e.metricInc(MetricRefreshIdentityMissing)
		err := fmt.Errorf("%w: refresh succeeded but no user identity is available", ErrValidation)
		log.Warn("refresh identity unresolved")
		e.emitAudit(ctx, auditEventRefreshFailure, false, User{}, err, nil)
		return refreshOutcome{kind: refresh.KindProtocol, err: err}
	}

	expiry := e.commit(ctx, user, res.AccessToken, res.ExpiresIn)
	e.metricInc(MetricRefreshSuccess)
	log.Debug("refresh committed",
		zap.String("user_id", user.ID),
		zap.String("identity_source", source),
		zap.Time("expiry", expiry),
	)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, user, nil, func() map[string]string {
		return map[string]string{"identity_source": source}
	})
	return refreshOutcome{kind: refresh.KindNone, user: user, expiry: expiry}
}

// resolveIdentity picks the identity to commit with a refreshed token: the
// response payload, then the user_info cookie, then the identity already held,
// then the token's own claims.
func (e *Engine) resolveIdentity(res refresh.Result) (User, string, bool) {
	if res.User != nil {
		return User{ID: res.User.ID, Email: res.User.Email, SessionID: res.User.SessionID}, "response", true
	}
	if info, ok := e.cookies.ReadUserInfo(); ok && info.Email != "" {
		return User{ID: info.ID, Email: info.Email, SessionID: info.SessionID}, "cookie", true
	}
	if held, ok := e.session.Identity(); ok {
		return held, "session", true
	}
	if claims, err := jwt.Inspect(res.AccessToken); err == nil {
		u := User{ID: claims.UserID, Email: claims.Email, SessionID: claims.SessionID}
		if u.Complete() {
			return u, "token", true
		}
	}
	return User{}, "", false
}

// commit stores token and identity, arms the proactive timer and caches a
// snapshot. It returns the new expiry.
func (e *Engine) commit(ctx context.Context, user User, token string, expiresIn time.Duration) time.Time {
	expiry := e.session.Commit(user, token, expiresIn)

	if delay, armed := e.scheduler.Arm(expiry); armed {
		e.logger.Debug("proactive refresh armed", zap.Duration("delay", delay))
	} else {
		e.logger.Debug("proactive refresh not armed, token lifetime inside buffer",
			zap.Duration("expires_in", expiresIn))
	}

	e.storeSnapshot(ctx, cache.Snapshot{
		User:      user,
		Token:     token,
		ExpiresIn: expiresIn,
		Timestamp: e.clock.Now(),
	})
	return expiry
}

func (e *Engine) onProactiveRefresh() {
	if e.closed.Load() {
		return
	}
	e.metricInc(MetricProactiveRefresh)

	if !e.refresh(context.Background()) {
		e.logger.Info("proactive refresh did not renew the token")
	}
}

func (e *Engine) storeSnapshot(ctx context.Context, snap cache.Snapshot) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Put(ctx, snap); err != nil {
		e.logger.Warn("snapshot cache write failed", zap.Error(err))
	}
}

func (e *Engine) dropSnapshot(ctx context.Context, user User) {
	if e.cache == nil || user.ID == "" {
		return
	}
	if err := e.cache.Delete(context.WithoutCancel(ctx), user); err != nil {
		e.logger.Warn("snapshot cache delete failed", zap.Error(err))
	}
}

// restoreFromCache commits a fresh snapshot issued for user when its token
// is still valid beyond the safety buffer.
func (e *Engine) restoreFromCache(ctx context.Context, user User) (User, bool) {
	if e.cache == nil {
		return User{}, false
	}
	snap, ok, err := e.cache.Get(ctx, user)
	if err != nil {
		e.logger.Warn("snapshot cache read failed", zap.Error(err))
		return User{}, false
	}
	remaining := snap.Remaining(e.clock.Now())
	if !ok || snap.Token == "" || !snap.User.Complete() || remaining <= e.config.Session.ExpirySafetyBuffer {
		e.metricInc(MetricCacheMiss)
		return User{}, false
	}
	if snap.User.ID != user.ID {
		e.metricInc(MetricCacheMiss)
		return User{}, false
	}

	e.metricInc(MetricCacheHit)
	expiry := e.session.Commit(snap.User, snap.Token, remaining)
	if delay, armed := e.scheduler.Arm(expiry); armed {
		e.logger.Debug("proactive refresh armed", zap.Duration("delay", delay))
	}
	return snap.User, true
}
