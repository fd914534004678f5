package goAuthClient

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goAuthClient/cache"
	"github.com/MrEthical07/goAuthClient/cookies"
	internalaudit "github.com/MrEthical07/goAuthClient/internal/audit"
	"github.com/MrEthical07/goAuthClient/internal/clock"
	"github.com/MrEthical07/goAuthClient/refresh"
	"github.com/MrEthical07/goAuthClient/schedule"
	"github.com/MrEthical07/goAuthClient/session"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Engine owns one client's session: the in-memory token and identity, the
// cookie jar that carries the refresh signal, and the proactive refresh timer.
//
// Engine methods are safe for concurrent use after [Builder.Build].
type Engine struct {
	config    Config
	base      *url.URL
	http      *http.Client
	cookies   *cookies.Bridge
	clock     clock.Clock
	logger    *zap.Logger
	session   *session.Store
	scheduler *schedule.Scheduler
	refresher *refresh.Refresher
	cache     cache.Cache
	audit     *internalaudit.Dispatcher
	metrics   *Metrics
	reauth    singleflight.Group
	init      initGuard
	closed    atomic.Bool
}

// Close stops the refresh timer and flushes the audit dispatcher. The session
// is left in memory; later calls that need the network return [ErrEngineClosed].
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if !e.closed.CompareAndSwap(false, true) {
		return
	}
	if e.scheduler != nil {
		e.scheduler.Cancel()
	}
	if e.audit != nil {
		e.audit.Close()
	}
	_ = e.logger.Sync()
}

// AuditDropped returns the number of audit events discarded because the dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine's metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, d)
}

// IsAuthenticated reports whether a valid token and complete identity are
// held. Every call reconciles the stored flag with the token and identity.
func (e *Engine) IsAuthenticated() bool {
	if e == nil || e.session == nil {
		return false
	}
	return e.session.IsAuthenticated()
}

// CurrentUser returns the authenticated identity.
func (e *Engine) CurrentUser() (User, bool) {
	if e == nil || e.session == nil {
		return User{}, false
	}
	return e.session.CurrentUser()
}

// Phase reports the lifecycle state.
func (e *Engine) Phase() Phase {
	if e == nil {
		return PhaseUnauthenticated
	}
	if e.init.inFlight() {
		return PhaseInitializing
	}
	if e.IsAuthenticated() {
		return PhaseAuthenticated
	}
	return PhaseUnauthenticated
}

// HasPersistentSession reports whether the cookie jar holds either the
// authentication marker or a refresh token, i.e. whether Init has anything to
// restore. It performs no I/O.
func (e *Engine) HasPersistentSession() bool {
	if e == nil || e.cookies == nil {
		return false
	}
	sig := e.cookies.Signals()
	return sig.Authenticated || sig.HasRefresh
}

// clearSession wipes the in-memory session, cancels the timer and drops the
// cached snapshot for the identity that was held.
func (e *Engine) clearSession(ctx context.Context, reason string) {
	st := e.session.Snapshot()
	e.session.Clear()
	if st == (session.State{}) {
		return
	}
	held := st.User()
	e.dropSnapshot(ctx, held)

	e.logger.Info("session cleared",
		zap.String("reason", reason),
		zap.String("user_id", held.ID),
		zap.String("request_id", requestIDFromContext(ctx)),
	)
	e.emitAudit(ctx, auditEventSessionCleared, true, held, nil, func() map[string]string {
		return map[string]string{"reason": reason}
	})
}

func (e *Engine) onReconcile(action session.Action) {
	switch action {
	case session.ActionRepaired:
		e.metricInc(MetricSessionRepaired)
	case session.ActionExpired:
		e.metricInc(MetricSessionExpired)
	case session.ActionCleared:
		e.metricInc(MetricSessionCleared)
	}
	if action != session.ActionNone {
		e.logger.Debug("session reconciled", zap.Stringer("action", action))
	}
}

func (e *Engine) endpoint(path string) string {
	u := *e.base
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	u.RawQuery = ""
	return u.String()
}

func (e *Engine) ready() error {
	if e == nil || e.session == nil {
		return ErrEngineNotReady
	}
	if e.closed.Load() {
		return ErrEngineClosed
	}
	return nil
}
