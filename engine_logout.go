package goAuthClient

import (
	"context"
	"net/http"

	"github.com/MrEthical07/goAuthClient/internal/transport"
	"go.uber.org/zap"
)

// Logout ends the session. With a token held it first asks the identity
// service to revoke the session, bounded by Caller.LogoutTimeout, and ignores
// the outcome. The local session is always cleared and the memoized Init
// result discarded. Logout is idempotent and never fails.
//
// Session cookies are not touched locally: the identity service expires them
// through the logout response, which the cookie jar applies.
func (e *Engine) Logout(ctx context.Context) {
	if e == nil || e.session == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	st := e.session.Snapshot()
	held := st.User()
	if st.AccessToken != "" && !e.closed.Load() {
		e.revoke(ctx, st.AccessToken)
	}

	e.clearSession(ctx, "logout")
	e.init.reset()

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, held, nil, nil)
}

func (e *Engine) revoke(ctx context.Context, token string) {
	logoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.config.Caller.LogoutTimeout)
	defer cancel()

	resp, err := transport.Do(logoutCtx, e.http, transport.Request{
		Method: http.MethodPost,
		URL:    e.endpoint(e.config.Endpoints.Logout),
		Bearer: token,
	})
	if err != nil {
		e.logger.Warn("logout request failed", zap.Error(err))
		return
	}
	if !resp.OK() {
		e.logger.Warn("logout rejected",
			zap.Int("status", resp.Status),
			zap.String("request_id", resp.RequestID),
		)
	}
}
