package goAuthClient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthClient/authtest"
	"github.com/MrEthical07/goAuthClient/cookies"
)

func TestProactiveRefreshFiresBeforeExpiry(t *testing.T) {
	srv, h, user := loggedIn(t, nil)
	before, _ := h.engine.session.AccessToken()

	h.clock.Advance(authtest.DefaultExpiresIn - 5*time.Minute - time.Second)
	if srv.Counts().Refresh != 0 {
		t.Fatal("timer fired early")
	}

	h.clock.Advance(time.Second)
	if got := srv.Counts().Refresh; got != 1 {
		t.Fatalf("expected proactive refresh, got %d", got)
	}
	after, ok := h.engine.session.AccessToken()
	if !ok || after == before {
		t.Fatal("expected a new access token")
	}
	if got := h.engine.session.TokenExpiry().Sub(h.clock.Now()); got != authtest.DefaultExpiresIn {
		t.Fatalf("expected expiry reset to %s, got %s", authtest.DefaultExpiresIn, got)
	}
	if cur, _ := h.engine.CurrentUser(); cur.ID != user.ID {
		t.Fatalf("identity changed across refresh: %+v", cur)
	}
	if !h.engine.scheduler.Armed() {
		t.Fatal("expected the timer re-armed")
	}
	if h.engine.MetricsSnapshot().Counters[MetricProactiveRefresh] != 1 {
		t.Fatal("expected proactive refresh metric")
	}
}

func TestRefreshTokenIfNeeded(t *testing.T) {
	srv, h, _ := loggedIn(t, nil)

	if !h.engine.RefreshTokenIfNeeded(context.Background()) {
		t.Fatal("fresh token should report true")
	}
	if srv.Counts().Refresh != 0 {
		t.Fatal("fresh token must not refresh")
	}

	h.engine.scheduler.Cancel()
	h.clock.Advance(11 * time.Minute)
	if !h.engine.RefreshTokenIfNeeded(context.Background()) {
		t.Fatal("refresh inside the proactive window should succeed")
	}
	if got := srv.Counts().Refresh; got != 1 {
		t.Fatalf("expected one refresh, got %d", got)
	}
}

func TestRefreshTokenIfNeededRejected(t *testing.T) {
	srv, h, _ := loggedIn(t, nil)
	srv.RevokeSessions()
	h.engine.scheduler.Cancel()
	h.clock.Advance(time.Hour)

	if h.engine.RefreshTokenIfNeeded(context.Background()) {
		t.Fatal("revoked session must not refresh")
	}
	if h.engine.session.Snapshot().HasUser() {
		t.Fatal("rejected refresh should clear the identity")
	}
	if h.signals().Authenticated {
		t.Fatal("rejected refresh should clear the session marker")
	}
}

func TestRefreshIdentityFallbacks(t *testing.T) {
	t.Run("cookie", func(t *testing.T) {
		srv := authtest.New()
		defer srv.Close()
		jar := newTestJar(t)
		user, sid := srv.SeedSession(jar, "a@b.com")
		srv.SetRefreshOmitsUser(true)
		h := newHarness(t, srv.URL, jar, nil)

		if !h.engine.RefreshTokenIfNeeded(context.Background()) {
			t.Fatal("expected refresh to succeed")
		}
		cur, ok := h.engine.CurrentUser()
		if !ok || cur.ID != user.ID || cur.SessionID != sid {
			t.Fatalf("CurrentUser = %+v, %v", cur, ok)
		}
	})

	t.Run("token claims", func(t *testing.T) {
		srv := authtest.New()
		defer srv.Close()
		jar := newTestJar(t)
		user, sid := srv.SeedSession(jar, "a@b.com")
		srv.SetRefreshOmitsUser(true)
		h := newHarness(t, srv.URL, jar, nil)
		h.jar.SetCookies(h.base, []*http.Cookie{{Name: cookies.NameUserInfo, Value: "", Path: "/", MaxAge: -1}})

		if !h.engine.RefreshTokenIfNeeded(context.Background()) {
			t.Fatal("expected refresh to succeed")
		}
		cur, ok := h.engine.CurrentUser()
		if !ok || cur.ID != user.ID || cur.Email != user.Email || cur.SessionID != sid {
			t.Fatalf("CurrentUser = %+v, %v", cur, ok)
		}
	})

	t.Run("unresolved", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"tokens":{"access_token":"opaque","expires_in":900}}`))
		}))
		defer srv.Close()
		h := newHarness(t, srv.URL, nil, nil)

		if h.engine.RefreshTokenIfNeeded(context.Background()) {
			t.Fatal("refresh without identity must fail")
		}
		if st := h.engine.session.Snapshot(); st.HasToken() {
			t.Fatalf("nothing should be committed, got %+v", st)
		}
		if h.engine.MetricsSnapshot().Counters[MetricRefreshIdentityMissing] != 1 {
			t.Fatal("expected identity-missing metric")
		}
	})
}

func TestRefreshWithoutTokenIsProtocolFailure(t *testing.T) {
	srv := authtest.New()
	defer srv.Close()
	jar := newTestJar(t)
	srv.SeedSession(jar, "a@b.com")
	srv.SetRefreshOmitsToken(true)
	h := newHarness(t, srv.URL, jar, nil)

	if h.engine.RefreshTokenIfNeeded(context.Background()) {
		t.Fatal("missing token must fail")
	}
	if h.engine.IsAuthenticated() {
		t.Fatal("nothing should be committed")
	}
	if h.engine.MetricsSnapshot().Counters[MetricRefreshProtocolFailure] != 1 {
		t.Fatal("expected protocol failure metric")
	}
	if !h.signals().Authenticated {
		t.Fatal("protocol failures leave cookies alone")
	}
}

func TestSessionExpiresWithoutRefresh(t *testing.T) {
	_, h, user := loggedIn(t, nil)
	h.engine.scheduler.Cancel()

	h.clock.Advance(authtest.DefaultExpiresIn - time.Minute)
	if h.engine.IsAuthenticated() {
		t.Fatal("token inside the safety buffer must not count as valid")
	}
	id, ok := h.engine.session.Identity()
	if !ok || id.ID != user.ID {
		t.Fatalf("identity should survive expiry, got %+v %v", id, ok)
	}
	if h.engine.MetricsSnapshot().Counters[MetricSessionExpired] != 1 {
		t.Fatal("expected expiry metric")
	}
	if h.engine.Phase() != PhaseUnauthenticated {
		t.Fatalf("Phase = %s", h.engine.Phase())
	}
}
