package cookies

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"testing"
)

func TestParseSignalsFullHeader(t *testing.T) {
	info := EncodeUserInfo(UserInfo{Email: "a@b.com", ID: "u1", SessionID: "s1"})
	header := "theme=dark; authenticated=true; user_info=" + info + "; refresh_token=opaque"

	s := ParseSignals(header)
	if !s.Authenticated || !s.HasRefresh {
		t.Fatalf("expected auth marker and refresh signal, got %+v", s)
	}
	if s.UserInfo == nil || s.UserInfo.ID != "u1" || s.UserInfo.Email != "a@b.com" || s.UserInfo.SessionID != "s1" {
		t.Fatalf("unexpected user info %+v", s.UserInfo)
	}
	if s.UserInfoMalformed() {
		t.Fatal("well-formed user info reported malformed")
	}
}

func TestParseSignalsEdgeCases(t *testing.T) {
	tests := []struct {
		name          string
		header        string
		wantAuth      bool
		wantRefresh   bool
		wantMalformed bool
		wantUser      bool
	}{
		{name: "empty", header: ""},
		{name: "marker false", header: "authenticated=false"},
		{name: "marker quoted", header: `authenticated="true"`, wantAuth: true},
		{name: "empty refresh", header: "refresh_token=", wantRefresh: false},
		{name: "garbage pair skipped", header: "novalue; authenticated=true", wantAuth: true},
		{name: "malformed user info", header: "user_info=%7Bnot-json", wantMalformed: true},
		{name: "bad escape", header: "user_info=%zz", wantMalformed: true},
		{name: "user info without id", header: "user_info=" + url.QueryEscape(`{"email":"a@b.com"}`), wantMalformed: true},
		{name: "user info ok", header: "user_info=" + url.QueryEscape(`{"id":"u1","email":"a@b.com"}`), wantUser: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ParseSignals(tt.header)
			if s.Authenticated != tt.wantAuth {
				t.Fatalf("Authenticated = %v, want %v", s.Authenticated, tt.wantAuth)
			}
			if s.HasRefresh != tt.wantRefresh {
				t.Fatalf("HasRefresh = %v, want %v", s.HasRefresh, tt.wantRefresh)
			}
			if s.UserInfoMalformed() != tt.wantMalformed {
				t.Fatalf("UserInfoMalformed = %v, want %v", s.UserInfoMalformed(), tt.wantMalformed)
			}
			if (s.UserInfo != nil) != tt.wantUser {
				t.Fatalf("UserInfo = %+v, want present=%v", s.UserInfo, tt.wantUser)
			}
		})
	}
}

func newTestBridge(t *testing.T) (*Bridge, http.CookieJar, *url.URL) {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	base, _ := url.Parse("http://127.0.0.1:8080/")
	return NewBridge(jar, base), jar, base
}

func TestBridgeReadsJar(t *testing.T) {
	b, jar, base := newTestBridge(t)
	if b.HasAuthCookie() || b.HasRefreshSignal() {
		t.Fatal("empty jar must carry no signals")
	}
	if _, ok := b.ReadUserInfo(); ok {
		t.Fatal("empty jar must carry no user info")
	}

	jar.SetCookies(base, []*http.Cookie{
		{Name: NameAuthenticated, Value: "true", Path: "/"},
		{Name: NameUserInfo, Value: EncodeUserInfo(UserInfo{Email: "a@b.com", ID: "u1"}), Path: "/"},
		{Name: NameRefreshToken, Value: "opaque", Path: "/", HttpOnly: true},
	})

	if !b.HasAuthCookie() {
		t.Fatal("expected auth cookie")
	}
	if !b.HasRefreshSignal() {
		t.Fatal("expected refresh signal")
	}
	info, ok := b.ReadUserInfo()
	if !ok || info.ID != "u1" {
		t.Fatalf("unexpected user info %+v ok=%v", info, ok)
	}
}

func TestBridgeClearSessionCookiesKeepsRefreshToken(t *testing.T) {
	b, jar, base := newTestBridge(t)
	jar.SetCookies(base, []*http.Cookie{
		{Name: NameAuthenticated, Value: "true", Path: "/"},
		{Name: NameUserInfo, Value: EncodeUserInfo(UserInfo{Email: "a@b.com", ID: "u1"}), Path: "/"},
		{Name: NameRefreshToken, Value: "opaque", Path: "/"},
	})

	b.ClearSessionCookies()
	b.ClearSessionCookies()

	s := b.Signals()
	if s.Authenticated || s.UserInfoPresent {
		t.Fatalf("expected session cookies cleared, got %+v", s)
	}
	if !s.HasRefresh {
		t.Fatal("refresh token must not be touched by the client")
	}
}
