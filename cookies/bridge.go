package cookies

import (
	"net/http"
	"net/url"
	"strings"
)

// Bridge exposes the session signals held in a cookie jar for one origin.
type Bridge struct {
	jar  http.CookieJar
	base *url.URL
}

// NewBridge binds jar to the origin of base.
func NewBridge(jar http.CookieJar, base *url.URL) *Bridge {
	return &Bridge{jar: jar, base: base}
}

// Header renders the jar's cookies for the origin as a Cookie header value.
func (b *Bridge) Header() string {
	if b == nil || b.jar == nil || b.base == nil {
		return ""
	}
	cookies := b.jar.Cookies(b.base)
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// Signals parses the current jar contents.
func (b *Bridge) Signals() Signals {
	return ParseSignals(b.Header())
}

// HasAuthCookie reports whether the authenticated=true marker is present.
func (b *Bridge) HasAuthCookie() bool {
	return b.Signals().Authenticated
}

// HasRefreshSignal reports whether a non-empty refresh_token cookie is present.
func (b *Bridge) HasRefreshSignal() bool {
	return b.Signals().HasRefresh
}

// ReadUserInfo returns the decoded user_info cookie, or false when it is absent
// or malformed.
func (b *Bridge) ReadUserInfo() (*UserInfo, bool) {
	info := b.Signals().UserInfo
	return info, info != nil
}

// ClearSessionCookies expires the authenticated and user_info cookies so a
// known-invalid session is not restored again on the next run. The refresh
// token is left to the identity service.
func (b *Bridge) ClearSessionCookies() {
	if b == nil || b.jar == nil || b.base == nil {
		return
	}
	b.jar.SetCookies(b.base, []*http.Cookie{
		{Name: NameAuthenticated, Value: "", Path: "/", MaxAge: -1},
		{Name: NameUserInfo, Value: "", Path: "/", MaxAge: -1},
	})
}
