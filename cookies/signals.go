package cookies

import (
	"encoding/json"
	"net/url"
	"strings"
)

// Cookie names shared with the identity service.
const (
	NameAuthenticated = "authenticated"
	NameUserInfo      = "user_info"
	NameRefreshToken  = "refresh_token"
)

// UserInfo is the identity record stored in the user_info cookie.
type UserInfo struct {
	Email     string `json:"email"`
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
}

// Signals is the typed view of the session cookies.
type Signals struct {
	Authenticated bool
	UserInfo      *UserInfo
	// UserInfoPresent is true when a user_info cookie exists, even if it failed
	// to decode.
	UserInfoPresent bool
	HasRefresh      bool
}

// UserInfoMalformed reports a user_info cookie that is present but unusable.
func (s Signals) UserInfoMalformed() bool {
	return s.UserInfoPresent && s.UserInfo == nil
}

// ParseSignals scans a raw Cookie header ("a=1; b=2") and extracts the session
// signals. Unknown and malformed pairs are skipped.
func ParseSignals(header string) Signals {
	var s Signals
	for _, part := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.Trim(strings.TrimSpace(value), `"`)

		switch name {
		case NameAuthenticated:
			s.Authenticated = value == "true"
		case NameUserInfo:
			s.UserInfoPresent = true
			s.UserInfo = DecodeUserInfo(value)
		case NameRefreshToken:
			s.HasRefresh = value != ""
		}
	}
	return s
}

// DecodeUserInfo decodes a URL-encoded JSON user record. It returns nil for
// anything that does not decode to a record with an id.
func DecodeUserInfo(raw string) *UserInfo {
	if raw == "" {
		return nil
	}
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return nil
	}
	var info UserInfo
	if err := json.Unmarshal([]byte(decoded), &info); err != nil {
		return nil
	}
	if info.ID == "" {
		return nil
	}
	return &info
}

// EncodeUserInfo is the inverse of DecodeUserInfo. The identity service and test
// backends use it when issuing cookies.
func EncodeUserInfo(info UserInfo) string {
	data, err := json.Marshal(info)
	if err != nil {
		return ""
	}
	return url.QueryEscape(string(data))
}
