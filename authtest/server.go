package authtest

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goAuthClient/cookies"
	"github.com/MrEthical07/goAuthClient/internal/random"
	"github.com/MrEthical07/goAuthClient/jwt"
	"github.com/google/uuid"
)

// DefaultExpiresIn is the access-token lifetime reported by a new Server.
const DefaultExpiresIn = 15 * time.Minute

// Function handles one /api/function/{name} call for an authenticated user.
type Function func(ctx context.Context, user User, payload json.RawMessage) (any, error)

// User is a registered account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Counts records how often each endpoint was hit.
type Counts struct {
	RequestOTP int
	VerifyOTP  int
	Refresh    int
	Logout     int
	Function   int
}

type sessionRecord struct {
	id      string
	user    User
	revoked bool
}

type scripted struct {
	status int
	left   int
}

func (s *scripted) take() (int, bool) {
	if s.left <= 0 {
		return 0, false
	}
	s.left--
	return s.status, true
}

// Server is a fake identity service. Create it with [New] and Close it when done.
type Server struct {
	*httptest.Server

	signer *jwt.Manager

	mu               sync.Mutex
	expiresIn        time.Duration
	fixedOTP         string
	users            map[string]User
	otps             map[string]string
	sessions         map[[32]byte]*sessionRecord
	validAccess      map[string]string
	functions        map[string]Function
	refreshFailures  scripted
	callFailures     scripted
	refreshOmitsUser bool
	refreshNoToken   bool
	refreshGate      chan struct{}
	callDelay        time.Duration
	counts           Counts
	requestIDs       []string
}

// Option customises a Server.
type Option func(*Server)

// WithExpiresIn sets the reported access-token lifetime.
func WithExpiresIn(d time.Duration) Option {
	return func(s *Server) { s.expiresIn = d }
}

// WithFixedOTP makes every issued passcode equal code.
func WithFixedOTP(code string) Option {
	return func(s *Server) { s.fixedOTP = code }
}

// New starts a Server on a loopback address.
func New(opts ...Option) *Server {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		panic(fmt.Sprintf("authtest: generate key: %v", err))
	}
	signer, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "authtest",
	})
	if err != nil {
		panic(fmt.Sprintf("authtest: signer: %v", err))
	}

	s := &Server{
		signer:      signer,
		expiresIn:   DefaultExpiresIn,
		users:       make(map[string]User),
		otps:        make(map[string]string),
		sessions:    make(map[[32]byte]*sessionRecord),
		validAccess: make(map[string]string),
		functions:   make(map[string]Function),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.functions["echo"] = echo

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/request-otp", s.handleRequestOTP)
	mux.HandleFunc("POST /auth/verify-otp", s.handleVerifyOTP)
	mux.HandleFunc("POST /auth/refresh", s.handleRefresh)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.HandleFunc("POST /api/function/{name}", s.handleFunction)
	s.Server = httptest.NewServer(s.recordRequestID(mux))
	return s
}

func echo(_ context.Context, user User, payload json.RawMessage) (any, error) {
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return map[string]any{"user_id": user.ID, "payload": payload}, nil
}

// Register installs a function under name.
func (s *Server) Register(name string, fn Function) {
	s.mu.Lock()
	s.functions[name] = fn
	s.mu.Unlock()
}

// IssuedOTP returns the pending passcode for email.
func (s *Server) IssuedOTP(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.otps[normalize(email)]
}

// FailRefreshes makes the next n refresh calls answer status.
func (s *Server) FailRefreshes(status, n int) {
	s.mu.Lock()
	s.refreshFailures = scripted{status: status, left: n}
	s.mu.Unlock()
}

// FailCalls makes the next n function calls answer status.
func (s *Server) FailCalls(status, n int) {
	s.mu.Lock()
	s.callFailures = scripted{status: status, left: n}
	s.mu.Unlock()
}

// SetRefreshOmitsUser drops the user payload from refresh responses.
func (s *Server) SetRefreshOmitsUser(omit bool) {
	s.mu.Lock()
	s.refreshOmitsUser = omit
	s.mu.Unlock()
}

// SetRefreshOmitsToken answers refresh with 200 and no token.
func (s *Server) SetRefreshOmitsToken(omit bool) {
	s.mu.Lock()
	s.refreshNoToken = omit
	s.mu.Unlock()
}

// HoldRefreshes blocks refresh handlers until the returned release is called.
func (s *Server) HoldRefreshes() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.refreshGate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.refreshGate == gate {
				s.refreshGate = nil
			}
			s.mu.Unlock()
			close(gate)
		})
	}
}

// SetCallDelay delays function responses by d.
func (s *Server) SetCallDelay(d time.Duration) {
	s.mu.Lock()
	s.callDelay = d
	s.mu.Unlock()
}

// InvalidateAccessTokens makes every issued access token answer 401.
func (s *Server) InvalidateAccessTokens() {
	s.mu.Lock()
	s.validAccess = make(map[string]string)
	s.mu.Unlock()
}

// RevokeSessions makes every refresh token answer 401.
func (s *Server) RevokeSessions() {
	s.mu.Lock()
	for _, sess := range s.sessions {
		sess.revoked = true
	}
	s.mu.Unlock()
}

// Counts returns the per-endpoint call counts.
func (s *Server) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts
}

// RequestIDs returns every X-Request-ID seen, in arrival order.
func (s *Server) RequestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requestIDs...)
}

// SeedSession registers email, opens a session and stores the cookies a
// browser would hold after verification in jar. It returns the user and
// session id.
func (s *Server) SeedSession(jar http.CookieJar, email string) (User, string) {
	s.mu.Lock()
	user := s.userLocked(email)
	refreshToken, sess := s.openSessionLocked(user)
	s.mu.Unlock()

	u, _ := url.Parse(s.URL)
	jar.SetCookies(u, sessionCookies(refreshToken, user, sess.id))
	return user, sess.id
}

func (s *Server) recordRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requestIDs = append(s.requestIDs, r.Header.Get("X-Request-ID"))
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRequestOTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	s.mu.Lock()
	s.counts.RequestOTP++
	s.mu.Unlock()

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !strings.Contains(body.Email, "@") {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	code := s.fixedOTP
	if code == "" {
		var err error
		if code, err = random.NewOTP(6); err != nil {
			writeError(w, http.StatusInternalServerError, "otp generation failed")
			return
		}
	}
	s.mu.Lock()
	s.otps[normalize(body.Email)] = code
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "code sent"})
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	s.mu.Lock()
	s.counts.VerifyOTP++
	s.mu.Unlock()

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}
	email := normalize(body.Email)

	s.mu.Lock()
	want, ok := s.otps[email]
	if !ok || want == "" || want != body.OTP {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "invalid or expired code")
		return
	}
	delete(s.otps, email)
	user := s.userLocked(email)
	refreshToken, sess := s.openSessionLocked(user)
	access, err := s.issueAccessLocked(user, sess.id)
	expiresIn := s.expiresIn
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token issuance failed")
		return
	}

	for _, c := range sessionCookies(refreshToken, user, sess.id) {
		http.SetCookie(w, c)
	}
	writeJSON(w, http.StatusOK, tokenResponse(user, sess.id, access, expiresIn, true))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.counts.Refresh++
	gate := s.refreshGate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	s.mu.Lock()
	if status, ok := s.refreshFailures.take(); ok {
		s.mu.Unlock()
		writeError(w, status, "scripted refresh failure")
		return
	}

	c, err := r.Cookie(cookies.NameRefreshToken)
	if err != nil || c.Value == "" {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "missing refresh token")
		return
	}
	sess, ok := s.sessions[random.HashToken(c.Value)]
	if !ok || sess.revoked {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "refresh token revoked")
		return
	}
	if s.refreshNoToken {
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"user": map[string]string{"id": sess.user.ID, "email": sess.user.Email}})
		return
	}
	access, err := s.issueAccessLocked(sess.user, sess.id)
	expiresIn := s.expiresIn
	includeUser := !s.refreshOmitsUser
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token issuance failed")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse(sess.user, sess.id, access, expiresIn, includeUser))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearer(r)
	s.mu.Lock()
	s.counts.Logout++
	if sid, ok := s.validAccess[token]; ok {
		for _, sess := range s.sessions {
			if sess.id == sid {
				sess.revoked = true
			}
		}
		for t, tsid := range s.validAccess {
			if tsid == sid {
				delete(s.validAccess, t)
			}
		}
	}
	s.mu.Unlock()

	for _, name := range []string{cookies.NameAuthenticated, cookies.NameUserInfo, cookies.NameRefreshToken} {
		http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) handleFunction(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	token := bearer(r)

	s.mu.Lock()
	s.counts.Function++
	_, valid := s.validAccess[token]
	delay := s.callDelay
	status, scriptedFailure := s.callFailures.take()
	fn := s.functions[name]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if scriptedFailure {
		writeError(w, status, "scripted call failure")
		return
	}

	claims, err := s.signer.ParseAccess(token)
	if err != nil || !valid {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if fn == nil {
		writeError(w, http.StatusNotFound, "unknown function "+name)
		return
	}

	var payload json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		payload = nil
	}
	out, err := fn(r.Context(), User{ID: claims.Subject, Email: claims.Email}, payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) userLocked(email string) User {
	email = normalize(email)
	u, ok := s.users[email]
	if !ok {
		u = User{ID: uuid.NewString(), Email: email}
		s.users[email] = u
	}
	return u
}

func (s *Server) openSessionLocked(user User) (string, *sessionRecord) {
	refreshToken, err := random.NewToken()
	if err != nil {
		panic(fmt.Sprintf("authtest: refresh token: %v", err))
	}
	sess := &sessionRecord{id: uuid.NewString(), user: user}
	s.sessions[random.HashToken(refreshToken)] = sess
	return refreshToken, sess
}

func (s *Server) issueAccessLocked(user User, sessionID string) (string, error) {
	token, err := s.signer.CreateAccess(user.ID, user.Email, sessionID, s.expiresIn)
	if err != nil {
		return "", err
	}
	s.validAccess[token] = sessionID
	return token, nil
}

func sessionCookies(refreshToken string, user User, sessionID string) []*http.Cookie {
	return []*http.Cookie{
		{Name: cookies.NameRefreshToken, Value: refreshToken, Path: "/", HttpOnly: true},
		{Name: cookies.NameAuthenticated, Value: "true", Path: "/"},
		{Name: cookies.NameUserInfo, Value: cookies.EncodeUserInfo(cookies.UserInfo{
			Email:     user.Email,
			ID:        user.ID,
			SessionID: sessionID,
		}), Path: "/"},
	}
}

func tokenResponse(user User, sessionID, access string, expiresIn time.Duration, includeUser bool) map[string]any {
	out := map[string]any{
		"tokens": map[string]any{
			"access_token": access,
			"expires_in":   int64(expiresIn / time.Second),
		},
	}
	if includeUser {
		out["user"] = map[string]string{"id": user.ID, "email": user.Email, "session_id": sessionID}
	}
	return out
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
