package goAuthClient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/MrEthical07/goAuthClient/authtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(ctx context.Context, _ AuditEvent) {
	select {
	case <-s.gate:
	case <-ctx.Done():
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAuditErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want AuditErrorCode
	}{
		{nil, ""},
		{ErrValidation, auditErrValidation},
		{ErrNotAuthenticated, auditErrAuth},
		{newAPIError(http.StatusUnauthorized, "", ErrAuth), auditErrAuth},
		{fmt.Errorf("%w: boom", ErrTransient), auditErrTransient},
		{ErrProtocol, auditErrProtocol},
		{ErrTimeout, auditErrTimeout},
		{newAPIError(http.StatusTeapot, "", ErrRequestFailed), auditErrRequest},
		{context.Canceled, auditErrCanceled},
		{errors.New("other"), auditErrInternal},
	}
	for _, tc := range tests {
		if got := auditErrorCode(tc.err); got != tc.want {
			t.Fatalf("auditErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestAuditFailureEventsCarryErrorCode(t *testing.T) {
	srv := authtest.New(authtest.WithFixedOTP(testOTP))
	defer srv.Close()
	h := newHarness(t, srv.URL, nil, nil)

	if err := h.engine.RequestOTP(context.Background(), "a@b.com"); err != nil {
		t.Fatalf("RequestOTP: %v", err)
	}
	if _, err := h.engine.VerifyOTP(WithRequestID(context.Background(), "req-7"), "a@b.com", "999999"); err == nil {
		t.Fatal("expected wrong code to fail")
	}
	h.engine.Close()

	events := drainAudit(h.sink)
	if len(events) != 1 {
		t.Fatalf("expected one event, got %+v", events)
	}
	e := events[0]
	if e.EventType != auditEventOTPFailure || e.Success || e.Error != string(auditErrRequest) || e.RequestID != "req-7" {
		t.Fatalf("unexpected event %+v", e)
	}
}

func TestAuditDropsWhenFull(t *testing.T) {
	srv := authtest.New(authtest.WithFixedOTP(testOTP))
	defer srv.Close()

	sink := &gateSink{gate: make(chan struct{})}
	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 1
	engine, err := New().WithConfig(cfg).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer engine.Close()
	defer close(sink.gate)

	for i := 0; i < 5; i++ {
		engine.Logout(context.Background())
	}
	if engine.AuditDropped() == 0 {
		t.Fatal("expected dropped events with a blocked sink")
	}
}

func TestJSONWriterSinkThroughEngine(t *testing.T) {
	srv := authtest.New(authtest.WithFixedOTP(testOTP))
	defer srv.Close()

	var out lockedBuffer
	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.Audit.Enabled = true
	engine, err := New().WithConfig(cfg).WithAuditSink(NewJSONWriterSink(&out)).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := engine.RequestOTP(context.Background(), "a@b.com"); err != nil {
		t.Fatalf("RequestOTP: %v", err)
	}
	if _, err := engine.VerifyOTP(context.Background(), "a@b.com", testOTP); err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	engine.Close()

	line := strings.TrimSpace(out.String())
	var decoded map[string]any
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("expected one JSON object, got %q: %v", line, err)
	}
	if decoded["event_type"] != auditEventOTPVerified {
		t.Fatalf("unexpected event %v", decoded)
	}
}

func TestZapSinkThroughEngine(t *testing.T) {
	srv := authtest.New()
	defer srv.Close()
	jar := newTestJar(t)
	srv.SeedSession(jar, "a@b.com")
	srv.RevokeSessions()

	core, logs := observer.New(zap.InfoLevel)
	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.Audit.Enabled = true
	engine, err := New().
		WithConfig(cfg).
		WithCookieJar(jar).
		WithAuditSink(NewZapSink(zap.New(core))).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	res := engine.Init(context.Background())
	if res.Reason != InitRejected {
		t.Fatalf("unexpected result %+v", res)
	}
	engine.Close()

	failures := logs.FilterMessage(auditEventRefreshFailure).All()
	if len(failures) != 1 || failures[0].Level != zap.WarnLevel {
		t.Fatalf("expected one warn-level refresh failure, got %+v", failures)
	}
}
