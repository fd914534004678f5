package refresh

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestExchangeClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind Kind
		wantErr  error
	}{
		{name: "401 is auth", status: 401, body: `{"error":"expired"}`, wantKind: KindAuth, wantErr: ErrUnauthorized},
		{name: "500 is transient", status: 500, body: ``, wantKind: KindTransient, wantErr: ErrUnavailable},
		{name: "403 is transient", status: 403, body: ``, wantKind: KindTransient, wantErr: ErrUnavailable},
		{name: "2xx without token is protocol", status: 200, body: `{"user":{"id":"u1","email":"a@b.com"}}`, wantKind: KindProtocol, wantErr: ErrMissingToken},
		{name: "2xx with bad json is protocol", status: 200, body: `{`, wantKind: KindProtocol, wantErr: ErrMissingToken},
		{name: "2xx with token", status: 200, body: `{"tokens":{"access_token":"T","expires_in":900}}`, wantKind: KindNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, tt.status, tt.body)
			defer srv.Close()

			res := New(srv.Client(), srv.URL, 0).Exchange(context.Background())
			if res.Kind != tt.wantKind {
				t.Fatalf("Kind = %s, want %s", res.Kind, tt.wantKind)
			}
			if tt.wantErr != nil && !errors.Is(res.Err, tt.wantErr) {
				t.Fatalf("Err = %v, want %v", res.Err, tt.wantErr)
			}
			if tt.wantKind == KindNone && (!res.OK() || res.ExpiresIn != 900*time.Second) {
				t.Fatalf("unexpected success result %+v", res)
			}
		})
	}
}

func TestExchangeDefaultsExpiresIn(t *testing.T) {
	srv := serve(t, 200, `{"tokens":{"access_token":"T"}}`)
	defer srv.Close()

	res := New(srv.Client(), srv.URL, 0).Exchange(context.Background())
	if !res.OK() {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.ExpiresIn != 21600*time.Second {
		t.Fatalf("expected default 21600s, got %s", res.ExpiresIn)
	}
	if res.User != nil {
		t.Fatalf("expected no user payload, got %+v", res.User)
	}
}

func TestExchangeKeepsCompleteUserOnly(t *testing.T) {
	srv := serve(t, 200, `{"tokens":{"access_token":"T","expires_in":60},"user":{"id":"u1"}}`)
	defer srv.Close()

	res := New(srv.Client(), srv.URL, 0).Exchange(context.Background())
	if !res.OK() {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.User != nil {
		t.Fatalf("incomplete user payload must be dropped, got %+v", res.User)
	}
}

func TestExchangeNetworkErrorIsTransient(t *testing.T) {
	srv := serve(t, 200, `{}`)
	url := srv.URL
	srv.Close()

	res := New(http.DefaultClient, url, 0).Exchange(context.Background())
	if res.Kind != KindTransient || !errors.Is(res.Err, ErrUnavailable) {
		t.Fatalf("expected transient failure, got %+v", res)
	}
}
