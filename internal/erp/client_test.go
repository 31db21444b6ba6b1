package erp_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/olmedhq/erp-gateway/internal/erp"
)

func newClient(t *testing.T, baseURL string) *erp.Client {
	t.Helper()
	c, err := erp.NewClient(baseURL, "gateway", "secret", 5*time.Second, slog.Default())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestLogin_ParsesTokenAndExpiry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var creds map[string]string
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Errorf("decode credentials: %v", err)
		}
		if creds["username"] != "gateway" || creds["password"] != "secret" {
			t.Errorf("unexpected credentials %v", creds)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"token": "tok-1", "expiresIn": 120})
	}))
	defer srv.Close()

	before := time.Now()
	tok, err := newClient(t, srv.URL).Login(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Token != "tok-1" {
		t.Fatalf("want tok-1, got %q", tok.Token)
	}
	if got := tok.ExpiresAt.Sub(tok.CreatedAt); got != 120*time.Second {
		t.Fatalf("want 120s lifetime, got %v", got)
	}
	if !tok.ExpiresAt.After(before) {
		t.Fatal("token must expire in the future")
	}
}

func TestLogin_MissingExpiresInDefaultsToAnHour(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"token": "tok-2"})
	}))
	defer srv.Close()

	tok, err := newClient(t, srv.URL).Login(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tok.ExpiresAt.Sub(tok.CreatedAt); got != time.Hour {
		t.Fatalf("want 3600s default lifetime, got %v", got)
	}
}

func TestLogin_EmptyTokenRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"expiresIn": 120})
	}))
	defer srv.Close()

	if _, err := newClient(t, srv.URL).Login(context.Background()); err == nil {
		t.Fatal("a response without a token must be an error")
	}
}

func TestRefresh_SendsCurrentTokenAsBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/refresh" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer old-token" {
			t.Errorf("want bearer old-token, got %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"token": "new-token", "expiresIn": 3600})
	}))
	defer srv.Close()

	tok, err := newClient(t, srv.URL).Refresh(context.Background(), "old-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Token != "new-token" {
		t.Fatalf("want new-token, got %q", tok.Token)
	}
}

func TestRefresh_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	if _, err := newClient(t, srv.URL).Refresh(context.Background(), "old-token"); err == nil {
		t.Fatal("401 must surface as an error")
	}
}

func TestLogout_ReportsRemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/logout" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := newClient(t, srv.URL).Logout(context.Background(), "tok"); err == nil {
		t.Fatal("500 must surface as an error")
	}
}

func TestForward_RelaysPayloadWithBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/orders/import" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("want bearer tok, got %q", got)
		}
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"imported":1}`))
	}))
	defer srv.Close()

	status, body, err := newClient(t, srv.URL).Forward(context.Background(), "/api/orders/import", []byte(`{"order":"o-1"}`), "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != http.StatusAccepted {
		t.Fatalf("want 202, got %d", status)
	}
	if string(body) != `{"imported":1}` {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestPing_5xxIsDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := newClient(t, srv.URL).Ping(context.Background()); err == nil {
		t.Fatal("5xx must fail the readiness ping")
	}
}

func TestHost_ExtractsERPHostname(t *testing.T) {
	c := newClient(t, "https://erp.olmed.example:8443/base/")
	if got := c.Host(); got != "erp.olmed.example" {
		t.Fatalf("want erp.olmed.example, got %q", got)
	}
}
