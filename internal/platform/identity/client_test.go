package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *string) {
	t.Helper()
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &gotPath
}

func TestClient_Lookup(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantExists bool
		wantActive bool
	}{
		{"active", http.StatusOK, `{"id":"x","status":"ACTIVE"}`, true, true},
		{"active lower case", http.StatusOK, `{"id":"x","status":"active"}`, true, true},
		{"inactive", http.StatusOK, `{"id":"x","status":"INACTIVE"}`, true, false},
		{"no status", http.StatusOK, `{"id":"x"}`, true, false},
		{"not found", http.StatusNotFound, `{"error":"not found"}`, false, false},
		{"forbidden", http.StatusForbidden, ``, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, path := newTestServer(t, tt.status, tt.body)
			c := NewClient(srv.URL+"/", time.Second, zerolog.Nop())
			id := uuid.New()

			exists, err := c.Exists(context.Background(), id)
			if err != nil {
				t.Fatalf("Exists: %v", err)
			}
			if exists != tt.wantExists {
				t.Errorf("Exists = %v, want %v", exists, tt.wantExists)
			}
			active, err := c.IsActive(context.Background(), id)
			if err != nil {
				t.Fatalf("IsActive: %v", err)
			}
			if active != tt.wantActive {
				t.Errorf("IsActive = %v, want %v", active, tt.wantActive)
			}
			if *path != "/api/v1/patients/"+id.String() {
				t.Errorf("unexpected path %q", *path)
			}
		})
	}
}

func TestClient_ExistsIgnoresBody(t *testing.T) {
	for _, body := range []string{`{"status":`, `not json`, ``} {
		srv, _ := newTestServer(t, http.StatusOK, body)
		exists, err := NewClient(srv.URL, time.Second, zerolog.Nop()).Exists(context.Background(), uuid.New())
		if err != nil {
			t.Errorf("body %q: expected no error, got %v", body, err)
		}
		if !exists {
			t.Errorf("body %q: expected a 2xx answer to mean the subject exists", body)
		}
	}
}

func TestClient_Unavailable(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv, _ := newTestServer(t, http.StatusBadGateway, ``)
		_, err := NewClient(srv.URL, time.Second, zerolog.Nop()).Exists(context.Background(), uuid.New())
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		srv, _ := newTestServer(t, http.StatusOK, `{"status":`)
		_, err := NewClient(srv.URL, time.Second, zerolog.Nop()).IsActive(context.Background(), uuid.New())
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("connection refused", func(t *testing.T) {
		_, err := NewClient("http://127.0.0.1:1", time.Second, zerolog.Nop()).Exists(context.Background(), uuid.New())
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		start := time.Now()
		_, err := NewClient(srv.URL, 50*time.Millisecond, zerolog.Nop()).Exists(context.Background(), uuid.New())
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
		if time.Since(start) > 2*time.Second {
			t.Error("timeout was not enforced")
		}
	})
}

func TestNewClient_TrimsBaseURL(t *testing.T) {
	c := NewClient("http://identity:8081//", 0, zerolog.Nop())
	if strings.HasSuffix(c.baseURL, "/") {
		t.Errorf("expected trailing slashes trimmed, got %q", c.baseURL)
	}
	if c.http.Timeout != 3*time.Second {
		t.Errorf("expected default timeout, got %v", c.http.Timeout)
	}
}
