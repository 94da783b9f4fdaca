package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestRequestID_GeneratesNew(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	handler := func(c echo.Context) error {
		if rid := c.Get("request_id").(string); rid == "" {
			t.Error("expected request_id to be generated")
		}
		return c.String(http.StatusOK, "ok")
	}

	if err := RequestID()(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected X-Request-ID response header")
	}
}

func TestRequestID_PreservesExisting(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "my-custom-id")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		if rid := c.Get("request_id").(string); rid != "my-custom-id" {
			t.Errorf("expected my-custom-id, got %s", rid)
		}
		return c.String(http.StatusOK, "ok")
	}

	RequestID()(handler)(c)
	if rec.Header().Get(RequestIDHeader) != "my-custom-id" {
		t.Errorf("expected my-custom-id in response header, got %s", rec.Header().Get(RequestIDHeader))
	}
}

func TestRequestID_ReplacesOversized(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 200))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	RequestID()(func(echo.Context) error { return nil })(c)
	if got := rec.Header().Get(RequestIDHeader); len(got) != 36 {
		t.Errorf("expected a fresh uuid, got %q", got)
	}
}

func TestLogger_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil), httptest.NewRecorder())
	c.Set("request_id", "req-123")

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}

	if err := Logger(logger)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected one JSON log line: %v", err)
	}
	if line["request_id"] != "req-123" || line["level"] != "info" || line["status"] != float64(200) {
		t.Errorf("unexpected log line %v", line)
	}
}

func TestLogger_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		code  int
		level string
	}{
		{http.StatusConflict, "warn"},
		{http.StatusServiceUnavailable, "error"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		e := echo.New()
		c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())

		Logger(zerolog.New(&buf))(func(echo.Context) error {
			return echo.NewHTTPError(tt.code, "x")
		})(c)

		var line map[string]interface{}
		json.Unmarshal(buf.Bytes(), &line)
		if line["level"] != tt.level || line["status"] != float64(tt.code) {
			t.Errorf("status %d: unexpected log line %v", tt.code, line)
		}
	}
}

func TestRecovery_CatchesPanic(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/v1/bookings", nil), httptest.NewRecorder())
	c.SetPath("/api/v1/bookings")
	c.Set("request_id", "req-42")
	c.Set("tenant_id", "acme")

	handler := func(c echo.Context) error {
		panic("test panic")
	}

	err := Recovery(zerolog.New(&buf))(handler)(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", httpErr.Code)
	}
	body, _ := httpErr.Message.(map[string]string)
	if body["reason"] != "internal" || body["message"] != "internal server error" || body["request_id"] != "req-42" {
		t.Errorf("unexpected error body: %v", httpErr.Message)
	}

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("invalid log line: %v", err)
	}
	for k, want := range map[string]string{
		"level":      "error",
		"request_id": "req-42",
		"method":     http.MethodPost,
		"route":      "/api/v1/bookings",
		"tenant_id":  "acme",
		"panic":      "test panic",
	} {
		if line[k] != want {
			t.Errorf("log %s: expected %q, got %v", k, want, line[k])
		}
	}
	if stack, _ := line["stack"].(string); !strings.Contains(stack, "goroutine") {
		t.Errorf("expected a goroutine stack in the log, got %q", stack)
	}
}

func TestRecovery_CommittedResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	handler := func(c echo.Context) error {
		c.Response().WriteHeader(http.StatusOK)
		panic("late panic")
	}

	if err := Recovery(zerolog.Nop())(handler)(c); err != nil {
		t.Errorf("expected no error once the response is committed, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected the committed status to stand, got %d", rec.Code)
	}
}

func TestRecovery_ReraisesAbortHandler(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	defer func() {
		if r := recover(); r != http.ErrAbortHandler {
			t.Errorf("expected http.ErrAbortHandler to propagate, got %v", r)
		}
	}()
	Recovery(zerolog.Nop())(func(echo.Context) error {
		panic(http.ErrAbortHandler)
	})(c)
	t.Error("expected the panic to propagate")
}

func TestRecovery_PassesThrough(t *testing.T) {
	logger := zerolog.New(os.Stderr).With().Logger()
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/ok", nil), httptest.NewRecorder())

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}

	if err := Recovery(logger)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
