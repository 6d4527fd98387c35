package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// logLine decodes the single JSON line written by the request logger.
func logLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one log line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	return entry
}

func TestRequestID(t *testing.T) {
	cases := []struct {
		name     string
		incoming string
	}{
		{"assigned when absent", ""},
		{"caller id kept", "kiosk-7f3a"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/cases", nil)
			if tc.incoming != "" {
				req.Header.Set(RequestIDHeader, tc.incoming)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			var seen string
			err := RequestID()(func(c echo.Context) error {
				seen, _ = c.Get("request_id").(string)
				return nil
			})(c)
			if err != nil {
				t.Fatal(err)
			}

			header := rec.Header().Get(RequestIDHeader)
			if header == "" || header != seen {
				t.Fatalf("header %q and context %q disagree", header, seen)
			}
			if tc.incoming != "" && seen != tc.incoming {
				t.Errorf("request id = %q, want %q", seen, tc.incoming)
			}
			if tc.incoming == "" && len(seen) != 36 {
				t.Errorf("generated id %q is not a UUID", seen)
			}
		})
	}
}

func TestLogger_LevelFollowsStatus(t *testing.T) {
	cases := []struct {
		name    string
		handler echo.HandlerFunc
		status  int
		level   string
	}{
		{"ok", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, http.StatusNoContent, "info"},
		{"client error", func(c echo.Context) error {
			return echo.NewHTTPError(http.StatusBadRequest, "bad window")
		}, http.StatusBadRequest, "warn"},
		{"server error", func(c echo.Context) error {
			return errors.New("store down")
		}, http.StatusInternalServerError, "error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			e := echo.New()
			e.GET("/api/v1/reports/symptoms", tc.handler, RequestID(), Logger(zerolog.New(&buf)))

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports/symptoms?range=7", nil))

			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			entry := logLine(t, &buf)
			if entry["level"] != tc.level {
				t.Errorf("level = %v, want %s", entry["level"], tc.level)
			}
			if entry["status"] != float64(tc.status) {
				t.Errorf("logged status = %v", entry["status"])
			}
			if entry["route"] != "/api/v1/reports/symptoms" {
				t.Errorf("route = %v", entry["route"])
			}
			if entry["request_id"] != rec.Header().Get(RequestIDHeader) {
				t.Errorf("request_id = %v, header %q", entry["request_id"], rec.Header().Get(RequestIDHeader))
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(Recovery(zerolog.New(&buf)), RequestID())
	e.GET("/boom", func(c echo.Context) error { panic("nil answers") })
	e.GET("/fine", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "nil answers") {
		t.Error("panic value leaked into the response")
	}
	if rid := rec.Header().Get(RequestIDHeader); rid == "" || !strings.Contains(rec.Body.String(), rid) {
		t.Errorf("response %q does not carry request id %q", rec.Body.String(), rid)
	}
	entry := logLine(t, &buf)
	if entry["panic"] != "nil answers" || entry["stack"] == "" {
		t.Errorf("panic not logged: %v", entry)
	}

	buf.Reset()
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fine", nil))
	if rec.Code != http.StatusOK || buf.Len() != 0 {
		t.Errorf("healthy route: status %d, log %q", rec.Code, buf.String())
	}
}
