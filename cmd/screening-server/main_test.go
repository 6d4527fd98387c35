package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ppk/screening/internal/config"
	"github.com/ppk/screening/internal/platform/reporting"
)

func testConfig(env string) *config.Config {
	return &config.Config{
		Env:             env,
		LogLevel:        "info",
		StoreDriver:     config.DriverSQLite,
		SQLitePath:      ":memory:",
		ReportTimezone:  "UTC",
		SummaryCacheTTL: time.Minute,
		SessionIdleTTL:  time.Hour,
		RateLimitRPS:    1000,
		RateLimitBurst:  1000,
		RequestTimeout:  5 * time.Second,
		BodyLimit:       "1M",
		AuthSigningKey:  "test-signing-key",
		KafkaTopic:      "screening.question-results",
	}
}

func newTestServer(t *testing.T, env string) *echo.Echo {
	t.Helper()
	cfg := testConfig(env)
	st, err := openStores(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("openStores: %v", err)
	}
	t.Cleanup(st.close)

	a, err := newApp(cfg, zerolog.Nop(), st)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	return newServer(cfg, zerolog.Nop(), st, a)
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestServer_HealthIsPublic(t *testing.T) {
	e := newTestServer(t, "production")

	rec := do(e, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	rec = do(e, http.MethodGet, "/health/db", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected healthy sqlite store, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"driver":"sqlite"`) {
		t.Errorf("expected driver in health body, got %s", rec.Body.String())
	}
}

func TestServer_APIRequiresToken(t *testing.T) {
	e := newTestServer(t, "production")

	rec := do(e, http.MethodGet, "/api/v1/questions", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", rec.Code)
	}
}

func TestServer_CaseToSummary(t *testing.T) {
	e := newTestServer(t, "development")

	rec := do(e, http.MethodGet, "/api/v1/questions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}

	body := `{"patient_ref":"HN-100","questions":[
		{"question":"Pregnancy","answers":{"gestWeek":25,"symptom":"pain_pregnancy"}},
		{"question":"6","answers":{}}
	]}`
	rec = do(e, http.MethodPost, "/api/v1/cases", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodGet, "/api/v1/reports/clinics?type=form", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Items []reporting.ClinicCount `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Items) == 0 {
		t.Error("expected the new case to appear in the clinic summary")
	}

	rec = do(e, http.MethodGet, "/api/v1/reports/symptoms?type=unknown", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown type, got %d", rec.Code)
	}
}

func TestServer_Metrics(t *testing.T) {
	e := newTestServer(t, "development")
	do(e, http.MethodGet, "/api/v1/clinics", "")

	rec := do(e, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("http_requests_total")) {
		t.Error("expected http request counter in metrics output")
	}
}

func TestNewLogger_Level(t *testing.T) {
	cfg := testConfig("production")
	cfg.LogLevel = "warn"
	if got := newLogger(cfg).GetLevel(); got != zerolog.WarnLevel {
		t.Errorf("expected warn level, got %s", got)
	}
	cfg.LogLevel = "loud"
	if got := newLogger(cfg).GetLevel(); got != zerolog.InfoLevel {
		t.Errorf("expected fallback to info, got %s", got)
	}
}

func TestLoadVocabulary_MissingFile(t *testing.T) {
	cfg := testConfig("development")
	cfg.ClinicVocabularyFile = "does-not-exist.yaml"
	if _, err := loadVocabulary(cfg); err == nil {
		t.Error("expected error for missing vocabulary file")
	}
}

func TestServer_LiveFeedRegistered(t *testing.T) {
	e := newTestServer(t, "development")
	found := false
	for _, r := range e.Routes() {
		if r.Path == "/api/v1/live" && r.Method == http.MethodGet {
			found = true
		}
	}
	if !found {
		t.Error("expected live feed route")
	}
}
