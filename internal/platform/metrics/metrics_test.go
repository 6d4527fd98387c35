package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordEvaluation(t *testing.T) {
	before := testutil.ToFloat64(evaluationsTotal.WithLabelValues("Fever", OutcomeComplete))
	RecordEvaluation("Fever", OutcomeComplete)
	after := testutil.ToFloat64(evaluationsTotal.WithLabelValues("Fever", OutcomeComplete))
	if after-before != 1 {
		t.Errorf("expected counter to grow by 1, got %v", after-before)
	}
}

func TestRecordCaseWrite_Result(t *testing.T) {
	okBefore := testutil.ToFloat64(caseWritesTotal.WithLabelValues("create", "ok"))
	errBefore := testutil.ToFloat64(caseWritesTotal.WithLabelValues("create", "error"))

	RecordCaseWrite("create", nil)
	RecordCaseWrite("create", errors.New("store down"))

	if got := testutil.ToFloat64(caseWritesTotal.WithLabelValues("create", "ok")) - okBefore; got != 1 {
		t.Errorf("expected 1 ok write, got %v", got)
	}
	if got := testutil.ToFloat64(caseWritesTotal.WithLabelValues("create", "error")) - errBefore; got != 1 {
		t.Errorf("expected 1 failed write, got %v", got)
	}
}

func TestHandler_ExposesBusinessMetrics(t *testing.T) {
	RecordSummaryRequest("symptoms", "form", CacheMiss)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "screening_summary_requests_total") {
		t.Error("expected summary counter in exposition")
	}
}

func TestInFlight(t *testing.T) {
	before := testutil.ToFloat64(httpRequestsInFlight)
	done := InFlight()
	if got := testutil.ToFloat64(httpRequestsInFlight); got != before+1 {
		t.Errorf("expected gauge %v, got %v", before+1, got)
	}
	done()
	if got := testutil.ToFloat64(httpRequestsInFlight); got != before {
		t.Errorf("expected gauge back to %v, got %v", before, got)
	}
}
