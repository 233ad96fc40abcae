package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.RecordFrame(2)
	m.RecordFrame(1)
	m.RecordProviderError()
	m.RecordEvent("hand_event")
	m.RecordEvent("hand_event")
	m.RecordEvent("kick_event")
	m.RecordEmitError("kick_event")
	m.SetClients(3)
	m.RecordPrintJob("success", 200*time.Millisecond)

	if got := testutil.ToFloat64(m.framesTotal); got != 3 {
		t.Errorf("frames_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.providerErrors); got != 1 {
		t.Errorf("provider_errors_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.bodiesTracked); got != 0 {
		t.Errorf("bodies = %v, want 0 after provider error", got)
	}
	if got := testutil.ToFloat64(m.eventsEmitted.WithLabelValues("hand_event")); got != 2 {
		t.Errorf("events_emitted_total{hand_event} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.emitErrors.WithLabelValues("kick_event")); got != 1 {
		t.Errorf("emit_errors_total{kick_event} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.wsClients); got != 3 {
		t.Errorf("ws clients = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.printJobs.WithLabelValues("success")); got != 1 {
		t.Errorf("jobs_total{success} = %v, want 1", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New(WithNamespace("test"))
	m.RecordEvent("kick_event")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `test_gesture_events_emitted_total{event="kick_event"} 1`) {
		t.Errorf("exposition missing kick_event counter:\n%s", body)
	}
}

func TestMetrics_Middleware(t *testing.T) {
	m := New()

	h := m.Middleware("print", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/print", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("print", http.MethodPost, "500")); got != 1 {
		t.Errorf("requests_total{print,POST,500} = %v, want 1", got)
	}
}
