// SPDX-License-Identifier: MIT
package observability

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRequestCounts(t *testing.T) {
	m := NewMetrics("voicebox")

	m.ObserveRequest("effects", "ok", 120*time.Millisecond)
	m.ObserveRequest("effects", "ok", 80*time.Millisecond)
	m.ObserveRequest("effects", "error", 5*time.Millisecond)

	if got := testutil.ToFloat64(m.Requests.WithLabelValues("effects", "ok")); got != 2 {
		t.Errorf("ok count = %f, want 2", got)
	}
	if got := testutil.ToFloat64(m.Requests.WithLabelValues("effects", "error")); got != 1 {
		t.Errorf("error count = %f, want 1", got)
	}
}

func TestIndependentRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	a := NewMetrics("voicebox")
	b := NewMetrics("voicebox")

	a.BatchFiles.WithLabelValues("processed").Inc()
	if got := testutil.ToFloat64(b.BatchFiles.WithLabelValues("processed")); got != 0 {
		t.Errorf("registries shared state: %f", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	m := NewMetrics("voicebox")
	m.ObserveRequest("tts", "ok", time.Second)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("empty metrics exposition")
	}
}
