package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/fieldops/dispatch-api/pkg/models"
	"github.com/fieldops/dispatch-api/pkg/scheduler"
)

func TestPromRecorder_Scheduling(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := New(reg)
	if err != nil {
		t.Fatalf("create recorder: %v", err)
	}

	rec.RecordConflicts(models.ConflictResponse{Conflicts: []models.ConflictRecord{
		{Type: models.ConflictTimeOverlap, Severity: models.SeverityHigh},
		{Type: models.ConflictTimeOverlap, Severity: models.SeverityHigh},
		{Type: models.ConflictLocation, Severity: models.SeverityLow},
	}})
	rec.RecordAssignment(scheduler.SourceManual, true)
	rec.RecordAssignment(scheduler.SourceAuto, false)
	rec.RecordPlan(models.AssignmentPlan{UnassignedJobIDs: []string{"a", "b"}, BalanceScore: 80})

	expected := `
# HELP dispatch_conflicts_total Conflicts reported by the detector
# TYPE dispatch_conflicts_total counter
dispatch_conflicts_total{severity="high",type="time_overlap"} 2
dispatch_conflicts_total{severity="low",type="location_conflict"} 1
`
	if err := testutil.CollectAndCompare(rec.conflicts, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
	if v := testutil.ToFloat64(rec.assignments.WithLabelValues("manual", "true")); v != 1 {
		t.Errorf("manual saved = %v, want 1", v)
	}
	if v := testutil.ToFloat64(rec.unassigned); v != 2 {
		t.Errorf("unassigned = %v, want 2", v)
	}
	if v := testutil.ToFloat64(rec.balance); v != 80 {
		t.Errorf("balance = %v, want 80", v)
	}
}

func TestNew_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New(reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := New(reg)
	if err != nil {
		t.Fatalf("second registration should reuse collectors: %v", err)
	}
	first.RecordAssignment("manual", true)
	if v := testutil.ToFloat64(second.assignments.WithLabelValues("manual", "true")); v != 1 {
		t.Errorf("collectors not shared, got %v", v)
	}
}

func TestPromRecorder_HTTP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec, err := New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("create recorder: %v", err)
	}
	r := gin.New()
	r.Use(rec.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", rec.Handler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `dispatch_http_request_duration_seconds_count{method="GET",route="/ping",status="200"} 1`) {
		t.Errorf("request histogram missing:\n%s", w.Body.String())
	}
}
