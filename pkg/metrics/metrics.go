package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fieldops/dispatch-api/pkg/models"
	"github.com/fieldops/dispatch-api/pkg/scheduler"
)

// PromRecorder records scheduling outcomes and HTTP traffic in Prometheus
// metrics. It implements scheduler.Recorder.
type PromRecorder struct {
	conflicts   *prometheus.CounterVec
	assignments *prometheus.CounterVec
	unassigned  prometheus.Counter
	plans       prometheus.Counter
	balance     prometheus.Gauge
	requests    *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. If reg is nil, the default registry is
// used. If the collectors are already registered, the existing ones are reused.
func New(reg *prometheus.Registry) (*PromRecorder, error) {
	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg != nil {
		registerer, gatherer = reg, reg
	}

	r := &PromRecorder{gatherer: gatherer}
	var err error
	if r.conflicts, err = register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_conflicts_total",
		Help: "Conflicts reported by the detector",
	}, []string{"type", "severity"})); err != nil {
		return nil, err
	}
	if r.assignments, err = register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_assignments_total",
		Help: "Assignment attempts by source and outcome",
	}, []string{"source", "saved"})); err != nil {
		return nil, err
	}
	if r.unassigned, err = register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_unassigned_jobs_total",
		Help: "Jobs the auto-scheduler could not place",
	})); err != nil {
		return nil, err
	}
	if r.plans, err = register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_plans_total",
		Help: "Auto-schedule plans produced",
	})); err != nil {
		return nil, err
	}
	if r.balance, err = register(registerer, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_last_plan_balance_score",
		Help: "Workload balance score (0-100) of the most recent plan",
	})); err != nil {
		return nil, err
	}
	if r.requests, err = register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dispatch_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})); err != nil {
		return nil, err
	}
	return r, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordConflicts counts each reported conflict by type and severity.
func (r *PromRecorder) RecordConflicts(resp models.ConflictResponse) {
	for _, c := range resp.Conflicts {
		r.conflicts.WithLabelValues(string(c.Type), string(c.Severity)).Inc()
	}
}

// RecordAssignment counts one assignment attempt.
func (r *PromRecorder) RecordAssignment(source string, saved bool) {
	r.assignments.WithLabelValues(source, strconv.FormatBool(saved)).Inc()
}

// RecordPlan counts a plan and its unplaced jobs.
func (r *PromRecorder) RecordPlan(plan models.AssignmentPlan) {
	r.plans.Inc()
	r.unassigned.Add(float64(len(plan.UnassignedJobIDs)))
	r.balance.Set(plan.BalanceScore)
}

// Middleware observes request latency. Unmatched routes are labelled
// "unmatched" to keep cardinality bounded.
func (r *PromRecorder) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		r.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the registry in the Prometheus text format.
func (r *PromRecorder) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

var _ scheduler.Recorder = (*PromRecorder)(nil)
