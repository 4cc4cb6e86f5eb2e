package scheduler

import (
	"context"

	"github.com/fieldops/dispatch-api/pkg/models"
	"github.com/fieldops/dispatch-api/pkg/timewindow"
)

// ScheduleRepository persists assignments and reports what technicians are
// already committed to. Every call is scoped to one tenant.
type ScheduleRepository interface {
	// CommittedWindows returns the technician's committed jobs whose windows
	// intersect rng.
	CommittedWindows(ctx context.Context, tenantID, technicianID string, rng timewindow.TimeWindow) ([]models.Commitment, error)
	// Save records a single assignment.
	Save(ctx context.Context, tenantID string, entry models.PlanEntry) error
}

// TechnicianDirectory is the read side of technician management.
type TechnicianDirectory interface {
	ListActive(ctx context.Context, tenantID string) ([]models.Technician, error)
	// Technician returns ErrTechnicianNotFound for unknown IDs.
	Technician(ctx context.Context, tenantID, technicianID string) (models.Technician, error)
}

// JobStore reads jobs created by work-order intake.
type JobStore interface {
	// Job returns ErrJobNotFound for unknown IDs.
	Job(ctx context.Context, tenantID, jobID string) (models.Job, error)
	UnassignedJobs(ctx context.Context, tenantID string, rng timewindow.TimeWindow) ([]models.Job, error)
}

// Locker serializes read-decide-write sequences per tenant.
type Locker interface {
	Lock(ctx context.Context, tenantID string) (unlock func(), err error)
}

// Recorder receives scheduling outcomes for metrics.
type Recorder interface {
	RecordConflicts(resp models.ConflictResponse)
	RecordAssignment(source string, saved bool)
	RecordPlan(plan models.AssignmentPlan)
}

// NopRecorder implements Recorder with no-op methods.
type NopRecorder struct{}

func (NopRecorder) RecordConflicts(models.ConflictResponse) {}
func (NopRecorder) RecordAssignment(string, bool)           {}
func (NopRecorder) RecordPlan(models.AssignmentPlan)        {}
