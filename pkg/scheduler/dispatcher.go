package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fieldops/dispatch-api/pkg/models"
	"github.com/fieldops/dispatch-api/pkg/timewindow"
)

// Assignment sources reported to the Recorder.
const (
	SourceManual = "manual"
	SourceAuto   = "auto"
)

// Deps are the collaborators a Dispatcher needs.
type Deps struct {
	Directory TechnicianDirectory
	Jobs      JobStore
	Repo      ScheduleRepository
	Locker    Locker
	Recorder  Recorder // optional
}

// AssignCommand is a manual assignment of one job to one technician.
type AssignCommand struct {
	JobID        string
	TechnicianID string
	Window       timewindow.TimeWindow
	Override     bool
}

// Dispatcher wires the pure scheduling core to its collaborators. Every write
// path holds the tenant lock for the whole read-decide-write sequence.
type Dispatcher struct {
	deps      Deps
	cfg       Config
	resolver  *Resolver
	detector  *Detector
	scheduler *Scheduler
	logger    zerolog.Logger
}

// NewDispatcher creates a new dispatcher.
func NewDispatcher(deps Deps, cfg Config, logger zerolog.Logger) *Dispatcher {
	cfg = cfg.withDefaults()
	if deps.Recorder == nil {
		deps.Recorder = NopRecorder{}
	}
	return &Dispatcher{
		deps:      deps,
		cfg:       cfg,
		resolver:  NewResolver(deps.Directory, deps.Repo, cfg, logger),
		detector:  NewDetector(cfg),
		scheduler: NewScheduler(cfg),
		logger:    logger.With().Str("component", "dispatcher").Logger(),
	}
}

// FindAvailable returns eligible technicians for window, least loaded first.
func (d *Dispatcher) FindAvailable(ctx context.Context, tenantID string, window timewindow.TimeWindow, required []models.Skill) ([]Candidate, error) {
	return d.resolver.Candidates(ctx, tenantID, window, required)
}

// CheckConflicts runs the detector for a proposal against the technician's
// committed windows. Conflicts are returned as data, never as an error.
func (d *Dispatcher) CheckConflicts(ctx context.Context, tenantID string, p Proposal) (models.ConflictResponse, error) {
	if err := validateProposal(tenantID, p); err != nil {
		return models.ConflictResponse{}, err
	}
	if _, err := d.deps.Directory.Technician(ctx, tenantID, p.TechnicianID); err != nil {
		return models.ConflictResponse{}, err
	}
	resp, err := d.detect(ctx, tenantID, p)
	if err != nil {
		return models.ConflictResponse{}, err
	}
	d.deps.Recorder.RecordConflicts(resp)
	return resp, nil
}

// Assign validates and persists a manual assignment. The technician must be
// active and hold the job's required skills. A blocking conflict yields a
// *ConflictBlockedError unless cmd.Override is set.
func (d *Dispatcher) Assign(ctx context.Context, tenantID string, cmd AssignCommand) (models.AssignResponse, error) {
	out := models.AssignResponse{JobID: cmd.JobID, TechnicianID: cmd.TechnicianID}
	if cmd.JobID == "" {
		return out, &ValidationError{Field: "job_id", Err: errors.New("is required")}
	}
	if err := validateProposal(tenantID, Proposal{TechnicianID: cmd.TechnicianID, Window: cmd.Window}); err != nil {
		return out, err
	}

	unlock, err := d.deps.Locker.Lock(ctx, tenantID)
	if err != nil {
		return out, fmt.Errorf("lock tenant %s: %w", tenantID, err)
	}
	defer unlock()

	job, err := d.deps.Jobs.Job(ctx, tenantID, cmd.JobID)
	if err != nil {
		return out, err
	}
	if job.TenantID != tenantID {
		return out, ErrTenantMismatch
	}
	if job.Status == models.JobCompleted || job.Status == models.JobCancelled {
		return out, &ValidationError{Field: "job_id", Err: ErrJobClosed}
	}

	tech, err := d.deps.Directory.Technician(ctx, tenantID, cmd.TechnicianID)
	if err != nil {
		return out, err
	}
	if tech.TenantID != tenantID {
		return out, ErrTenantMismatch
	}
	if tech.Status != models.TechnicianActive {
		return out, &ValidationError{Field: "technician_id", Err: ErrTechnicianInactive}
	}
	// Override only covers conflicts, never qualifications.
	if !tech.HasSkills(job.RequiredSkills) {
		return out, &ValidationError{Field: "technician_id", Err: ErrMissingSkills}
	}

	resp, err := d.detect(ctx, tenantID, Proposal{
		JobID:        job.ID,
		TechnicianID: tech.ID,
		Window:       cmd.Window,
		Location:     job.Location,
	})
	if err != nil {
		return out, err
	}
	out.Conflicts = resp
	d.deps.Recorder.RecordConflicts(resp)

	if !resp.CanProceed {
		if !cmd.Override {
			d.deps.Recorder.RecordAssignment(SourceManual, false)
			return out, &ConflictBlockedError{Response: resp}
		}
		out.Overridden = true
		d.logger.Warn().
			Str("tenant_id", tenantID).
			Str("job_id", job.ID).
			Str("technician_id", tech.ID).
			Int("conflicts", len(resp.Conflicts)).
			Msg("saving assignment over blocking conflicts")
	}

	entry := models.PlanEntry{JobID: job.ID, TechnicianID: tech.ID, Window: cmd.Window}
	if err := d.deps.Repo.Save(ctx, tenantID, entry); err != nil {
		d.deps.Recorder.RecordAssignment(SourceManual, false)
		return out, fmt.Errorf("save assignment: %w", err)
	}
	out.Saved = true
	d.deps.Recorder.RecordAssignment(SourceManual, true)
	d.logger.Info().
		Str("tenant_id", tenantID).
		Str("job_id", job.ID).
		Str("technician_id", tech.ID).
		Stringer("window", cmd.Window).
		Msg("job assigned")
	return out, nil
}

// AutoSchedule plans the tenant's unassigned jobs inside rng. With apply set
// each entry is saved; save failures are reported per job and do not abort
// the remaining entries.
func (d *Dispatcher) AutoSchedule(ctx context.Context, tenantID string, rng timewindow.TimeWindow, apply bool) (models.AutoScheduleResponse, error) {
	var out models.AutoScheduleResponse
	if tenantID == "" {
		return out, &ValidationError{Field: "tenant_id", Err: ErrTenantRequired}
	}
	if rng.IsZero() {
		return out, &ValidationError{Field: "date_from", Err: ErrInvalidWindow}
	}

	unlock, err := d.deps.Locker.Lock(ctx, tenantID)
	if err != nil {
		return out, fmt.Errorf("lock tenant %s: %w", tenantID, err)
	}
	defer unlock()

	technicians, err := d.deps.Directory.ListActive(ctx, tenantID)
	if err != nil {
		return out, fmt.Errorf("list technicians: %w", err)
	}
	jobs, err := d.deps.Jobs.UnassignedJobs(ctx, tenantID, rng)
	if err != nil {
		return out, fmt.Errorf("list unassigned jobs: %w", err)
	}

	// Commitments are read for the whole workload period around the range,
	// widened by the travel buffer so location checks see neighbouring jobs.
	coverage := span(d.cfg.period(rng), d.cfg.period(lastInstant(rng))).Extend(d.cfg.TravelBuffer)
	commitments := make(map[string][]models.Commitment, len(technicians))
	for _, tech := range technicians {
		committed, err := d.deps.Repo.CommittedWindows(ctx, tenantID, tech.ID, coverage)
		if err != nil {
			return out, fmt.Errorf("committed windows for %s: %w", tech.ID, err)
		}
		commitments[tech.ID] = committed
	}

	plan := d.scheduler.Assign(Input{
		TenantID:    tenantID,
		Jobs:        jobs,
		Technicians: technicians,
		Commitments: commitments,
	})
	out.Plan = plan
	d.deps.Recorder.RecordPlan(plan)

	if apply {
		out.Failed = map[string]string{}
		for _, entry := range plan.Entries {
			if err := d.deps.Repo.Save(ctx, tenantID, entry); err != nil {
				out.Failed[entry.JobID] = err.Error()
				d.deps.Recorder.RecordAssignment(SourceAuto, false)
				d.logger.Error().Err(err).Str("tenant_id", tenantID).Str("job_id", entry.JobID).Msg("failed to save planned assignment")
				continue
			}
			d.deps.Recorder.RecordAssignment(SourceAuto, true)
		}
		out.Applied = true
	}

	d.logger.Info().
		Str("tenant_id", tenantID).
		Stringer("range", rng).
		Int("jobs", len(jobs)).
		Int("assigned", len(plan.Entries)).
		Int("unassigned", len(plan.UnassignedJobIDs)).
		Bool("applied", apply).
		Msg("auto-schedule finished")
	return out, nil
}

func (d *Dispatcher) detect(ctx context.Context, tenantID string, p Proposal) (models.ConflictResponse, error) {
	committed, err := d.deps.Repo.CommittedWindows(ctx, tenantID, p.TechnicianID, p.Window.Extend(d.cfg.TravelBuffer))
	if err != nil {
		return models.ConflictResponse{}, fmt.Errorf("committed windows for %s: %w", p.TechnicianID, err)
	}
	return d.detector.Detect(p, committed), nil
}

func validateProposal(tenantID string, p Proposal) error {
	if tenantID == "" {
		return &ValidationError{Field: "tenant_id", Err: ErrTenantRequired}
	}
	if p.TechnicianID == "" {
		return &ValidationError{Field: "technician_id", Err: errors.New("is required")}
	}
	if p.Window.IsZero() {
		return &ValidationError{Field: "window", Err: ErrInvalidWindow}
	}
	return nil
}

// lastInstant returns a one-nanosecond window at the end of w, used to find
// the workload period containing w's final instant.
func lastInstant(w timewindow.TimeWindow) timewindow.TimeWindow {
	return timewindow.MustNew(w.End().Add(-1), w.End())
}
