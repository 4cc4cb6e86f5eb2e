package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fieldops/dispatch-api/pkg/models"
	"github.com/fieldops/dispatch-api/pkg/scheduler"
	"github.com/fieldops/dispatch-api/pkg/timewindow"
)

// Store implements the scheduler's TechnicianDirectory, JobStore and
// ScheduleRepository on top of gorm. Every query is filtered by tenant_id.
type Store struct {
	DB *gorm.DB
}

// NewStore wraps an open database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

var committedStatuses = []string{string(models.JobScheduled), string(models.JobInProgress)}

// ListActive returns the tenant's active technicians ordered by ID.
func (s *Store) ListActive(ctx context.Context, tenantID string) ([]models.Technician, error) {
	var records []TechnicianRecord
	err := s.DB.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, string(models.TechnicianActive)).
		Order("id").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.Technician, 0, len(records))
	for _, r := range records {
		out = append(out, r.toModel())
	}
	return out, nil
}

// Technician returns one technician of the tenant regardless of status.
func (s *Store) Technician(ctx context.Context, tenantID, technicianID string) (models.Technician, error) {
	var r TechnicianRecord
	err := s.DB.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, technicianID).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Technician{}, fmt.Errorf("%w: %s", scheduler.ErrTechnicianNotFound, technicianID)
	}
	if err != nil {
		return models.Technician{}, err
	}
	return r.toModel(), nil
}

// Job returns one job of the tenant.
func (s *Store) Job(ctx context.Context, tenantID, jobID string) (models.Job, error) {
	var r JobRecord
	err := s.DB.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, jobID).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Job{}, fmt.Errorf("%w: %s", scheduler.ErrJobNotFound, jobID)
	}
	if err != nil {
		return models.Job{}, err
	}
	return r.toModel(), nil
}

// UnassignedJobs returns the tenant's unassigned jobs intersecting rng,
// ordered by start then ID.
func (s *Store) UnassignedJobs(ctx context.Context, tenantID string, rng timewindow.TimeWindow) ([]models.Job, error) {
	var records []JobRecord
	err := s.DB.WithContext(ctx).
		Where("tenant_id = ? AND assigned_technician_id IS NULL AND status = ?", tenantID, string(models.JobUnassigned)).
		Where("starts_at < ? AND ends_at > ?", rng.End().UTC(), rng.Start().UTC()).
		Order("starts_at, id").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.Job, 0, len(records))
	for _, r := range records {
		out = append(out, r.toModel())
	}
	return out, nil
}

// CommittedWindows returns the technician's scheduled or in-progress jobs
// intersecting rng.
func (s *Store) CommittedWindows(ctx context.Context, tenantID, technicianID string, rng timewindow.TimeWindow) ([]models.Commitment, error) {
	var records []JobRecord
	err := s.DB.WithContext(ctx).
		Where("tenant_id = ? AND assigned_technician_id = ? AND status IN ?", tenantID, technicianID, committedStatuses).
		Where("starts_at < ? AND ends_at > ?", rng.End().UTC(), rng.Start().UTC()).
		Order("starts_at, id").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.Commitment, 0, len(records))
	for _, r := range records {
		w, err := timewindow.New(r.StartsAt, r.EndsAt)
		if err != nil {
			continue
		}
		out = append(out, models.Commitment{JobID: r.ID, Location: r.Location, Window: w})
	}
	return out, nil
}

// Save records an assignment: the job gets the technician, the window and
// the scheduled status.
func (s *Store) Save(ctx context.Context, tenantID string, entry models.PlanEntry) error {
	res := s.DB.WithContext(ctx).Model(&JobRecord{}).
		Where("tenant_id = ? AND id = ?", tenantID, entry.JobID).
		Updates(map[string]interface{}{
			"assigned_technician_id": entry.TechnicianID,
			"starts_at":              entry.Window.Start().UTC(),
			"ends_at":                entry.Window.End().UTC(),
			"status":                 string(models.JobScheduled),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", scheduler.ErrJobNotFound, entry.JobID)
	}
	return nil
}

// tenantKey is the conflict target for upserts. A row is only ever replaced
// by a write from its own tenant.
var tenantKey = []clause.Column{{Name: "tenant_id"}, {Name: "id"}}

// UpsertTechnician is the write side used by technician management: it
// stores a technician under (tenant_id, id), replacing that tenant's
// previous copy. Duplicate skills are collapsed.
func (s *Store) UpsertTechnician(ctx context.Context, t models.Technician) error {
	if t.TenantID == "" {
		return &scheduler.ValidationError{Field: "tenant_id", Err: scheduler.ErrTenantRequired}
	}
	if t.Status == "" {
		t.Status = models.TechnicianActive
	}
	r := TechnicianRecord{ID: t.ID, TenantID: t.TenantID, Name: t.Name, Skills: models.UniqueSkills(t.Skills), Status: string(t.Status)}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{Columns: tenantKey, UpdateAll: true}).Create(&r).Error
}

// UpsertJob is the write side used by work-order intake, keyed like
// UpsertTechnician.
func (s *Store) UpsertJob(ctx context.Context, j models.Job) error {
	if j.TenantID == "" {
		return &scheduler.ValidationError{Field: "tenant_id", Err: scheduler.ErrTenantRequired}
	}
	if j.Status == "" {
		j.Status = models.JobUnassigned
	}
	r := JobRecord{
		ID:                   j.ID,
		TenantID:             j.TenantID,
		Location:             j.Location,
		RequiredSkills:       models.UniqueSkills(j.RequiredSkills),
		StartsAt:             j.Window.Start().UTC(),
		EndsAt:               j.Window.End().UTC(),
		AssignedTechnicianID: j.AssignedTechnicianID,
		Status:               string(j.Status),
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{Columns: tenantKey, UpdateAll: true}).Create(&r).Error
}

// UsageDelta is added to a tenant's usage for the current day.
type UsageDelta struct {
	ConflictChecks int
	JobsAssigned   int
}

// RecordUsage records API usage in the database using an efficient upsert
func (s *Store) RecordUsage(ctx context.Context, tenantID string, delta UsageDelta) error {
	today := time.Now().UTC().Format("2006-01-02")

	// OnConflict gives a single-query upsert on both Postgres and SQLite
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_count":   gorm.Expr("request_count + ?", 1),
			"conflict_checks": gorm.Expr("conflict_checks + ?", delta.ConflictChecks),
			"jobs_assigned":   gorm.Expr("jobs_assigned + ?", delta.JobsAssigned),
		}),
	}).Create(&TenantUsage{
		TenantID:       tenantID,
		Date:           today,
		RequestCount:   1,
		ConflictChecks: delta.ConflictChecks,
		JobsAssigned:   delta.JobsAssigned,
	}).Error
}

// Usage returns the tenant's most recent daily usage rows, newest first.
func (s *Store) Usage(ctx context.Context, tenantID string, days int) ([]TenantUsage, error) {
	var usage []TenantUsage
	err := s.DB.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("date desc").Limit(days).Find(&usage).Error
	return usage, err
}

func (r TechnicianRecord) toModel() models.Technician {
	return models.Technician{
		ID:       r.ID,
		TenantID: r.TenantID,
		Name:     r.Name,
		Skills:   r.Skills,
		Status:   models.TechnicianStatus(r.Status),
	}
}

// toModel leaves Window zero when the stored window is invalid; the
// scheduler reports such jobs instead of placing them.
func (r JobRecord) toModel() models.Job {
	w, _ := timewindow.New(r.StartsAt, r.EndsAt)
	return models.Job{
		ID:                   r.ID,
		TenantID:             r.TenantID,
		Location:             r.Location,
		RequiredSkills:       r.RequiredSkills,
		Window:               w,
		AssignedTechnicianID: r.AssignedTechnicianID,
		Status:               models.JobStatus(r.Status),
	}
}

var (
	_ scheduler.TechnicianDirectory = (*Store)(nil)
	_ scheduler.JobStore            = (*Store)(nil)
	_ scheduler.ScheduleRepository  = (*Store)(nil)
)
