package scheduler

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/fieldops/dispatch-api/pkg/models"
	"github.com/fieldops/dispatch-api/pkg/timewindow"
)

// Candidate is a technician eligible for a window, with the number of
// committed windows they hold in the workload period.
type Candidate struct {
	Technician models.Technician `json:"technician"`
	Workload   int               `json:"workload"`
}

// RankAvailable filters technicians down to those eligible for window and
// orders them by ascending workload, then by ID.
//
// A technician is eligible when they belong to tenantID, are Active, cover
// every required skill and hold no commitment overlapping window. Workload
// counts commitments intersecting period. An empty result is a normal
// outcome.
func RankAvailable(
	tenantID string,
	window timewindow.TimeWindow,
	required []models.Skill,
	technicians []models.Technician,
	commitments map[string][]models.Commitment,
	period timewindow.TimeWindow,
) []Candidate {
	var candidates []Candidate
	for _, tech := range technicians {
		if tech.TenantID != tenantID || tech.Status != models.TechnicianActive {
			continue
		}
		if !tech.HasSkills(required) {
			continue
		}
		if wouldOverlap(commitments[tech.ID], window) {
			continue
		}
		workload := 0
		for _, c := range commitments[tech.ID] {
			if c.Window.Overlaps(period) {
				workload++
			}
		}
		candidates = append(candidates, Candidate{Technician: tech, Workload: workload})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Workload != candidates[j].Workload {
			return candidates[i].Workload < candidates[j].Workload
		}
		return candidates[i].Technician.ID < candidates[j].Technician.ID
	})
	return candidates
}

// wouldOverlap checks if any existing commitment overlaps window
func wouldOverlap(existing []models.Commitment, window timewindow.TimeWindow) bool {
	for _, c := range existing {
		if c.Window.Overlaps(window) {
			return true
		}
	}
	return false
}

// Resolver answers availability queries against the technician directory and
// the schedule repository.
type Resolver struct {
	directory TechnicianDirectory
	repo      ScheduleRepository
	cfg       Config
	logger    zerolog.Logger
}

// NewResolver creates a new availability resolver.
func NewResolver(directory TechnicianDirectory, repo ScheduleRepository, cfg Config, logger zerolog.Logger) *Resolver {
	return &Resolver{
		directory: directory,
		repo:      repo,
		cfg:       cfg.withDefaults(),
		logger:    logger.With().Str("component", "availability_resolver").Logger(),
	}
}

// FindAvailable returns the tenant's technicians eligible for window, least
// loaded first. No qualifying technician yields an empty slice, not an error.
func (r *Resolver) FindAvailable(ctx context.Context, tenantID string, window timewindow.TimeWindow, required []models.Skill) ([]models.Technician, error) {
	candidates, err := r.Candidates(ctx, tenantID, window, required)
	if err != nil {
		return nil, err
	}
	out := make([]models.Technician, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.Technician)
	}
	return out, nil
}

// Candidates is FindAvailable with workloads attached.
func (r *Resolver) Candidates(ctx context.Context, tenantID string, window timewindow.TimeWindow, required []models.Skill) ([]Candidate, error) {
	if tenantID == "" {
		return nil, &ValidationError{Field: "tenant_id", Err: ErrTenantRequired}
	}
	if window.IsZero() {
		return nil, &ValidationError{Field: "window", Err: ErrInvalidWindow}
	}

	technicians, err := r.directory.ListActive(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list technicians: %w", err)
	}

	period := r.cfg.period(window)
	commitments := make(map[string][]models.Commitment)
	for _, tech := range technicians {
		// Skip the repository round trip for technicians that cannot qualify.
		if tech.TenantID != tenantID || tech.Status != models.TechnicianActive || !tech.HasSkills(required) {
			continue
		}
		committed, err := r.repo.CommittedWindows(ctx, tenantID, tech.ID, period)
		if err != nil {
			return nil, fmt.Errorf("committed windows for %s: %w", tech.ID, err)
		}
		commitments[tech.ID] = committed
	}

	candidates := RankAvailable(tenantID, window, required, technicians, commitments, period)
	r.logger.Debug().
		Str("tenant_id", tenantID).
		Stringer("window", window).
		Int("pool", len(technicians)).
		Int("available", len(candidates)).
		Msg("resolved availability")
	return candidates, nil
}
