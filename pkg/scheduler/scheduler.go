package scheduler

import (
	"math"
	"sort"

	"github.com/fieldops/dispatch-api/pkg/models"
)

// Input is the state snapshot handed to the auto-scheduler
type Input struct {
	TenantID    string
	Jobs        []models.Job
	Technicians []models.Technician
	// Commitments holds windows technicians already hold, keyed by technician ID.
	Commitments map[string][]models.Commitment
}

// Scheduler proposes technician assignments for a batch of jobs
type Scheduler struct {
	cfg      Config
	detector *Detector
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg Config) *Scheduler {
	cfg = cfg.withDefaults()
	return &Scheduler{cfg: cfg, detector: NewDetector(cfg)}
}

// Assign runs a single greedy pass over the unassigned jobs in the input and
// returns the resulting plan. It never fails: jobs that cannot be placed are
// listed in UnassignedJobIDs with a reason. The input is not modified and the
// same input always yields the same plan.
func (s *Scheduler) Assign(in Input) models.AssignmentPlan {
	plan := models.AssignmentPlan{
		TenantID:         in.TenantID,
		Entries:          []models.PlanEntry{},
		UnassignedJobIDs: []string{},
		Reasons:          map[string]string{},
	}
	commitments := s.prefill(in)

	var pending []models.Job
	for _, job := range in.Jobs {
		switch {
		case job.TenantID != in.TenantID:
			s.leaveUnassigned(&plan, job.ID, ReasonOtherTenant)
		case !job.Unassigned():
			// Already placed; counted as a commitment by prefill.
		case job.Window.IsZero():
			s.leaveUnassigned(&plan, job.ID, ReasonInvalidWindow)
		default:
			pending = append(pending, job)
		}
	}
	sortJobs(pending)

	hours := make(map[string]float64)
	for _, job := range pending {
		period := s.cfg.period(job.Window)
		candidates := RankAvailable(in.TenantID, job.Window, job.RequiredSkills, in.Technicians, commitments, period)
		if len(candidates) == 0 {
			s.leaveUnassigned(&plan, job.ID, ReasonNoEligibleTechnician)
			continue
		}

		var best *models.Technician
		for i := range candidates {
			tech := candidates[i].Technician
			resp := s.detector.Detect(Proposal{
				JobID:        job.ID,
				TechnicianID: tech.ID,
				Window:       job.Window,
				Location:     job.Location,
			}, commitments[tech.ID])
			if resp.CanProceed {
				best = &tech
				break
			}
		}
		if best == nil {
			s.leaveUnassigned(&plan, job.ID, ReasonConflictBlocked)
			continue
		}

		plan.Entries = append(plan.Entries, models.PlanEntry{
			JobID:        job.ID,
			TechnicianID: best.ID,
			Window:       job.Window,
		})
		commitments[best.ID] = append(commitments[best.ID], models.Commitment{
			JobID:    job.ID,
			Location: job.Location,
			Window:   job.Window,
		})
		hours[best.ID] += job.Window.Hours()
	}

	plan.BalanceScore = balanceScore(in.TenantID, in.Technicians, hours)
	return plan
}

// prefill copies the supplied commitments and records jobs in the batch that
// are already assigned, so the caller's map is never mutated.
func (s *Scheduler) prefill(in Input) map[string][]models.Commitment {
	out := make(map[string][]models.Commitment, len(in.Commitments))
	seen := make(map[string]bool)
	for techID, list := range in.Commitments {
		out[techID] = append([]models.Commitment(nil), list...)
		for _, c := range list {
			seen[techID+"/"+c.JobID] = true
		}
	}
	for _, job := range in.Jobs {
		if job.TenantID != in.TenantID || job.AssignedTechnicianID == nil || !job.Status.Committed() || job.Window.IsZero() {
			continue
		}
		techID := *job.AssignedTechnicianID
		if seen[techID+"/"+job.ID] {
			continue
		}
		seen[techID+"/"+job.ID] = true
		out[techID] = append(out[techID], models.Commitment{
			JobID:    job.ID,
			Location: job.Location,
			Window:   job.Window,
		})
	}
	return out
}

func (s *Scheduler) leaveUnassigned(plan *models.AssignmentPlan, jobID, reason string) {
	plan.UnassignedJobIDs = append(plan.UnassignedJobIDs, jobID)
	plan.Reasons[jobID] = reason
}

// sortJobs orders jobs by window start, then by number of required skills
// descending so harder-to-place jobs go first, then by ID.
func sortJobs(jobs []models.Job) {
	sort.SliceStable(jobs, func(i, j int) bool {
		a, b := jobs[i], jobs[j]
		if !a.Window.Start().Equal(b.Window.Start()) {
			return a.Window.Start().Before(b.Window.Start())
		}
		if len(a.RequiredSkills) != len(b.RequiredSkills) {
			return len(a.RequiredSkills) > len(b.RequiredSkills)
		}
		return a.ID < b.ID
	})
}

// balanceScore returns a percentage (0-100) representing how evenly the
// plan's hours are spread over the tenant's active technicians. 100% is
// perfectly even (standard deviation = 0).
func balanceScore(tenantID string, technicians []models.Technician, hours map[string]float64) float64 {
	var pool []float64
	for _, tech := range technicians {
		if tech.TenantID == tenantID && tech.Status == models.TechnicianActive {
			pool = append(pool, hours[tech.ID])
		}
	}
	if len(pool) == 0 {
		return 100.0
	}

	var sum float64
	for _, h := range pool {
		sum += h
	}
	if sum == 0 {
		return 100.0
	}
	mean := sum / float64(len(pool))

	var varianceSum float64
	for _, h := range pool {
		diff := h - mean
		varianceSum += diff * diff
	}
	stdDev := math.Sqrt(varianceSum / float64(len(pool)))

	// 100% means SD is 0. 0% means SD is >= mean.
	score := (1.0 - (stdDev / mean)) * 100.0
	if score < 0 {
		return 0.0
	}
	return score
}
