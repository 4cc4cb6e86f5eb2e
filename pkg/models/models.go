package models

import (
	"github.com/fieldops/dispatch-api/pkg/timewindow"
)

// Skill is a named capability, optionally graded by level. Names are
// compared exactly, so "Termite-Cert" and "termite-cert" are different skills.
type Skill struct {
	Name  string `json:"name" binding:"required"`
	Level *int   `json:"level,omitempty"`
}

// Equal compares by name, and by level when either side has one.
func (s Skill) Equal(o Skill) bool {
	if s.Name != o.Name {
		return false
	}
	if s.Level == nil || o.Level == nil {
		return s.Level == nil && o.Level == nil
	}
	return *s.Level == *o.Level
}

// Satisfies reports whether a technician skill s covers requirement req.
// A requirement without a level matches on name alone; a graded requirement
// needs a technician level at least as high.
func (s Skill) Satisfies(req Skill) bool {
	if s.Name != req.Name {
		return false
	}
	if req.Level == nil {
		return true
	}
	return s.Level != nil && *s.Level >= *req.Level
}

// UniqueSkills drops repeated skills, keeping the first occurrence.
func UniqueSkills(skills []Skill) []Skill {
	out := make([]Skill, 0, len(skills))
next:
	for _, s := range skills {
		for _, seen := range out {
			if seen.Equal(s) {
				continue next
			}
		}
		out = append(out, s)
	}
	return out
}

// TechnicianStatus is the employment state of a technician
type TechnicianStatus string

const (
	TechnicianActive     TechnicianStatus = "active"
	TechnicianInactive   TechnicianStatus = "inactive"
	TechnicianOnLeave    TechnicianStatus = "on_leave"
	TechnicianTerminated TechnicianStatus = "terminated"
)

// Technician represents a field technician that can be dispatched to jobs
type Technician struct {
	ID       string           `json:"id"`
	TenantID string           `json:"tenant_id"`
	Name     string           `json:"name"`
	Skills   []Skill          `json:"skills"`
	Status   TechnicianStatus `json:"status"`
}

// HasSkills reports whether the technician covers every required skill.
func (t Technician) HasSkills(required []Skill) bool {
	for _, req := range required {
		found := false
		for _, s := range t.Skills {
			if s.Satisfies(req) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// JobStatus tracks where a job is in the dispatch lifecycle
type JobStatus string

const (
	JobUnassigned JobStatus = "unassigned"
	JobScheduled  JobStatus = "scheduled"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobCancelled  JobStatus = "cancelled"
)

// Committed reports whether a job in this status occupies its technician.
func (s JobStatus) Committed() bool {
	return s == JobScheduled || s == JobInProgress
}

// Job represents a time-windowed appointment at a customer location
type Job struct {
	ID                   string                `json:"id"`
	TenantID             string                `json:"tenant_id"`
	Location             string                `json:"location"`
	RequiredSkills       []Skill               `json:"required_skills"`
	Window               timewindow.TimeWindow `json:"window"`
	AssignedTechnicianID *string               `json:"assigned_technician_id,omitempty"`
	Status               JobStatus             `json:"status"`
}

// Unassigned reports whether the job still needs a technician.
func (j Job) Unassigned() bool {
	return j.AssignedTechnicianID == nil && (j.Status == "" || j.Status == JobUnassigned)
}

// Commitment is a window already held by a technician
type Commitment struct {
	JobID    string                `json:"job_id"`
	Location string                `json:"location,omitempty"`
	Window   timewindow.TimeWindow `json:"window"`
}

// ConflictType classifies a scheduling conflict
type ConflictType string

const (
	ConflictTimeOverlap             ConflictType = "time_overlap"
	ConflictTechnicianDoubleBooking ConflictType = "technician_double_booking"
	ConflictLocation                ConflictType = "location_conflict"
)

// Severity grades a conflict. High and Critical block an assignment.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Blocking reports whether the severity prevents saving an assignment.
func (s Severity) Blocking() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// ConflictRecord describes one incompatibility with an existing commitment
type ConflictRecord struct {
	Type              ConflictType `json:"type"`
	Severity          Severity     `json:"severity"`
	ConflictingJobIDs []string     `json:"conflicting_job_ids"`
	Description       string       `json:"description"`
}

// ConflictResponse is the result of a conflict check
type ConflictResponse struct {
	HasConflicts bool             `json:"has_conflicts"`
	Conflicts    []ConflictRecord `json:"conflicts"`
	CanProceed   bool             `json:"can_proceed"`
}

// PlanEntry is a single job-to-technician pairing
type PlanEntry struct {
	JobID        string                `json:"job_id"`
	TechnicianID string                `json:"technician_id"`
	Window       timewindow.TimeWindow `json:"window"`
}

// AssignmentPlan is the auto-scheduler output for one batch
type AssignmentPlan struct {
	TenantID         string            `json:"tenant_id"`
	Entries          []PlanEntry       `json:"entries"`
	UnassignedJobIDs []string          `json:"unassigned_job_ids"`
	Reasons          map[string]string `json:"reasons,omitempty"` // job ID -> why it was left unassigned
	BalanceScore     float64           `json:"balance_score"`
}
