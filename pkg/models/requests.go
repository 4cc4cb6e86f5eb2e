package models

// AssignRequest is the body of POST /jobs/assign
type AssignRequest struct {
	JobID           string `json:"job_id" binding:"required"`
	TechnicianID    string `json:"technician_id" binding:"required"`
	ScheduledDate   string `json:"scheduled_date" binding:"required"`
	TimeWindowStart string `json:"time_window_start" binding:"required"`
	TimeWindowEnd   string `json:"time_window_end" binding:"required"`
	Override        bool   `json:"override"`
}

// CheckConflictsRequest is the body of POST /jobs/check-conflicts
type CheckConflictsRequest struct {
	JobID              string   `json:"job_id,omitempty"`
	TechnicianID       string   `json:"technician_id" binding:"required"`
	ScheduledDate      string   `json:"scheduled_date" binding:"required"`
	ScheduledStartTime string   `json:"scheduled_start_time" binding:"required"`
	ScheduledEndTime   string   `json:"scheduled_end_time" binding:"required"`
	Location           string   `json:"location,omitempty"`
	ExcludeJobIDs      []string `json:"exclude_job_ids,omitempty"`
}

// AutoScheduleRequest is the body of POST /jobs/auto-schedule
type AutoScheduleRequest struct {
	DateFrom string `json:"date_from" binding:"required"`
	DateTo   string `json:"date_to"` // defaults to DateFrom
	Apply    bool   `json:"apply"`
}

// AutoScheduleResponse wraps a plan together with the outcome of applying it
type AutoScheduleResponse struct {
	Plan    AssignmentPlan    `json:"plan"`
	Applied bool              `json:"applied"`
	Failed  map[string]string `json:"failed,omitempty"` // job ID -> save error
}

// AssignResponse is returned by POST /jobs/assign
type AssignResponse struct {
	JobID        string           `json:"job_id"`
	TechnicianID string           `json:"technician_id"`
	Saved        bool             `json:"saved"`
	Overridden   bool             `json:"overridden"`
	Conflicts    ConflictResponse `json:"conflicts"`
}

// ScheduleInput is the body of POST /jobs/validate: a batch checked before
// it is handed to the auto-scheduler.
type ScheduleInput struct {
	Jobs        []Job        `json:"jobs"`
	Technicians []Technician `json:"technicians"`
}
