package scheduler

import (
	"errors"
	"fmt"

	"github.com/fieldops/dispatch-api/pkg/models"
	"github.com/fieldops/dispatch-api/pkg/timewindow"
)

var (
	// ErrInvalidWindow is returned before any scheduling logic runs when a
	// window does not start before it ends.
	ErrInvalidWindow = timewindow.ErrInvalidWindow

	ErrTechnicianNotFound = errors.New("technician not found")
	ErrTechnicianInactive = errors.New("technician is not active")
	ErrMissingSkills      = errors.New("technician lacks the job's required skills")
	ErrJobNotFound        = errors.New("job not found")
	ErrJobClosed          = errors.New("job is completed or cancelled")
	ErrConflictBlocked    = errors.New("assignment blocked by conflicts")
	ErrTenantMismatch     = errors.New("record belongs to another tenant")
	ErrTenantRequired     = errors.New("tenant is required")
)

// Reasons recorded in AssignmentPlan.Reasons. Having no eligible technician
// is a normal outcome, not an error.
const (
	ReasonNoEligibleTechnician = "no eligible technician"
	ReasonConflictBlocked      = "every candidate was blocked by conflicts"
	ReasonInvalidWindow        = "job has no valid window"
	ReasonOtherTenant          = "job belongs to another tenant"
)

// ValidationError names the request field that failed validation.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ConflictBlockedError is returned by the write path when a blocking conflict
// was found and no override was requested. The conflicts travel with it so the
// caller can still display them.
type ConflictBlockedError struct {
	Response models.ConflictResponse
}

func (e *ConflictBlockedError) Error() string {
	return fmt.Sprintf("%v (%d conflicts)", ErrConflictBlocked, len(e.Response.Conflicts))
}

func (e *ConflictBlockedError) Unwrap() error { return ErrConflictBlocked }
