package scheduler

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fieldops/dispatch-api/pkg/models"
	"github.com/fieldops/dispatch-api/pkg/timewindow"
)

// Proposal is a prospective assignment checked by the Detector.
type Proposal struct {
	JobID         string // optional; the job's own commitment is never a conflict
	TechnicianID  string
	Window        timewindow.TimeWindow
	Location      string // optional; LocationConflict is only evaluated when set
	ExcludeJobIDs []string
}

// Detector classifies conflicts between a proposal and a technician's
// committed windows. It holds no state beyond its policy.
type Detector struct {
	cfg Config
}

// NewDetector creates a new conflict detector.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg.withDefaults()}
}

// Detect evaluates every rule against each commitment and returns the
// conflicts as data. commitments must belong to p.TechnicianID.
func (d *Detector) Detect(p Proposal, commitments []models.Commitment) models.ConflictResponse {
	excluded := make(map[string]bool, len(p.ExcludeJobIDs)+1)
	for _, id := range p.ExcludeJobIDs {
		excluded[id] = true
	}
	if p.JobID != "" {
		excluded[p.JobID] = true
	}

	relevant := make([]models.Commitment, 0, len(commitments))
	for _, c := range commitments {
		if c.JobID != "" && excluded[c.JobID] {
			continue
		}
		relevant = append(relevant, c)
	}
	sort.SliceStable(relevant, func(i, j int) bool {
		a, b := relevant[i].Window.Start(), relevant[j].Window.Start()
		if !a.Equal(b) {
			return a.Before(b)
		}
		return relevant[i].JobID < relevant[j].JobID
	})

	// Rules are independent: an overlapping commitment elsewhere yields both
	// a time record and a location record.
	conflicts := []models.ConflictRecord{}
	for _, c := range relevant {
		if rec, ok := d.timeConflict(p, c); ok {
			conflicts = append(conflicts, rec)
		}
		if rec, ok := d.locationConflict(p, c); ok {
			conflicts = append(conflicts, rec)
		}
	}

	resp := models.ConflictResponse{
		HasConflicts: len(conflicts) > 0,
		Conflicts:    conflicts,
		CanProceed:   true,
	}
	for _, rec := range conflicts {
		if rec.Severity.Blocking() {
			resp.CanProceed = false
			break
		}
	}
	return resp
}

// timeConflict reports a double booking when the windows are identical and a
// time overlap otherwise.
func (d *Detector) timeConflict(p Proposal, c models.Commitment) (models.ConflictRecord, bool) {
	if !timewindow.Overlaps(p.Window, c.Window) {
		return models.ConflictRecord{}, false
	}
	if p.Window.Equal(c.Window) {
		return models.ConflictRecord{
			Type:              models.ConflictTechnicianDoubleBooking,
			Severity:          models.SeverityCritical,
			ConflictingJobIDs: []string{c.JobID},
			Description: fmt.Sprintf("Technician %s is already booked for job %s at exactly %s.",
				p.TechnicianID, c.JobID, windowLabel(c.Window)),
		}, true
	}

	overlap := timewindow.Intersection(p.Window, c.Window)
	severity := models.SeverityMedium
	if d.exceedsRatio(overlap, p.Window) || d.exceedsRatio(overlap, c.Window) {
		severity = models.SeverityHigh
	}
	return models.ConflictRecord{
		Type:              models.ConflictTimeOverlap,
		Severity:          severity,
		ConflictingJobIDs: []string{c.JobID},
		Description: fmt.Sprintf("Overlaps job %s (%s) by %d minutes.",
			c.JobID, windowLabel(c.Window), int(overlap.Minutes())),
	}, true
}

func (d *Detector) exceedsRatio(overlap time.Duration, w timewindow.TimeWindow) bool {
	return float64(overlap) >= d.cfg.HighOverlapRatio*float64(w.Duration())
}

// locationConflict flags jobs at different locations that leave less than the
// travel buffer between them. Under half the buffer is Medium, otherwise Low.
func (d *Detector) locationConflict(p Proposal, c models.Commitment) (models.ConflictRecord, bool) {
	if d.cfg.TravelBuffer <= 0 || p.Location == "" || c.Location == "" || sameLocation(p.Location, c.Location) {
		return models.ConflictRecord{}, false
	}
	gap := timewindow.Gap(p.Window, c.Window)
	if gap >= d.cfg.TravelBuffer {
		return models.ConflictRecord{}, false
	}
	severity := models.SeverityLow
	if gap < d.cfg.TravelBuffer/2 {
		severity = models.SeverityMedium
	}
	return models.ConflictRecord{
		Type:              models.ConflictLocation,
		Severity:          severity,
		ConflictingJobIDs: []string{c.JobID},
		Description: fmt.Sprintf("Only %d minutes between job %s at %q and %q; %d minutes of travel are expected.",
			int(gap.Minutes()), c.JobID, c.Location, p.Location, int(d.cfg.TravelBuffer.Minutes())),
	}, true
}

func sameLocation(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func windowLabel(w timewindow.TimeWindow) string {
	return fmt.Sprintf("%s-%s", w.Start().Format("2006-01-02 15:04"), w.End().Format("15:04"))
}
