package handlers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldops/dispatch-api/pkg/database"
	"github.com/fieldops/dispatch-api/pkg/models"
	"github.com/fieldops/dispatch-api/pkg/scheduler"
	"github.com/fieldops/dispatch-api/pkg/timewindow"
)

// maxAutoScheduleDays bounds a single auto-schedule request.
const maxAutoScheduleDays = 31

// AssignJob handles POST /jobs/assign
func (h *Handler) AssignJob(c *gin.Context) {
	var req models.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	window, err := h.parseWindow("scheduled_date", req.ScheduledDate,
		"time_window_start", req.TimeWindowStart,
		"time_window_end", req.TimeWindowEnd)
	if err != nil {
		h.respondError(c, err)
		return
	}

	out, err := h.Dispatcher.Assign(c.Request.Context(), tenantID(c), scheduler.AssignCommand{
		JobID:        req.JobID,
		TechnicianID: req.TechnicianID,
		Window:       window,
		Override:     req.Override,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.recordUsage(c, database.UsageDelta{JobsAssigned: 1})
	c.JSON(http.StatusOK, out)
}

// CheckConflicts handles POST /jobs/check-conflicts. Conflicts are data: the
// response is 200 whether or not any were found.
func (h *Handler) CheckConflicts(c *gin.Context) {
	var req models.CheckConflictsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	window, err := h.parseWindow("scheduled_date", req.ScheduledDate,
		"scheduled_start_time", req.ScheduledStartTime,
		"scheduled_end_time", req.ScheduledEndTime)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp, err := h.Dispatcher.CheckConflicts(c.Request.Context(), tenantID(c), scheduler.Proposal{
		JobID:         req.JobID,
		TechnicianID:  req.TechnicianID,
		Window:        window,
		Location:      req.Location,
		ExcludeJobIDs: req.ExcludeJobIDs,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.recordUsage(c, database.UsageDelta{ConflictChecks: 1})
	c.JSON(http.StatusOK, resp)
}

// AutoSchedule handles POST /jobs/auto-schedule. The plan is a dry run
// unless apply is set; ?format=csv returns the entries as CSV.
func (h *Handler) AutoSchedule(c *gin.Context) {
	var req models.AutoScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rng, err := h.dateRange(req.DateFrom, req.DateTo)
	if err != nil {
		h.respondError(c, err)
		return
	}

	out, err := h.Dispatcher.AutoSchedule(c.Request.Context(), tenantID(c), rng, req.Apply)
	if err != nil {
		h.respondError(c, err)
		return
	}

	delta := database.UsageDelta{}
	if out.Applied {
		delta.JobsAssigned = len(out.Plan.Entries) - len(out.Failed)
	}
	h.recordUsage(c, delta)

	if c.Query("format") == "csv" {
		data, err := planCSV(out.Plan)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="plan.csv"`)
		c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
		return
	}
	c.JSON(http.StatusOK, out)
}

// dateRange turns inclusive calendar dates into a half-open window covering
// every day from from through to.
func (h *Handler) dateRange(from, to string) (timewindow.TimeWindow, error) {
	start, err := h.parseDate("date_from", from)
	if err != nil {
		return timewindow.TimeWindow{}, err
	}
	last := start
	if to != "" {
		if last, err = h.parseDate("date_to", to); err != nil {
			return timewindow.TimeWindow{}, err
		}
	}
	end := last.AddDate(0, 0, 1)
	if !end.After(start) {
		return timewindow.TimeWindow{}, &scheduler.ValidationError{Field: "date_to", Err: fmt.Errorf("must not be before date_from")}
	}
	if end.After(start.AddDate(0, 0, maxAutoScheduleDays)) {
		return timewindow.TimeWindow{}, &scheduler.ValidationError{Field: "date_to", Err: fmt.Errorf("range exceeds %d days", maxAutoScheduleDays)}
	}
	return timewindow.New(start, end)
}

func planCSV(plan models.AssignmentPlan) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write([]string{"job_id", "technician_id", "start", "end", "duration_hours"}); err != nil {
		return nil, err
	}
	for _, e := range plan.Entries {
		if err := writer.Write([]string{
			e.JobID,
			e.TechnicianID,
			e.Window.Start().Format(time.RFC3339),
			e.Window.End().Format(time.RFC3339),
			fmt.Sprintf("%.2f", e.Window.Hours()),
		}); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	return buf.Bytes(), writer.Error()
}
