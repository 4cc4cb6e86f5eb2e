package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldops/dispatch-api/pkg/models"
)

// ValidateInput checks a batch of jobs and technicians before it is handed
// to the auto-scheduler. Problems that make the batch unusable set valid to
// false; jobs that no active technician could take are only warnings.
func (h *Handler) ValidateInput(c *gin.Context) {
	var input models.ScheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	if len(input.Jobs) == 0 {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": "At least one job is required"})
		return
	}

	tenant := tenantID(c)

	// Check for duplicate IDs and foreign records
	techIDs := make(map[string]bool)
	for _, t := range input.Technicians {
		if techIDs[t.ID] {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "Duplicate technician ID: " + t.ID})
			return
		}
		if t.TenantID != "" && t.TenantID != tenant {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "Technician belongs to another tenant: " + t.ID})
			return
		}
		techIDs[t.ID] = true
	}

	jobIDs := make(map[string]bool)
	for _, j := range input.Jobs {
		if jobIDs[j.ID] {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "Duplicate job ID: " + j.ID})
			return
		}
		if j.TenantID != "" && j.TenantID != tenant {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "Job belongs to another tenant: " + j.ID})
			return
		}
		if j.Window.IsZero() {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "Job has no window: " + j.ID})
			return
		}
		if j.AssignedTechnicianID != nil && !techIDs[*j.AssignedTechnicianID] {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "Job assigned to unknown technician: " + j.ID})
			return
		}
		jobIDs[j.ID] = true
	}

	warnings := []string{}
	active := 0
	for _, t := range input.Technicians {
		if t.Status == "" || t.Status == models.TechnicianActive {
			active++
		}
	}
	for _, j := range input.Jobs {
		if !j.Unassigned() {
			continue
		}
		qualified := false
		for _, t := range input.Technicians {
			if (t.Status == "" || t.Status == models.TechnicianActive) && t.HasSkills(j.RequiredSkills) {
				qualified = true
				break
			}
		}
		if !qualified {
			warnings = append(warnings, "No active technician has the skills for job: "+j.ID)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":    true,
		"warnings": warnings,
		"stats": gin.H{
			"job_count":               len(input.Jobs),
			"technician_count":        len(input.Technicians),
			"active_technician_count": active,
		},
	})
}
