package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldops/dispatch-api/pkg/database"
)

const usageHistoryDays = 30

// recordUsage adds to the tenant's usage for today. Failures are logged and
// never fail the request.
func (h *Handler) recordUsage(c *gin.Context, delta database.UsageDelta) {
	if h.Store == nil {
		return
	}
	if err := h.Store.RecordUsage(c.Request.Context(), tenantID(c), delta); err != nil {
		h.logger(c).Warn().Err(err).Msg("could not record usage")
	}
}

// GetMyUsage returns usage stats for the authenticated tenant
func (h *Handler) GetMyUsage(c *gin.Context) {
	usage, err := h.Store.Usage(c.Request.Context(), tenantID(c), usageHistoryDays)
	if err != nil {
		h.logger(c).Error().Err(err).Msg("could not fetch usage")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch usage details"})
		return
	}

	// Calculate totals
	var totalRequests, totalChecks, totalAssigned int64
	for _, u := range usage {
		totalRequests += int64(u.RequestCount)
		totalChecks += int64(u.ConflictChecks)
		totalAssigned += int64(u.JobsAssigned)
	}

	c.JSON(http.StatusOK, gin.H{
		"tenant_id":     tenantID(c),
		"usage_history": usage,
		"totals": gin.H{
			"requests":        totalRequests,
			"conflict_checks": totalChecks,
			"jobs_assigned":   totalAssigned,
		},
	})
}
