package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AvailableTechnicians handles
// GET /technicians/available?scheduled_date=&start=&end=&skills=name[:level],...
// Technicians are returned least loaded first.
func (h *Handler) AvailableTechnicians(c *gin.Context) {
	window, err := h.parseWindow("scheduled_date", c.Query("scheduled_date"),
		"start", c.Query("start"),
		"end", c.Query("end"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	required, err := parseSkills(c.Query("skills"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	candidates, err := h.Dispatcher.FindAvailable(c.Request.Context(), tenantID(c), window, required)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"window":      window,
		"technicians": candidates,
	})
}
