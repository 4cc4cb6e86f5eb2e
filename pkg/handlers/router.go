package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Version is reported by GET /.
const Version = "1.0.0"

// NewRouter builds the Dispatch API. The same engine backs the standalone
// server and the serverless entry point.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), RequestID())
	if h.Metrics != nil {
		r.Use(h.Metrics.Middleware())
		r.GET("/metrics", h.Metrics.Handler())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Field Service Dispatch API",
			"version": Version,
		})
	})

	tenant := r.Group("/")
	tenant.Use(h.TenantMiddleware())
	{
		tenant.POST("/jobs/assign", h.AssignJob)
		tenant.POST("/jobs/check-conflicts", h.CheckConflicts)
		tenant.POST("/jobs/auto-schedule", h.AutoSchedule)
		tenant.POST("/jobs/validate", h.ValidateInput)
		tenant.GET("/technicians/available", h.AvailableTechnicians)
		tenant.GET("/usage", h.GetMyUsage)
	}

	return r
}
