package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fieldops/dispatch-api/pkg/auth"
	"github.com/fieldops/dispatch-api/pkg/database"
	"github.com/fieldops/dispatch-api/pkg/metrics"
	"github.com/fieldops/dispatch-api/pkg/models"
	"github.com/fieldops/dispatch-api/pkg/scheduler"
	"github.com/fieldops/dispatch-api/pkg/timewindow"
)

const (
	dateLayout = "2006-01-02"

	ctxTenantID  = "tenantID"
	ctxRequestID = "requestID"
)

// Handler contains dependencies for the route handlers
type Handler struct {
	Dispatcher *scheduler.Dispatcher
	Store      *database.Store
	Auth       *auth.Authenticator
	Metrics    *metrics.PromRecorder // optional

	// Location interprets scheduled_date and clock times. Defaults to UTC.
	Location *time.Location
	Log      zerolog.Logger
}

// TenantMiddleware verifies the bearer credential (tenant API key or JWT)
// and scopes the request to the tenant it grants.
func (h *Handler) TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		credential := c.GetHeader("Authorization")
		if credential == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		// Strip "Bearer " if present
		credential = strings.TrimPrefix(credential, "Bearer ")

		tenantID, err := h.Auth.Authenticate(credential)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		c.Set(ctxTenantID, tenantID)
		c.Next()
	}
}

// RequestID tags every request with an X-Request-ID, reusing the caller's
// value when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func tenantID(c *gin.Context) string {
	return c.GetString(ctxTenantID)
}

func (h *Handler) location() *time.Location {
	if h.Location == nil {
		return time.UTC
	}
	return h.Location
}

func (h *Handler) logger(c *gin.Context) *zerolog.Logger {
	l := h.Log.With().
		Str("request_id", c.GetString(ctxRequestID)).
		Str("tenant_id", tenantID(c)).
		Logger()
	return &l
}

// respondError maps scheduling errors onto HTTP status codes.
func (h *Handler) respondError(c *gin.Context, err error) {
	var verr *scheduler.ValidationError
	var blocked *scheduler.ConflictBlockedError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": verr.Field})
	case errors.As(err, &blocked):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "conflicts": blocked.Response})
	case errors.Is(err, scheduler.ErrInvalidWindow):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, scheduler.ErrTechnicianNotFound), errors.Is(err, scheduler.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, scheduler.ErrTenantMismatch):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		h.logger(c).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// parseDate reads a calendar date in the dispatch timezone.
func (h *Handler) parseDate(field, value string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(value), h.location())
	if err != nil {
		return time.Time{}, &scheduler.ValidationError{Field: field, Err: fmt.Errorf("expected YYYY-MM-DD, got %q", value)}
	}
	return d, nil
}

// parseClock reads an "HH:MM" or "HH:MM:SS" wall-clock time.
func parseClock(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &scheduler.ValidationError{Field: field, Err: fmt.Errorf("expected HH:MM, got %q", value)}
}

// parseWindow combines a date and two clock times into a window. The field
// names are reported back on validation errors.
func (h *Handler) parseWindow(dateField, date, startField, start, endField, end string) (timewindow.TimeWindow, error) {
	day, err := h.parseDate(dateField, date)
	if err != nil {
		return timewindow.TimeWindow{}, err
	}
	from, err := parseClock(startField, start)
	if err != nil {
		return timewindow.TimeWindow{}, err
	}
	to, err := parseClock(endField, end)
	if err != nil {
		return timewindow.TimeWindow{}, err
	}
	at := func(clock time.Time) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), clock.Second(), 0, day.Location())
	}
	w, err := timewindow.New(at(from), at(to))
	if err != nil {
		return timewindow.TimeWindow{}, &scheduler.ValidationError{Field: endField, Err: err}
	}
	return w, nil
}

// parseSkills reads "name[:level],..." as used by the availability query.
func parseSkills(value string) ([]models.Skill, error) {
	var skills []models.Skill
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, level, graded := strings.Cut(part, ":")
		s := models.Skill{Name: strings.TrimSpace(name)}
		if s.Name == "" {
			return nil, &scheduler.ValidationError{Field: "skills", Err: fmt.Errorf("empty skill name in %q", part)}
		}
		if graded {
			lvl, err := strconv.Atoi(strings.TrimSpace(level))
			if err != nil || lvl < 0 {
				return nil, &scheduler.ValidationError{Field: "skills", Err: fmt.Errorf("invalid level in %q", part)}
			}
			s.Level = &lvl
		}
		skills = append(skills, s)
	}
	return skills, nil
}
