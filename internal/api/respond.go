package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"housinghistory/server/internal/database"
	"housinghistory/server/internal/export"
	"housinghistory/server/internal/queue"
)

// respondRows writes report rows as JSON, or as CSV when ?format=csv.
func respondRows[T export.Row](h *Handler, c *gin.Context, name string, rows []T) {
	switch strings.ToLower(c.DefaultQuery("format", "json")) {
	case "json":
		c.JSON(http.StatusOK, rows)
	case "csv":
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, name))
		c.Status(http.StatusOK)
		if err := export.WriteCSV(c.Writer, rows); err != nil {
			h.logger.WithError(err).WithField("report", name).Error("Failed to write CSV response")
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be json or csv"})
	}
}

// fail maps err to an HTTP status. Server-side failures are logged and
// answered with msg only.
func (h *Handler) fail(c *gin.Context, err error, msg string) {
	status := http.StatusInternalServerError
	switch {
	case database.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, database.ErrAmbiguous):
		status = http.StatusConflict
	case errors.Is(err, database.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrQueueClosed):
		status = http.StatusServiceUnavailable
	}

	entry := h.logger.WithError(err).WithField("request_id", c.GetString(requestIDKey))
	if status == http.StatusInternalServerError {
		entry.Error(msg)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	entry.Warn(msg)
	c.JSON(status, gin.H{"error": err.Error()})
}

// parseAsOf accepts an RFC 3339 timestamp or a YYYY-MM-DD date (midnight
// UTC). An empty value yields the zero time.
func parseAsOf(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: as_of must be RFC 3339 or YYYY-MM-DD, got %q", database.ErrInvalidInput, value)
	}
	return t, nil
}
