// Package health reports whether the published crosswalk is fresh.
package health

import (
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/giygas/rug-formats/interfaces"
)

// Compile-time check to ensure HealthCheckerImpl implements HealthChecker
var _ interfaces.HealthChecker = (*HealthCheckerImpl)(nil)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore interfaces.DataStore
	refreshAt string
	now       func() time.Time
}

// NewHealthChecker creates a health checker. refreshAt is the REFRESH_AT
// schedule and may be empty.
func NewHealthChecker(dataStore interfaces.DataStore, refreshAt string) *HealthCheckerImpl {
	return &HealthCheckerImpl{
		dataStore: dataStore,
		refreshAt: refreshAt,
		now:       time.Now,
	}
}

// HealthCheck returns the status, the details for the /health body and the HTTP status
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	records := h.dataStore.GetRecords()
	lastUpdate := h.dataStore.GetLastUpdated()
	isUpdating := h.dataStore.IsUpdating()
	now := h.now()

	dataAge := now.Sub(lastUpdate)

	switch {
	case len(records) == 0:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > 48*time.Hour:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > 24*time.Hour:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"last_update":    lastUpdate.Format(time.RFC3339),
		"data_age_hours": math.Round(dataAge.Hours()*10) / 10,
		"records":        len(records),
		"is_updating":    isUpdating,
	}

	if report := h.dataStore.GetReport(); report != nil {
		data["duplicate_codes"] = len(report.DuplicateCodes)
		data["ambiguous_labels"] = len(report.AmbiguousLabels)
	}

	if next, ok := NextRefresh(now, h.refreshAt); ok {
		data["next_update"] = next.Format(time.RFC3339)
	}

	return status, data, httpStatus
}

// NextRefresh returns the first scheduled time strictly after now for a
// "HH:MM;HH:MM" schedule. It reports false for an empty or invalid schedule.
func NextRefresh(now time.Time, refreshAt string) (time.Time, bool) {
	var next time.Time
	found := false

	for _, slot := range strings.Split(refreshAt, ";") {
		at, err := time.Parse("15:04", strings.TrimSpace(slot))
		if err != nil {
			continue
		}

		candidate := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		if !found || candidate.Before(next) {
			next = candidate
			found = true
		}
	}

	return next, found
}
