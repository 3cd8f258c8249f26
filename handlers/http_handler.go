// Package handlers provides the HTTP handlers of the status server: health,
// the published crosswalk, the format tables and the data quality report.
package handlers

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/giygas/rug-formats/interfaces"
	"github.com/giygas/rug-formats/logging"
	"github.com/giygas/rug-formats/rugparser/entities"
	"github.com/go-chi/chi/v5"
)

// HTTPHandlerImpl serves the last published data
type HTTPHandlerImpl struct {
	dataStore     interfaces.DataStore
	validator     interfaces.DataValidator
	healthChecker interfaces.HealthChecker
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(dataStore interfaces.DataStore, validator interfaces.DataValidator,
	healthChecker interfaces.HealthChecker) *HTTPHandlerImpl {
	return &HTTPHandlerImpl{
		dataStore:     dataStore,
		validator:     validator,
		healthChecker: healthChecker,
	}
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status        string         `json:"status"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Uptime        string         `json:"uptime"`
	Data          map[string]any `json:"data"`
	System        map[string]any `json:"system"`
}

// RespondWithJSON writes a JSON response
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err, "payload_type", fmt.Sprintf("%T", payload))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	w.Write(data)
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	h.RespondWithJSON(w, code, map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	})
}

// GenerateETag returns a quoted strong ETag for a response body
func GenerateETag(data []byte) string {
	sum := sha256.Sum256(data)
	return `"` + hex.EncodeToString(sum[:8]) + `"`
}

// etagMatches applies the weak comparison If-None-Match asks for
func etagMatches(header, etag string) bool {
	for candidate := range strings.SplitSeq(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

// respondCached writes a cacheable body, answering 304 when the client
// already holds the same version
func (h *HTTPHandlerImpl) respondCached(w http.ResponseWriter, r *http.Request, contentType string, body []byte) {
	etag := GenerateETag(body)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if lastUpdated := h.dataStore.GetLastUpdated(); !lastUpdated.IsZero() {
		w.Header().Set("Last-Modified", lastUpdated.UTC().Format(http.TimeFormat))
	}

	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (h *HTTPHandlerImpl) respondCachedJSON(w http.ResponseWriter, r *http.Request, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err, "payload_type", fmt.Sprintf("%T", payload))
		h.RespondWithError(w, http.StatusInternalServerError, "Failed to encode response")
		return
	}
	h.respondCached(w, r, "application/json; charset=utf-8", body)
}

// ServeRecords returns the classified crosswalk, optionally filtered by ?group=
func (h *HTTPHandlerImpl) ServeRecords(w http.ResponseWriter, r *http.Request) {
	records := h.dataStore.GetRecords()

	if group := r.URL.Query().Get("group"); group != "" {
		tier := entities.Tier(group)
		if !slices.Contains(entities.Tiers, tier) {
			logging.Warn("Unusual user input", "group", group)
			h.RespondWithError(w, http.StatusBadRequest, "Unknown group")
			return
		}

		filtered := make([]entities.RUGRecord, 0)
		for _, rec := range records {
			if rec.Group == tier {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	h.respondCachedJSON(w, r, records)
}

// FindRecordByCode returns one record by RUG code
func (h *HTTPHandlerImpl) FindRecordByCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.validator.ValidateCode(chi.URLParam(r, "code"))
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	record, exists := h.dataStore.GetRecordsMap()[code]
	if !exists {
		h.RespondWithError(w, http.StatusNotFound, "RUG code not found")
		return
	}

	h.RespondWithJSON(w, http.StatusOK, record)
}

// ServeFormatTable returns a format table as JSON, or as CNTLIN CSV with ?format=csv
func (h *HTTPHandlerImpl) ServeFormatTable(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(chi.URLParam(r, "name"))
	table, exists := h.dataStore.GetFormatTable(name)
	if !exists {
		h.RespondWithError(w, http.StatusNotFound, "Format table not found")
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		h.respondCachedJSON(w, r, table)
	case "csv":
		body, err := cntlinCSV(table)
		if err != nil {
			logging.Error("Failed to encode format table", "table", name, "error", err)
			h.RespondWithError(w, http.StatusInternalServerError, "Failed to encode response")
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, table.Name))
		h.respondCached(w, r, "text/csv; charset=utf-8", body)
	default:
		h.RespondWithError(w, http.StatusBadRequest, "format must be json or csv")
	}
}

func cntlinCSV(table entities.FormatTable) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(entities.FormatColumns); err != nil {
		return nil, err
	}
	for _, row := range table.Rows {
		if err := cw.Write([]string{row.Start, row.Label, row.FmtName, row.Type}); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	return buf.Bytes(), cw.Error()
}

// ServeReport returns the data quality report of the last run
func (h *HTTPHandlerImpl) ServeReport(w http.ResponseWriter, r *http.Request) {
	report := h.dataStore.GetReport()
	if report == nil {
		h.RespondWithError(w, http.StatusNotFound, "No publication has completed yet")
		return
	}
	h.RespondWithJSON(w, http.StatusOK, report)
}

// HealthCheck returns data freshness with runtime information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, data, httpStatus := h.healthChecker.HealthCheck()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	var uptime time.Duration
	if start := h.dataStore.GetServerStartTime(); !start.IsZero() {
		uptime = time.Since(start)
	}

	h.RespondWithJSON(w, httpStatus, HealthResponse{
		Status:        status,
		UptimeSeconds: uptime.Seconds(),
		Uptime:        formatUptimeHuman(uptime),
		Data:          data,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb": int(m.Alloc / 1024 / 1024),
				"sys_mb":   int(m.Sys / 1024 / 1024),
				"num_gc":   m.NumGC,
			},
		},
	})
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}
