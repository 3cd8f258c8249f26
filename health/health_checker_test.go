package health

import (
	"net/http"
	"testing"
	"time"

	"github.com/giygas/rug-formats/interfaces"
	"github.com/giygas/rug-formats/rugparser/entities"
)

// mockHealthDataStore for testing
type mockHealthDataStore struct {
	records     []entities.RUGRecord
	report      *interfaces.DataQualityReport
	lastUpdated time.Time
	isUpdating  bool
}

func (m *mockHealthDataStore) GetRecords() []entities.RUGRecord { return m.records }

func (m *mockHealthDataStore) GetRecordsMap() map[string]entities.RUGRecord {
	return make(map[string]entities.RUGRecord)
}

func (m *mockHealthDataStore) GetFormatTable(name string) (entities.FormatTable, bool) {
	return entities.FormatTable{}, false
}

func (m *mockHealthDataStore) GetReport() *interfaces.DataQualityReport { return m.report }
func (m *mockHealthDataStore) GetLastUpdated() time.Time                { return m.lastUpdated }
func (m *mockHealthDataStore) IsUpdating() bool                         { return m.isUpdating }
func (m *mockHealthDataStore) GetServerStartTime() time.Time            { return time.Time{} }
func (m *mockHealthDataStore) UpdateData(result *interfaces.RunResult)  {}
func (m *mockHealthDataStore) BeginUpdate() bool                        { return true }
func (m *mockHealthDataStore) EndUpdate()                               {}

func TestHealthCheck(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	records := []entities.RUGRecord{{Code: "RUX", Category: "Rehabilitation", Group: entities.TierUltraHigh}}

	testCases := []struct {
		name           string
		store          *mockHealthDataStore
		expectedStatus string
		expectedHTTP   int
	}{
		{"no data", &mockHealthDataStore{lastUpdated: now}, "unhealthy", http.StatusServiceUnavailable},
		{"fresh", &mockHealthDataStore{records: records, lastUpdated: now.Add(-time.Hour)}, "healthy", http.StatusOK},
		{"degraded", &mockHealthDataStore{records: records, lastUpdated: now.Add(-25 * time.Hour)}, "degraded", http.StatusServiceUnavailable},
		{"stale", &mockHealthDataStore{records: records, lastUpdated: now.Add(-49 * time.Hour)}, "unhealthy", http.StatusServiceUnavailable},
		{"updating but fresh", &mockHealthDataStore{records: records, lastUpdated: now.Add(-7 * time.Hour), isUpdating: true}, "healthy", http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			checker := NewHealthChecker(tc.store, "")
			checker.now = func() time.Time { return now }

			status, data, httpStatus := checker.HealthCheck()
			if status != tc.expectedStatus {
				t.Errorf("Expected status %s, got %s", tc.expectedStatus, status)
			}
			if httpStatus != tc.expectedHTTP {
				t.Errorf("Expected HTTP %d, got %d", tc.expectedHTTP, httpStatus)
			}
			if data["records"] != len(tc.store.records) {
				t.Errorf("Expected records %d, got %v", len(tc.store.records), data["records"])
			}
			if _, ok := data["next_update"]; ok {
				t.Error("Expected no next_update without a schedule")
			}
		})
	}
}

func TestHealthCheckDetails(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	store := &mockHealthDataStore{
		records:     []entities.RUGRecord{{Code: "RUX"}},
		lastUpdated: now.Add(-90 * time.Minute),
		report: &interfaces.DataQualityReport{
			DuplicateCodes:  []string{"RUX"},
			AmbiguousLabels: []string{"RUX", "RVX"},
		},
	}

	checker := NewHealthChecker(store, "06:00;18:00")
	checker.now = func() time.Time { return now }

	_, data, _ := checker.HealthCheck()

	if data["data_age_hours"] != 1.5 {
		t.Errorf("Expected data age 1.5h, got %v", data["data_age_hours"])
	}
	if data["duplicate_codes"] != 1 {
		t.Errorf("Expected 1 duplicate code, got %v", data["duplicate_codes"])
	}
	if data["ambiguous_labels"] != 2 {
		t.Errorf("Expected 2 ambiguous labels, got %v", data["ambiguous_labels"])
	}
	if data["next_update"] != "2026-10-19T18:00:00Z" {
		t.Errorf("Expected next update at 18:00, got %v", data["next_update"])
	}
}

func TestNextRefresh(t *testing.T) {
	day := func(h, m int) time.Time { return time.Date(2026, 10, 19, h, m, 0, 0, time.UTC) }

	testCases := []struct {
		name      string
		now       time.Time
		refreshAt string
		expected  time.Time
		ok        bool
	}{
		{"before first slot", day(5, 0), "06:00;18:00", day(6, 0), true},
		{"between slots", day(12, 0), "06:00;18:00", day(18, 0), true},
		{"after last slot", day(19, 0), "06:00;18:00", day(6, 0).AddDate(0, 0, 1), true},
		{"exactly on slot", day(6, 0), "06:00;18:00", day(18, 0), true},
		{"unordered schedule", day(12, 0), "18:00; 06:00", day(18, 0), true},
		{"empty", day(12, 0), "", time.Time{}, false},
		{"invalid", day(12, 0), "noon", time.Time{}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			next, ok := NextRefresh(tc.now, tc.refreshAt)
			if ok != tc.ok {
				t.Fatalf("Expected ok=%v, got %v", tc.ok, ok)
			}
			if !next.Equal(tc.expected) {
				t.Errorf("Expected %s, got %s", tc.expected, next)
			}
		})
	}
}
