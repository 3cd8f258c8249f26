// Package data provides thread-safe storage of the last published crosswalk.
// The DataContainer swaps whole snapshots atomically so readers never see a
// half-applied run.
package data

import (
	"sync/atomic"
	"time"

	"github.com/giygas/rug-formats/interfaces"
	"github.com/giygas/rug-formats/logging"
	"github.com/giygas/rug-formats/rugparser/entities"
)

// Compile-time check to ensure DataContainer implements DataStore
var _ interfaces.DataStore = (*DataContainer)(nil)

// DataContainer holds all the data with atomic pointers for zero-downtime updates
type DataContainer struct {
	records         atomic.Value // []entities.RUGRecord
	recordsMap      atomic.Value // map[string]entities.RUGRecord
	formatTables    atomic.Value // map[string]entities.FormatTable
	report          atomic.Pointer[interfaces.DataQualityReport]
	lastUpdated     atomic.Value // time.Time
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewDataContainer creates a new DataContainer with empty data
func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.records.Store(make([]entities.RUGRecord, 0))
	dc.recordsMap.Store(make(map[string]entities.RUGRecord))
	dc.formatTables.Store(make(map[string]entities.FormatTable))
	dc.lastUpdated.Store(time.Time{})
	dc.serverStartTime.Store(time.Time{})
	return dc
}

// GetRecords returns the classified records in source order
func (dc *DataContainer) GetRecords() []entities.RUGRecord {
	if v := dc.records.Load(); v != nil {
		if records, ok := v.([]entities.RUGRecord); ok {
			return records
		}
	}

	logging.Warn("Records list is empty or invalid")
	return []entities.RUGRecord{}
}

// GetRecordsMap returns the records keyed by RUG code for O(1) lookups.
// With duplicate codes the last record wins.
func (dc *DataContainer) GetRecordsMap() map[string]entities.RUGRecord {
	if v := dc.recordsMap.Load(); v != nil {
		if recordsMap, ok := v.(map[string]entities.RUGRecord); ok {
			return recordsMap
		}
	}

	logging.Warn("RecordsMap is empty or invalid")
	return make(map[string]entities.RUGRecord)
}

// GetFormatTable returns a published format table by name
func (dc *DataContainer) GetFormatTable(name string) (entities.FormatTable, bool) {
	if v := dc.formatTables.Load(); v != nil {
		if tables, ok := v.(map[string]entities.FormatTable); ok {
			table, found := tables[name]
			return table, found
		}
	}
	return entities.FormatTable{}, false
}

// GetReport returns the data quality report of the last run, or nil
func (dc *DataContainer) GetReport() *interfaces.DataQualityReport {
	return dc.report.Load()
}

// GetLastUpdated returns the timestamp of the last data update
func (dc *DataContainer) GetLastUpdated() time.Time {
	if v := dc.lastUpdated.Load(); v != nil {
		if lastUpdated, ok := v.(time.Time); ok {
			return lastUpdated
		}
	}

	logging.Warn("Could not get the last updated value")
	return time.Time{}
}

// IsUpdating returns true if a publication run is in progress
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// SetServerStartTime sets the server start time
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (dc *DataContainer) GetServerStartTime() time.Time {
	if v := dc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}

// UpdateData atomically replaces the snapshot with the result of a run
func (dc *DataContainer) UpdateData(result *interfaces.RunResult) {
	if result == nil {
		return
	}

	recordsMap := make(map[string]entities.RUGRecord, len(result.Records))
	for _, r := range result.Records {
		recordsMap[r.Code] = r
	}
	tables := map[string]entities.FormatTable{
		result.CategoryTable.Name: result.CategoryTable,
		result.GroupTable.Name:    result.GroupTable,
	}

	updated := result.FinishedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	// Atomic swap (zero downtime replacement)
	dc.records.Store(result.Records)
	dc.recordsMap.Store(recordsMap)
	dc.formatTables.Store(tables)
	dc.report.Store(result.Report)
	dc.lastUpdated.Store(updated)
}

// BeginUpdate marks the start of a publication run
// Returns true if the run can proceed, false if another one is in progress
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a publication run
func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}
