package data

import (
	"sync"
	"testing"
	"time"

	"github.com/giygas/rug-formats/formats"
	"github.com/giygas/rug-formats/interfaces"
	"github.com/giygas/rug-formats/rugparser"
	"github.com/giygas/rug-formats/rugparser/entities"
)

func testResult(finished time.Time) *interfaces.RunResult {
	records := rugparser.ClassifyAll([]entities.SourceRecord{
		{RUG: "RUX", Description: "Ultra-High Rehabilitation Plus Extensive Services"},
		{RUG: "RMA", Description: "Medium Rehabilitation - High Acuity"},
		{RUG: "RMA", Description: "Medium Rehabilitation - Low Acuity"},
	})
	rugcat, ruggroup := formats.BuildFormatTables(records)
	return &interfaces.RunResult{
		Records:       records,
		CategoryTable: rugcat,
		GroupTable:    ruggroup,
		Report:        &interfaces.DataQualityReport{TotalRecords: len(records), DuplicateCodes: []string{"RMA"}},
		FinishedAt:    finished,
	}
}

func TestNewDataContainer(t *testing.T) {
	dc := NewDataContainer()

	if dc.IsUpdating() {
		t.Error("NewDataContainer should not be updating")
	}
	if !dc.GetLastUpdated().IsZero() {
		t.Error("NewDataContainer should have zero lastUpdated time")
	}
	if len(dc.GetRecords()) != 0 {
		t.Error("NewDataContainer should have empty records")
	}
	if len(dc.GetRecordsMap()) != 0 {
		t.Error("NewDataContainer should have empty records map")
	}
	if _, ok := dc.GetFormatTable(entities.CategoryFormat); ok {
		t.Error("NewDataContainer should have no format tables")
	}
	if dc.GetReport() != nil {
		t.Error("NewDataContainer should have no report")
	}
}

func TestUpdateData(t *testing.T) {
	dc := NewDataContainer()
	finished := time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC)

	dc.UpdateData(testResult(finished))

	if len(dc.GetRecords()) != 3 {
		t.Errorf("Expected 3 records, got %d", len(dc.GetRecords()))
	}

	recordsMap := dc.GetRecordsMap()
	if len(recordsMap) != 2 {
		t.Errorf("Expected 2 distinct codes, got %d", len(recordsMap))
	}
	// last record wins for duplicate codes
	if recordsMap["RMA"].Category != "Rehabilitation" || recordsMap["RMA"].RawLabel != "Medium Rehabilitation - Low Acuity" {
		t.Errorf("Unexpected RMA record %+v", recordsMap["RMA"])
	}

	table, ok := dc.GetFormatTable(entities.GroupFormat)
	if !ok {
		t.Fatal("Expected ruggroup table to be stored")
	}
	if len(table.Rows) != 3 {
		t.Errorf("Expected 3 ruggroup rows, got %d", len(table.Rows))
	}

	if report := dc.GetReport(); report == nil || report.TotalRecords != 3 {
		t.Errorf("Expected stored report, got %+v", report)
	}
	if !dc.GetLastUpdated().Equal(finished) {
		t.Errorf("Expected last updated %s, got %s", finished, dc.GetLastUpdated())
	}
}

func TestUpdateDataNilAndZeroTime(t *testing.T) {
	dc := NewDataContainer()

	dc.UpdateData(nil)
	if !dc.GetLastUpdated().IsZero() {
		t.Error("Expected nil result to be ignored")
	}

	before := time.Now()
	dc.UpdateData(testResult(time.Time{}))
	if dc.GetLastUpdated().Before(before) {
		t.Error("Expected zero FinishedAt to fall back to now")
	}
}

func TestBeginEndUpdate(t *testing.T) {
	dc := NewDataContainer()

	if !dc.BeginUpdate() {
		t.Fatal("First BeginUpdate should succeed")
	}
	if !dc.IsUpdating() {
		t.Error("Expected IsUpdating after BeginUpdate")
	}
	if dc.BeginUpdate() {
		t.Error("Second BeginUpdate should fail while updating")
	}

	dc.EndUpdate()
	if dc.IsUpdating() {
		t.Error("Expected not updating after EndUpdate")
	}
	if !dc.BeginUpdate() {
		t.Error("BeginUpdate should succeed after EndUpdate")
	}
}

func TestServerStartTime(t *testing.T) {
	dc := NewDataContainer()
	start := time.Now()

	dc.SetServerStartTime(start)
	if !dc.GetServerStartTime().Equal(start) {
		t.Errorf("Expected %s, got %s", start, dc.GetServerStartTime())
	}
}

func TestConcurrentReadsDuringUpdate(t *testing.T) {
	dc := NewDataContainer()
	result := testResult(time.Now())

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				records := dc.GetRecords()
				if n := len(records); n != 0 && n != 3 {
					t.Errorf("Observed partial snapshot with %d records", n)
					return
				}
				dc.GetRecordsMap()
				dc.GetFormatTable(entities.CategoryFormat)
			}
		}()
	}

	for range 50 {
		dc.UpdateData(result)
	}
	wg.Wait()
}

func TestConcurrentBeginUpdate(t *testing.T) {
	dc := NewDataContainer()

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if dc.BeginUpdate() {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("Expected exactly one update to begin, got %d", winners)
	}
}
