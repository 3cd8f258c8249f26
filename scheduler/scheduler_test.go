package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/giygas/rug-formats/interfaces"
	"github.com/giygas/rug-formats/rugparser/entities"
)

// mockSchedulerDataStore records updates from the scheduler
type mockSchedulerDataStore struct {
	mu          sync.Mutex
	records     []entities.RUGRecord
	lastUpdated time.Time
	updating    bool
	updateCount int
}

func (m *mockSchedulerDataStore) GetRecords() []entities.RUGRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records
}

func (m *mockSchedulerDataStore) GetRecordsMap() map[string]entities.RUGRecord {
	return map[string]entities.RUGRecord{}
}

func (m *mockSchedulerDataStore) GetFormatTable(name string) (entities.FormatTable, bool) {
	return entities.FormatTable{}, false
}

func (m *mockSchedulerDataStore) GetReport() *interfaces.DataQualityReport { return nil }

func (m *mockSchedulerDataStore) GetLastUpdated() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastUpdated
}

func (m *mockSchedulerDataStore) IsUpdating() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updating
}

func (m *mockSchedulerDataStore) GetServerStartTime() time.Time { return time.Time{} }

func (m *mockSchedulerDataStore) UpdateData(result *interfaces.RunResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = result.Records
	m.lastUpdated = result.FinishedAt
	m.updateCount++
}

func (m *mockSchedulerDataStore) BeginUpdate() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updating {
		return false
	}
	m.updating = true
	return true
}

func (m *mockSchedulerDataStore) EndUpdate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updating = false
}

// mockPipeline returns a fixed result or error
type mockPipeline struct {
	mu       sync.Mutex
	runCount int
	err      error
	block    chan struct{}
}

func (m *mockPipeline) Run(ctx context.Context) (*interfaces.RunResult, error) {
	m.mu.Lock()
	m.runCount++
	m.mu.Unlock()

	if m.block != nil {
		<-m.block
	}
	if m.err != nil {
		return nil, m.err
	}
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("expected a run deadline")
	}
	return &interfaces.RunResult{
		Records:    []entities.RUGRecord{{Code: "RUX"}, {Code: "RUL"}},
		FinishedAt: time.Now(),
	}, nil
}

func (m *mockPipeline) runs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runCount
}

func TestScheduler_SuccessfulStart(t *testing.T) {
	store := &mockSchedulerDataStore{}
	pipeline := &mockPipeline{}

	scheduler := NewScheduler(store, pipeline, "06:00;18:00")
	if err := scheduler.Start(); err != nil {
		t.Fatalf("Unexpected error during start: %v", err)
	}
	defer scheduler.Stop()

	if store.updateCount != 1 {
		t.Errorf("Expected 1 update, got %d", store.updateCount)
	}
	if pipeline.runs() != 1 {
		t.Errorf("Expected 1 run, got %d", pipeline.runs())
	}
	if len(store.GetRecords()) != 2 {
		t.Errorf("Expected 2 records stored, got %d", len(store.GetRecords()))
	}
	if store.IsUpdating() {
		t.Error("Expected update flag to be released")
	}
}

func TestScheduler_InitialRunFailure(t *testing.T) {
	store := &mockSchedulerDataStore{}
	pipeline := &mockPipeline{err: errors.New("fetch: unexpected response status")}

	scheduler := NewScheduler(store, pipeline, "06:00")
	defer scheduler.Stop()

	err := scheduler.Start()
	if err == nil {
		t.Fatal("Expected error from failed initial run")
	}
	if !errors.Is(err, pipeline.err) {
		t.Errorf("Expected wrapped pipeline error, got %v", err)
	}
	if store.updateCount != 0 {
		t.Errorf("Expected no updates, got %d", store.updateCount)
	}
	if store.IsUpdating() {
		t.Error("Expected update flag to be released after failure")
	}
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	scheduler := NewScheduler(&mockSchedulerDataStore{}, &mockPipeline{}, "25:99")
	defer scheduler.Stop()

	if err := scheduler.Start(); err == nil {
		t.Error("Expected error for invalid schedule")
	}
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	store := &mockSchedulerDataStore{}
	pipeline := &mockPipeline{block: make(chan struct{})}
	scheduler := NewScheduler(store, pipeline, "06:00")

	done := make(chan error, 1)
	go func() { done <- scheduler.RunOnce(context.Background()) }()

	// wait for the first run to hold the update flag
	deadline := time.Now().Add(2 * time.Second)
	for !store.IsUpdating() {
		if time.Now().After(deadline) {
			t.Fatal("First run never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := scheduler.RunOnce(context.Background()); err != nil {
		t.Errorf("Expected skipped run to return nil, got %v", err)
	}

	close(pipeline.block)
	if err := <-done; err != nil {
		t.Errorf("First run failed: %v", err)
	}

	if pipeline.runs() != 1 {
		t.Errorf("Expected exactly 1 pipeline run, got %d", pipeline.runs())
	}
	if store.updateCount != 1 {
		t.Errorf("Expected 1 update, got %d", store.updateCount)
	}
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	scheduler := NewScheduler(&mockSchedulerDataStore{}, &mockPipeline{}, "06:00")
	if err := scheduler.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	scheduler.Stop()
	scheduler.Stop()
}
