// Package scheduler runs the publication pipeline on a daily schedule and
// hands each successful result to the data store behind the status server.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/giygas/rug-formats/interfaces"
	"github.com/giygas/rug-formats/logging"
	"github.com/go-co-op/gocron"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// staleAfter is how old the data may get before the monitor warns
const staleAfter = 25 * time.Hour

// Scheduler handles publication runs and freshness monitoring
type Scheduler struct {
	dataStore  interfaces.DataStore
	pipeline   interfaces.Pipeline
	refreshAt  string
	runTimeout time.Duration
	scheduler  *gocron.Scheduler

	stopOnce sync.Once
	stop     chan struct{}
}

// NewScheduler creates a scheduler running the pipeline at every "HH:MM" of refreshAt
func NewScheduler(dataStore interfaces.DataStore, pipeline interfaces.Pipeline, refreshAt string) *Scheduler {
	return &Scheduler{
		dataStore:  dataStore,
		pipeline:   pipeline,
		refreshAt:  strings.ReplaceAll(refreshAt, " ", ""),
		runTimeout: 30 * time.Minute,
		scheduler:  gocron.NewScheduler(time.Local),
		stop:       make(chan struct{}),
	}
}

// Start performs the initial run, then schedules the daily ones
func (s *Scheduler) Start() error {
	if err := s.RunOnce(context.Background()); err != nil {
		logging.Error("Failed to perform initial publication", "error", err)
		return fmt.Errorf("initial publication failed: %w", err)
	}

	_, err := s.scheduler.Every(1).Days().At(s.refreshAt).Do(func() {
		if err := s.RunOnce(context.Background()); err != nil {
			logging.Error("Failed to publish formats", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule publications", "error", err)
		return fmt.Errorf("failed to schedule publications: %w", err)
	}

	s.scheduler.StartAsync()
	s.startHealthMonitoring()

	logging.Info("Publication scheduled", "refresh_at", s.refreshAt)
	return nil
}

// Stop stops the scheduler and the freshness monitor
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.stopOnce.Do(func() { close(s.stop) })
}

// RunOnce runs the pipeline and stores its result. A run requested while
// another is in progress is skipped.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if !s.dataStore.BeginUpdate() {
		logging.Info("Publication already in progress, skipping...")
		return nil
	}
	defer s.dataStore.EndUpdate()

	ctx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	result, err := s.pipeline.Run(ctx)
	if err != nil {
		return err
	}

	s.dataStore.UpdateData(result)
	return nil
}

// startHealthMonitoring warns when no run has succeeded for too long
func (s *Scheduler) startHealthMonitoring() {
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				lastUpdate := s.dataStore.GetLastUpdated()
				if time.Since(lastUpdate) > staleAfter {
					logging.Warn("Formats haven't been published in over 25 hours", "last_update", lastUpdate)
				}
			}
		}
	}()
}
