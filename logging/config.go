package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const logFilePrefix = "rugformats-"

// RotatingLogger writes to one log file per ISO week, starting a numbered
// file when the size cap is hit. Files older than the retention period are
// removed whenever a new file is opened.
type RotatingLogger struct {
	logDir      string
	retention   time.Duration
	maxFileSize int64

	mu          sync.Mutex
	currentFile *os.File
	currentWeek string
	currentSize int64
	sequence    int
	now         func() time.Time
}

// NewRotatingLogger creates a rotating logger. maxFileSize <= 0 disables size rotation.
func NewRotatingLogger(logDir string, retentionWeeks int, maxFileSize int64) *RotatingLogger {
	return &RotatingLogger{
		logDir:      logDir,
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
		now:         time.Now,
	}
}

// getWeekKey returns the week key in YYYY-Www format (ISO week)
func getWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func (rl *RotatingLogger) fileName(week string, sequence int) string {
	if sequence == 0 {
		return fmt.Sprintf("%s%s.log", logFilePrefix, week)
	}
	return fmt.Sprintf("%s%s_%02d.log", logFilePrefix, week, sequence)
}

// open switches to the first file of the week that still has room (caller holds mu)
func (rl *RotatingLogger) open(week string, sequence int) error {
	if rl.currentFile != nil {
		if err := rl.currentFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file during rotation: %v\n", err)
		}
		rl.currentFile = nil
	}

	for {
		path := filepath.Join(rl.logDir, rl.fileName(week, sequence))
		info, err := os.Stat(path)
		if err == nil && rl.maxFileSize > 0 && info.Size() >= rl.maxFileSize {
			sequence++
			continue
		}

		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", path, err)
		}

		rl.currentFile = file
		rl.currentWeek = week
		rl.sequence = sequence
		rl.currentSize = 0
		if info != nil {
			rl.currentSize = info.Size()
		}
		break
	}

	if err := rl.cleanupOldLogs(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to clean up old logs: %v\n", err)
	}
	return nil
}

// Write writes data to the current log file, rotating first when needed
func (rl *RotatingLogger) Write(p []byte) (int, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	week := getWeekKey(rl.now())
	switch {
	case rl.currentFile == nil || rl.currentWeek != week:
		if err := rl.open(week, 0); err != nil {
			return 0, err
		}
	case rl.maxFileSize > 0 && rl.currentSize+int64(len(p)) > rl.maxFileSize:
		if err := rl.open(week, rl.sequence+1); err != nil {
			return 0, err
		}
	}

	n, err := rl.currentFile.Write(p)
	rl.currentSize += int64(n)
	return n, err
}

// cleanupOldLogs removes log files older than the retention period
func (rl *RotatingLogger) cleanupOldLogs() error {
	if rl.retention <= 0 {
		return nil
	}

	entries, err := os.ReadDir(rl.logDir)
	if err != nil {
		return fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := rl.now().Add(-rl.retention)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		if rl.currentFile != nil && filepath.Join(rl.logDir, name) == rl.currentFile.Name() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(rl.logDir, name))
		}
	}
	return nil
}

// Close closes the current log file
func (rl *RotatingLogger) Close() error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.currentFile == nil {
		return nil
	}
	err := rl.currentFile.Close()
	rl.currentFile = nil
	return err
}

// parseLogLevel maps a LOG_LEVEL value to a slog level, defaulting to info
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger builds a logger writing text to stdout and JSON to the rotating
// file. If the log directory is unusable it degrades to console only.
func SetupLogger(opts Options) (*slog.Logger, *RotatingLogger) {
	level := parseLogLevel(opts.Level)
	consoleHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})

	if opts.Dir == "" {
		return slog.New(consoleHandler), nil
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		consoleLogger := slog.New(consoleHandler)
		consoleLogger.Error("Failed to create logs directory", "error", err)
		return consoleLogger, nil
	}

	rotating := NewRotatingLogger(opts.Dir, opts.RetentionWeeks, opts.MaxFileSize)
	fileHandler := slog.NewJSONHandler(rotating, &slog.HandlerOptions{Level: level})

	return slog.New(&multiHandler{handlers: []slog.Handler{consoleHandler, fileHandler}}), rotating
}

// multiHandler implements slog.Handler to write to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: newHandlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: newHandlers}
}
