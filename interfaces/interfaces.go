// Package interfaces defines core abstractions for the RUG format publisher
// to improve testability and separation of concerns.
package interfaces

import (
	"context"
	"time"

	"github.com/giygas/rug-formats/rugparser/entities"
)

// DataQualityReport provides a summary of data quality issues.
// It never causes rows to be dropped.
type DataQualityReport struct {
	TotalRecords      int                   `json:"total_records"`
	DuplicateCodes    []string              `json:"duplicate_codes"`
	EmptyCodes        int                   `json:"empty_codes"`
	EmptyCategories   []string              `json:"empty_categories"` // codes whose cleaned category is empty
	MalformedCodes    []string              `json:"malformed_codes"`  // codes not shaped like a RUG-IV code
	AmbiguousLabels   []string              `json:"ambiguous_labels"` // codes whose description carries several tier markers
	InvalidRecords    []string              `json:"invalid_records"`  // why each unusable format row failed validation
	TierCounts        map[entities.Tier]int `json:"tier_counts"`
	OtherTierFraction float64               `json:"other_tier_fraction"`
}

// RunResult is the outcome of one successful publication run.
type RunResult struct {
	Records       []entities.RUGRecord
	CategoryTable entities.FormatTable
	GroupTable    entities.FormatTable
	Report        *DataQualityReport
	Artifacts     []string // local files written during the run
	Duration      time.Duration
	FinishedAt    time.Time
}

// Parser defines the contract for fetching and classifying the crosswalk.
type Parser interface {
	// ParseAllRecords downloads the crosswalk and classifies every row
	ParseAllRecords(ctx context.Context) ([]entities.RUGRecord, error)
}

// FormatStore is an external library or schema receiving formatted-value tables.
type FormatStore interface {
	// Name identifies the store in logs and metrics
	Name() string
	// WriteFormat replaces the table with the given rows
	WriteFormat(ctx context.Context, table entities.FormatTable) error
}

// FileProducer is implemented by stores that leave files worth publishing.
type FileProducer interface {
	// Files returns the paths written so far, in write order
	Files() []string
}

// ReferenceWriter writes the human-readable reference copies of the crosswalk.
type ReferenceWriter interface {
	// WriteReference returns the paths of the files it wrote
	WriteReference(records []entities.RUGRecord) ([]string, error)
}

// ArtifactUploader publishes local files to remote storage.
type ArtifactUploader interface {
	Upload(ctx context.Context, paths []string) error
}

// Pipeline runs one complete fetch, classify, project and emit cycle.
type Pipeline interface {
	Run(ctx context.Context) (*RunResult, error)
}

// DataStore defines the contract for keeping the last published crosswalk.
// It provides thread-safe access with atomic replacement.
type DataStore interface {
	// Data retrieval methods
	GetRecords() []entities.RUGRecord
	GetRecordsMap() map[string]entities.RUGRecord
	GetFormatTable(name string) (entities.FormatTable, bool)
	GetReport() *DataQualityReport
	GetLastUpdated() time.Time
	IsUpdating() bool
	GetServerStartTime() time.Time

	// Data update methods
	UpdateData(result *RunResult)
	BeginUpdate() bool
	EndUpdate()
}

// Scheduler defines the contract for recurring publication runs.
type Scheduler interface {
	// Lifecycle management
	Start() error
	Stop()
}

// HealthChecker defines the contract for health check functionality.
type HealthChecker interface {
	// HealthCheck returns the status label, details and the HTTP status to answer with
	HealthCheck() (status string, details map[string]any, httpStatus int)
}

// DataValidator defines the contract for data validation operations.
type DataValidator interface {
	// ValidateRecord checks a single classified record
	ValidateRecord(r *entities.RUGRecord) error

	// ReportDataQuality generates a data quality report with all issues found
	ReportDataQuality(records []entities.RUGRecord) *DataQualityReport

	// ValidateCode validates a RUG code taken from user input
	ValidateCode(input string) (string, error)
}
