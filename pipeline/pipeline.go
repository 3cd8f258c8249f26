// Package pipeline runs the publication cycle: fetch and classify the
// crosswalk, report on its quality, project the format tables and emit them
// to the reference files, the format stores and object storage.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/giygas/rug-formats/formats"
	"github.com/giygas/rug-formats/interfaces"
	"github.com/giygas/rug-formats/logging"
	"github.com/giygas/rug-formats/metrics"
	"github.com/giygas/rug-formats/rugparser/entities"
)

// Compile-time check to ensure Pipeline implements the Pipeline interface
var _ interfaces.Pipeline = (*Pipeline)(nil)

// Step names used to wrap errors
const (
	StepFetch     = "fetch"
	StepReference = "reference"
	StepFormat    = "format"
	StepUpload    = "upload"
)

// Pipeline publishes the crosswalk. A failed step aborts the run.
type Pipeline struct {
	parser    interfaces.Parser
	validator interfaces.DataValidator
	reference interfaces.ReferenceWriter
	stores    []interfaces.FormatStore
	uploader  interfaces.ArtifactUploader // nil disables uploads
	now       func() time.Time
}

// New creates a pipeline. reference and uploader may be nil.
func New(parser interfaces.Parser, validator interfaces.DataValidator, reference interfaces.ReferenceWriter,
	stores []interfaces.FormatStore, uploader interfaces.ArtifactUploader) *Pipeline {
	return &Pipeline{
		parser:    parser,
		validator: validator,
		reference: reference,
		stores:    stores,
		uploader:  uploader,
		now:       time.Now,
	}
}

// Run performs one publication
func (p *Pipeline) Run(ctx context.Context) (result *interfaces.RunResult, err error) {
	start := p.now()
	logging.Info("Starting publication run", "started_at", start.Format(time.RFC3339))

	defer func() {
		status := "success"
		if err != nil {
			status = "failure"
		}
		metrics.PipelineRunsTotal.WithLabelValues(status).Inc()
	}()

	records, err := p.parser.ParseAllRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StepFetch, err)
	}

	report := p.validator.ReportDataQuality(records)
	logReport(report)

	rugcat, ruggroup := formats.BuildFormatTables(records)

	var artifacts []string
	if p.reference != nil {
		written, err := p.reference.WriteReference(records)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", StepReference, err)
		}
		artifacts = append(artifacts, written...)
	}

	for _, store := range p.stores {
		for _, table := range []entities.FormatTable{rugcat, ruggroup} {
			if err := store.WriteFormat(ctx, table); err != nil {
				return nil, fmt.Errorf("%s %s to %s: %w", StepFormat, table.Name, store.Name(), err)
			}
		}
		if producer, ok := store.(interfaces.FileProducer); ok {
			artifacts = append(artifacts, producer.Files()...)
		}
	}

	if p.uploader != nil {
		if err := p.uploader.Upload(ctx, artifacts); err != nil {
			return nil, fmt.Errorf("%s: %w", StepUpload, err)
		}
	}

	finished := p.now()
	result = &interfaces.RunResult{
		Records:       records,
		CategoryTable: rugcat,
		GroupTable:    ruggroup,
		Report:        report,
		Artifacts:     artifacts,
		Duration:      finished.Sub(start),
		FinishedAt:    finished,
	}
	recordSuccess(result)

	logging.Info("Publication run completed",
		"duration", result.Duration.String(),
		"records", len(records),
		"artifacts", len(artifacts),
	)
	return result, nil
}

// logReport logs every issue found as a warning, mirroring what is published
func logReport(report *interfaces.DataQualityReport) {
	if len(report.DuplicateCodes) > 0 {
		logging.Warn("Duplicate RUG codes detected",
			"total", len(report.DuplicateCodes),
			"codes", report.DuplicateCodes,
		)
	}

	if report.EmptyCodes > 0 {
		logging.Warn("Records without a RUG code", "count", report.EmptyCodes)
	}

	if len(report.EmptyCategories) > 0 {
		logging.Warn("Records with an empty category",
			"count", len(report.EmptyCategories),
			"codes", report.EmptyCategories,
		)
	}

	if len(report.InvalidRecords) > 0 {
		logging.Warn("Records unusable as format rows",
			"count", len(report.InvalidRecords),
			"errors", report.InvalidRecords,
		)
	}

	if len(report.MalformedCodes) > 0 {
		logging.Warn("RUG codes with an unexpected shape",
			"count", len(report.MalformedCodes),
			"codes", report.MalformedCodes,
		)
	}

	// The first marker in priority order wins for these
	if len(report.AmbiguousLabels) > 0 {
		logging.Warn("Descriptions carrying several tier markers",
			"count", len(report.AmbiguousLabels),
			"codes", report.AmbiguousLabels,
		)
	}

	logging.Debug("Tier distribution", "tiers", report.TierCounts, "other_fraction", report.OtherTierFraction)
}

func recordSuccess(result *interfaces.RunResult) {
	metrics.PipelineDuration.Observe(result.Duration.Seconds())
	metrics.LastSuccess.Set(float64(result.FinishedAt.Unix()))
	for _, tier := range entities.Tiers {
		metrics.RecordsByTier.WithLabelValues(string(tier)).Set(float64(result.Report.TierCounts[tier]))
	}
}
