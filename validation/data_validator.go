// Package validation provides data quality checks for the RUG-IV crosswalk.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/giygas/rug-formats/interfaces"
	"github.com/giygas/rug-formats/rugparser"
	"github.com/giygas/rug-formats/rugparser/entities"
)

var (
	// RUG-IV codes: two letters then one to three letters or digits (RUX, ES3, PA1, RUA1)
	codeRegex = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{1,3}$`)

	// user supplied codes are upper-cased before matching
	inputRegex = regexp.MustCompile(`^[A-Za-z0-9]{3,5}$`)
)

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct{}

// NewDataValidator creates a new data validator
func NewDataValidator() interfaces.DataValidator {
	return &DataValidatorImpl{}
}

// ValidateRecord checks if a classified record is usable as a format row
func (v *DataValidatorImpl) ValidateRecord(r *entities.RUGRecord) error {
	if r == nil {
		return fmt.Errorf("record is nil")
	}

	if strings.TrimSpace(r.Code) == "" {
		return fmt.Errorf("empty RUG code for description %q", r.RawLabel)
	}

	if !codeRegex.MatchString(r.Code) {
		return fmt.Errorf("malformed RUG code %q", r.Code)
	}

	if r.Category == "" {
		return fmt.Errorf("empty category for RUG %s", r.Code)
	}

	// SAS character formats cap labels at 32767 bytes
	if len(r.Category) > 32767 {
		return fmt.Errorf("category too long for RUG %s: %d characters", r.Code, len(r.Category))
	}

	return nil
}

// ReportDataQuality generates a data quality report with all issues found.
// Nothing is dropped: both format tables keep one row per source record.
func (v *DataValidatorImpl) ReportDataQuality(records []entities.RUGRecord) *interfaces.DataQualityReport {
	report := &interfaces.DataQualityReport{
		TotalRecords: len(records),
		TierCounts:   make(map[entities.Tier]int, len(entities.Tiers)),
	}
	for _, tier := range entities.Tiers {
		report.TierCounts[tier] = 0
	}

	seen := make(map[string]int, len(records))
	for i := range records {
		r := &records[i]
		report.TierCounts[r.Group]++

		if err := v.ValidateRecord(r); err != nil {
			report.InvalidRecords = append(report.InvalidRecords, err.Error())
		}

		if strings.TrimSpace(r.Code) == "" {
			report.EmptyCodes++
			continue
		}

		seen[r.Code]++
		if seen[r.Code] == 2 {
			report.DuplicateCodes = append(report.DuplicateCodes, r.Code)
		}

		if !codeRegex.MatchString(r.Code) {
			report.MalformedCodes = append(report.MalformedCodes, r.Code)
		}

		if r.Category == "" {
			report.EmptyCategories = append(report.EmptyCategories, r.Code)
		}

		if len(rugparser.TierMarkers(r.RawLabel)) > 1 {
			report.AmbiguousLabels = append(report.AmbiguousLabels, r.Code)
		}
	}

	if len(records) > 0 {
		report.OtherTierFraction = float64(report.TierCounts[entities.TierOther]) / float64(len(records))
	}

	return report
}

// ValidateCode validates a RUG code taken from user input and returns it upper-cased
func (v *DataValidatorImpl) ValidateCode(input string) (string, error) {
	if !inputRegex.MatchString(input) {
		return "", fmt.Errorf("input must be 3 to 5 letters or digits")
	}
	return strings.ToUpper(input), nil
}
