// Package exporter writes the classified crosswalk and its format tables to
// files, SQL databases and object storage.
package exporter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/giygas/rug-formats/interfaces"
	"github.com/giygas/rug-formats/logging"
	"github.com/giygas/rug-formats/rugparser/entities"
	"github.com/xuri/excelize/v2"
)

// Compile-time check to ensure ReferenceFiles implements ReferenceWriter
var _ interfaces.ReferenceWriter = (*ReferenceFiles)(nil)

// ReferenceSheet is the worksheet holding the merged crosswalk
const ReferenceSheet = "rugcat and ruggroup"

// referenceHeader is the column layout of the reference copies
var referenceHeader = []string{"RUG", "RUG_Category", "RUG_Group"}

// ReferenceFiles writes the Excel workbook and CSV copy of the crosswalk.
// An empty path disables that file.
type ReferenceFiles struct {
	workbookPath string
	csvPath      string
}

// NewReferenceFiles creates a reference writer for the given paths
func NewReferenceFiles(workbookPath, csvPath string) *ReferenceFiles {
	return &ReferenceFiles{workbookPath: workbookPath, csvPath: csvPath}
}

// WriteReference writes every enabled reference file and returns their paths
func (w *ReferenceFiles) WriteReference(records []entities.RUGRecord) ([]string, error) {
	var written []string

	if w.workbookPath != "" {
		if err := writeWorkbook(w.workbookPath, records); err != nil {
			return written, err
		}
		written = append(written, w.workbookPath)
	}

	if w.csvPath != "" {
		if err := writeReferenceCSV(w.csvPath, records); err != nil {
			return written, err
		}
		written = append(written, w.csvPath)
	}

	logging.Info("Reference files written", "files", written, "records", len(records))
	return written, nil
}

// writeWorkbook writes one sheet with a leading zero-based row index column
func writeWorkbook(path string, records []entities.RUGRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("Failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", ReferenceSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := []any{""}
	for _, col := range referenceHeader {
		header = append(header, col)
	}
	if err := f.SetSheetRow(ReferenceSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetCellStyle(ReferenceSheet, "A1", "D1", bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{i, r.Code, r.Category, string(r.Group)}
		if err := f.SetSheetRow(ReferenceSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	if err := f.SetColWidth(ReferenceSheet, "C", "C", 45); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func writeReferenceCSV(path string, records []entities.RUGRecord) error {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, referenceHeader)
	for _, r := range records {
		rows = append(rows, []string{r.Code, r.Category, string(r.Group)})
	}
	return writeCSV(path, rows)
}

// writeCSV writes rows to path, creating the parent directory
func writeCSV(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}

	w := csv.NewWriter(file)
	if err := w.WriteAll(rows); err != nil {
		file.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
