// Package formats projects classified crosswalk records onto the two
// formatted-value tables, rugcat (code to category) and ruggroup (code to tier).
package formats

import (
	"github.com/giygas/rug-formats/rugparser/entities"
)

// Project builds a format table with one row per record, in record order.
func Project(name string, records []entities.RUGRecord, label func(entities.RUGRecord) string) entities.FormatTable {
	rows := make([]entities.FormatRow, len(records))
	for i, r := range records {
		rows[i] = entities.FormatRow{
			Start:   r.Code,
			Label:   label(r),
			FmtName: name,
			Type:    entities.CharacterFormatType,
		}
	}
	return entities.FormatTable{Name: name, Rows: rows}
}

// BuildFormatTables returns the category and group lookups for the records.
// Both tables have exactly len(records) rows; duplicates are kept.
func BuildFormatTables(records []entities.RUGRecord) (rugcat, ruggroup entities.FormatTable) {
	rugcat = Project(entities.CategoryFormat, records, func(r entities.RUGRecord) string {
		return r.Category
	})
	ruggroup = Project(entities.GroupFormat, records, func(r entities.RUGRecord) string {
		return string(r.Group)
	})
	return rugcat, ruggroup
}
