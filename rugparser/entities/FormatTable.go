package entities

const (
	// CategoryFormat is the format name of the code to category lookup
	CategoryFormat = "rugcat"
	// GroupFormat is the format name of the code to tier lookup
	GroupFormat = "ruggroup"
	// CharacterFormatType marks a character (not numeric) format in CNTLIN data
	CharacterFormatType = "C"
)

// FormatRow is one row of a formatted-value table in CNTLIN layout.
type FormatRow struct {
	Start   string `json:"start"`
	Label   string `json:"label"`
	FmtName string `json:"fmtname"`
	Type    string `json:"type"`
}

// FormatTable is a named lookup table pushed to a format store.
type FormatTable struct {
	Name string      `json:"name"`
	Rows []FormatRow `json:"rows"`
}

// FormatColumns is the CNTLIN column order shared by every format table.
var FormatColumns = []string{"start", "label", "fmtname", "type"}
