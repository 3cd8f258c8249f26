package entities

// SourceRecord is one row of the CMS crosswalk as returned by the Socrata API.
type SourceRecord struct {
	RUG         string `json:"rug"`
	Description string `json:"rug_description"`
}
