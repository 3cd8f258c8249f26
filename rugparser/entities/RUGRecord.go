package entities

// Tier is the ADL/therapy intensity level derived from a RUG description.
type Tier string

const (
	TierMedium    Tier = "Medium"
	TierHigh      Tier = "High"
	TierVeryHigh  Tier = "Very-High"
	TierUltraHigh Tier = "Ultra-High"
	TierOther     Tier = "Other"
)

// Tiers lists every tier in classification priority order, Other last.
var Tiers = []Tier{TierMedium, TierHigh, TierVeryHigh, TierUltraHigh, TierOther}

// RUGRecord is a crosswalk row after classification.
// Category is the cleaned short label, Group the tier it belongs to.
type RUGRecord struct {
	Code     string `json:"rug"`
	RawLabel string `json:"rugDescription"`
	Category string `json:"rugCategory"`
	Group    Tier   `json:"rugGroup"`
}
