package rugparser

import (
	"slices"
	"strings"

	"github.com/giygas/rug-formats/rugparser/entities"
)

// categorySeparator splits the category from its ADL/therapy qualifier,
// e.g. "Rehabilitation - High Acuity".
const categorySeparator = " -"

// tierRule maps a marker in the raw description to a tier.
// Prefix rules only look at the start of the description so that "High"
// does not match inside "Very-High" or "Ultra-High".
type tierRule struct {
	tier   entities.Tier
	marker string
	prefix bool
}

var tierRules = []tierRule{
	{tier: entities.TierMedium, marker: "Medium", prefix: true},
	{tier: entities.TierHigh, marker: "High", prefix: true},
	{tier: entities.TierVeryHigh, marker: "Very-High"},
	{tier: entities.TierUltraHigh, marker: "Ultra-High"},
}

func (r tierRule) matches(label string) bool {
	if r.prefix {
		return strings.HasPrefix(label, r.marker)
	}
	return strings.Contains(label, r.marker)
}

// Classify derives the category and tier of a single crosswalk row.
// It has no side effects and never fails: unknown descriptions fall back to
// TierOther with the trimmed description as category.
func Classify(code, rawLabel string) entities.RUGRecord {
	category := strings.TrimSpace(rawLabel)
	if i := strings.Index(rawLabel, categorySeparator); i != -1 {
		category = strings.TrimSpace(rawLabel[:i])
	}

	tier := entities.TierOther
	for _, rule := range tierRules {
		if rule.matches(rawLabel) {
			tier = rule.tier
			category = strings.ReplaceAll(category, rule.marker+" ", "")
			break
		}
	}

	return entities.RUGRecord{
		Code:     code,
		RawLabel: rawLabel,
		Category: category,
		Group:    tier,
	}
}

// ClassifyAll classifies every source row, keeping input order and length.
func ClassifyAll(source []entities.SourceRecord) []entities.RUGRecord {
	records := make([]entities.RUGRecord, 0, len(source))
	for _, src := range source {
		records = append(records, Classify(src.RUG, src.Description))
	}
	return records
}

// TierMarkers returns every tier marker found anywhere in the description,
// in priority order. Longer markers are consumed first so that the "High"
// inside "Very-High" is not reported twice.
// More than one marker means the priority order decided the tier.
func TierMarkers(rawLabel string) []entities.Tier {
	rest := rawLabel
	var found []entities.Tier
	for i := len(tierRules) - 1; i >= 0; i-- {
		rule := tierRules[i]
		if strings.Contains(rest, rule.marker) {
			found = append(found, rule.tier)
			rest = strings.ReplaceAll(rest, rule.marker, "")
		}
	}
	slices.Reverse(found)
	return found
}
