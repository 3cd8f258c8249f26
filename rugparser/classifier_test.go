package rugparser

import (
	"slices"
	"testing"

	"github.com/giygas/rug-formats/rugparser/entities"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		raw          string
		wantCategory string
		wantTier     entities.Tier
	}{
		{"Medium Rehabilitation - High Acuity", "Rehabilitation", entities.TierMedium},
		{"Other Services", "Other Services", entities.TierOther},
		{"  Other Services  ", "Other Services", entities.TierOther},
		{"High Rehabilitation Plus Extensive Services", "Rehabilitation Plus Extensive Services", entities.TierHigh},
		{"High Rehabilitation", "Rehabilitation", entities.TierHigh},
		{"Very-High Rehabilitation Plus Extensive Services", "Rehabilitation Plus Extensive Services", entities.TierVeryHigh},
		{"Ultra-High Rehabilitation - ADL 11-16", "Rehabilitation", entities.TierUltraHigh},
		{"Rehabilitation, Very-High", "Rehabilitation, Very-High", entities.TierVeryHigh},
		{"Rehabilitation - Ultra-High Intensity", "Rehabilitation", entities.TierUltraHigh},
		{"Extensive Services - Tracheostomy & Ventilator", "Extensive Services", entities.TierOther},
		{"Special Care High - ADL 15-16", "Special Care High", entities.TierOther},
		{"Highly Complex", "Highly Complex", entities.TierHigh},
		{"Medium", "Medium", entities.TierMedium},
		{" Medium Rehabilitation", "Medium Rehabilitation", entities.TierOther},
		{"", "", entities.TierOther},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			got := Classify("RXX", tc.raw)
			if got.Category != tc.wantCategory {
				t.Errorf("Classify(%q) category = %q, want %q", tc.raw, got.Category, tc.wantCategory)
			}
			if got.Group != tc.wantTier {
				t.Errorf("Classify(%q) tier = %q, want %q", tc.raw, got.Group, tc.wantTier)
			}
			if got.Code != "RXX" || got.RawLabel != tc.raw {
				t.Errorf("Classify(%q) did not keep code and raw label: %+v", tc.raw, got)
			}
		})
	}
}

func TestClassifyCategoryStopsAtFirstSeparator(t *testing.T) {
	got := Classify("RUA", "Rehabilitation - ADL 2-5 - Nursing")
	if got.Category != "Rehabilitation" {
		t.Errorf("Expected category before first separator, got %q", got.Category)
	}

	// a hyphen without a leading space is not a separator
	got = Classify("CA1", "Clinically-Complex")
	if got.Category != "Clinically-Complex" {
		t.Errorf("Expected hyphenated word to be kept, got %q", got.Category)
	}
}

func TestClassifyRemovesEveryMarkerOccurrence(t *testing.T) {
	got := Classify("RMA", "Medium Medium Rehabilitation")
	if got.Category != "Rehabilitation" {
		t.Errorf("Expected every %q to be removed, got %q", "Medium ", got.Category)
	}
}

func TestClassifyAllKeepsOrderAndLength(t *testing.T) {
	source := []entities.SourceRecord{
		{RUG: "RUX", Description: "Ultra-High Rehabilitation Plus Extensive Services"},
		{RUG: "ES3", Description: "Extensive Services"},
		{RUG: "ES3", Description: "Extensive Services"},
		{RUG: "RMA", Description: "Medium Rehabilitation"},
	}

	records := ClassifyAll(source)
	if len(records) != len(source) {
		t.Fatalf("Expected %d records, got %d", len(source), len(records))
	}
	for i := range source {
		if records[i].Code != source[i].RUG {
			t.Errorf("record %d: expected code %s, got %s", i, source[i].RUG, records[i].Code)
		}
	}

	if got := ClassifyAll(nil); len(got) != 0 {
		t.Errorf("Expected no records, got %d", len(got))
	}
}

func TestTierMarkers(t *testing.T) {
	testCases := []struct {
		raw  string
		want []entities.Tier
	}{
		{"Extensive Services", nil},
		{"Very-High Rehabilitation", []entities.Tier{entities.TierVeryHigh}},
		{"Ultra-High Rehabilitation", []entities.Tier{entities.TierUltraHigh}},
		{"Medium Rehabilitation - High Acuity", []entities.Tier{entities.TierMedium, entities.TierHigh}},
		{"High Rehabilitation - Ultra-High ADL", []entities.Tier{entities.TierHigh, entities.TierUltraHigh}},
	}

	for _, tc := range testCases {
		if got := TierMarkers(tc.raw); !slices.Equal(got, tc.want) {
			t.Errorf("TierMarkers(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}
