package domain

import (
	"strings"
	"time"
)

// Validate checks raw against the field constraints and returns the
// normalized record. It is pure: the same input always gives the same result,
// and Validate(rec.Raw()) returns rec unchanged.
func Validate(raw RawRecord) (Record, error) {
	if strings.TrimSpace(raw.FarmName) == "" {
		return Record{}, missing("farmName")
	}
	if strings.TrimSpace(raw.FarmLocation) == "" {
		return Record{}, missing("farmLocation")
	}
	variety, err := validateVariety(raw.Variety, raw.VarietyOther)
	if err != nil {
		return Record{}, err
	}
	// Written as a negated range check so NaN is rejected too.
	if !(raw.WeightKg >= MinWeightKg && raw.WeightKg <= MaxWeightKg) {
		return Record{}, outOfRange("weightKg", raw.WeightKg)
	}
	if raw.QuantityPieces < MinQuantity || raw.QuantityPieces > MaxQuantity {
		return Record{}, outOfRange("quantityPieces", raw.QuantityPieces)
	}
	grade, ok := ParseGrade(raw.QualityGrade)
	if !ok {
		return Record{}, invalidEnum("qualityGrade", raw.QualityGrade)
	}
	harvest, err := parseHarvestDate(raw.HarvestDate)
	if err != nil {
		return Record{}, err
	}
	return Record{
		FarmName:         raw.FarmName,
		FarmLocation:     raw.FarmLocation,
		Variety:          variety,
		WeightKg:         raw.WeightKg,
		QuantityPieces:   raw.QuantityPieces,
		QualityGrade:     grade,
		HarvestDate:      harvest,
		OrganicCertified: raw.OrganicCertified,
		Notes:            normalizeNotes(raw.Notes),
	}, nil
}

func validateVariety(name, other string) (Variety, error) {
	if strings.EqualFold(strings.TrimSpace(name), VarietyOther) {
		custom := strings.TrimSpace(other)
		if custom == "" {
			return Variety{}, invalidEnum("variety", name)
		}
		return Custom(custom), nil
	}
	kind, ok := ParseVarietyKind(name)
	if !ok {
		return Variety{}, invalidEnum("variety", name)
	}
	return Known(kind), nil
}

func parseHarvestDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, missing("harvestDate")
	}
	if d, err := time.Parse(DateLayout, s); err == nil {
		return d, nil
	}
	// Full timestamps are accepted and reduced to their calendar date.
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, &ValidationError{Kind: InvalidFormat, Field: "harvestDate", Value: s}
}

func normalizeNotes(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return NotesSentinel
	}
	return s
}
