package domain

import (
	"strconv"
	"strings"
	"time"
)

// Field bounds enforced by Validate.
const (
	MinWeightKg   = 0.1
	MaxWeightKg   = 1000.0
	MinQuantity   = 1
	MaxQuantity   = 10000
	NotesSentinel = "N/A"
	DateLayout    = "2006-01-02"
	VarietyOther  = "Other"
)

// RawRecord is a crate description as supplied by a caller, before validation.
// Enumerations and dates are carried as text.
type RawRecord struct {
	FarmName         string  `json:"farm_name,omitempty" yaml:"farm_name" doc:"Farm name" example:"Sunny Valley Orchards"`
	FarmLocation     string  `json:"farm_location,omitempty" yaml:"farm_location" doc:"Farm location" example:"California, USA"`
	Variety          string  `json:"variety,omitempty" yaml:"variety" doc:"Orange variety or Other" example:"Valencia"`
	VarietyOther     string  `json:"variety_other,omitempty" yaml:"variety_other" doc:"Free-text variety when variety is Other"`
	WeightKg         float64 `json:"weight_kg,omitempty" yaml:"weight_kg" example:"20"`
	QuantityPieces   int     `json:"quantity_pieces,omitempty" yaml:"quantity_pieces" example:"100"`
	QualityGrade     string  `json:"quality_grade,omitempty" yaml:"quality_grade" example:"Premium"`
	HarvestDate      string  `json:"harvest_date,omitempty" yaml:"harvest_date" example:"2024-05-01"`
	OrganicCertified bool    `json:"organic_certified,omitempty" yaml:"organic_certified"`
	Notes            string  `json:"notes,omitempty" yaml:"notes"`
}

// Record is a validated, normalized crate.
type Record struct {
	FarmName         string    `json:"farm_name"`
	FarmLocation     string    `json:"farm_location"`
	Variety          Variety   `json:"variety"`
	WeightKg         float64   `json:"weight_kg"`
	QuantityPieces   int       `json:"quantity_pieces"`
	QualityGrade     Grade     `json:"quality_grade"`
	HarvestDate      time.Time `json:"harvest_date"`
	OrganicCertified bool      `json:"organic_certified"`
	Notes            string    `json:"notes"`
}

// Raw converts the record back into caller input form. Validate(r.Raw())
// yields r again.
func (r Record) Raw() RawRecord {
	raw := RawRecord{
		FarmName:         r.FarmName,
		FarmLocation:     r.FarmLocation,
		WeightKg:         r.WeightKg,
		QuantityPieces:   r.QuantityPieces,
		QualityGrade:     r.QualityGrade.Token(),
		HarvestDate:      r.HarvestDate.Format(DateLayout),
		OrganicCertified: r.OrganicCertified,
		Notes:            r.Notes,
	}
	if r.Variety.IsCustom() {
		raw.Variety = VarietyOther
		raw.VarietyOther = r.Variety.Custom
	} else {
		raw.Variety = r.Variety.Kind.Token()
	}
	return raw
}

// OrganicLabel renders the organic flag the way payloads and labels show it.
func (r Record) OrganicLabel() string {
	if r.OrganicCertified {
		return "Yes"
	}
	return "No"
}

// FormatWeight renders a weight with at least one fractional digit, so 20
// prints as "20.0" and 20.25 as "20.25".
func FormatWeight(kg float64) string {
	s := strconv.FormatFloat(kg, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
