package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"cratetag/internal/domain"
)

// recordFlags collects a raw record from --input and the per-field flags.
// Flags override the file; the file overrides the form defaults.
type recordFlags struct {
	input string
	raw   domain.RawRecord
}

func (f *recordFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.input, "input", "", "read the record from a JSON or YAML file")
	fs.StringVar(&f.raw.FarmName, "farm-name", "", "farm name")
	fs.StringVar(&f.raw.FarmLocation, "farm-location", "", "farm location")
	fs.StringVar(&f.raw.Variety, "variety", "Valencia", "variety: Valencia, Navel, BloodOrange, Mandarin, Clementine, Tangerine, CaraCara or Other")
	fs.StringVar(&f.raw.VarietyOther, "variety-other", "", "variety name when --variety=Other")
	fs.Float64Var(&f.raw.WeightKg, "weight", 20.0, "weight in kg (0.1-1000)")
	fs.IntVar(&f.raw.QuantityPieces, "quantity", 100, "number of pieces (1-10000)")
	fs.StringVar(&f.raw.QualityGrade, "grade", "Premium", "quality grade: Premium, GradeA, GradeB, GradeC")
	fs.StringVar(&f.raw.HarvestDate, "harvest-date", "", "harvest date YYYY-MM-DD (default today)")
	fs.BoolVar(&f.raw.OrganicCertified, "organic", false, "organic certified")
	fs.StringVar(&f.raw.Notes, "notes", "", "additional notes")
}

var recordFlagNames = []string{
	"farm-name", "farm-location", "variety", "variety-other", "weight",
	"quantity", "grade", "harvest-date", "organic", "notes",
}

// resolve builds the raw record. today supplies the default harvest date.
func (f *recordFlags) resolve(cmd *cobra.Command, today time.Time) (domain.RawRecord, error) {
	raw := domain.RawRecord{
		Variety:        "Valencia",
		WeightKg:       20.0,
		QuantityPieces: 100,
		QualityGrade:   "Premium",
		HarvestDate:    today.Format(domain.DateLayout),
	}
	if f.input != "" {
		data, err := os.ReadFile(f.input)
		if err != nil {
			return raw, err
		}
		// JSON documents are valid YAML.
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return raw, fmt.Errorf("parse %s: %w", f.input, err)
		}
	}
	for _, name := range recordFlagNames {
		if cmd.Flags().Changed(name) {
			applyFlag(&raw, f.raw, name)
		}
	}
	return raw, nil
}

func applyFlag(dst *domain.RawRecord, src domain.RawRecord, name string) {
	switch name {
	case "farm-name":
		dst.FarmName = src.FarmName
	case "farm-location":
		dst.FarmLocation = src.FarmLocation
	case "variety":
		dst.Variety = src.Variety
	case "variety-other":
		dst.VarietyOther = src.VarietyOther
	case "weight":
		dst.WeightKg = src.WeightKg
	case "quantity":
		dst.QuantityPieces = src.QuantityPieces
	case "grade":
		dst.QualityGrade = src.QualityGrade
	case "harvest-date":
		dst.HarvestDate = src.HarvestDate
	case "organic":
		dst.OrganicCertified = src.OrganicCertified
	case "notes":
		dst.Notes = src.Notes
	}
}
