// Package label renders the printable crate label and the on-screen preview.
package label

import (
	"strconv"
	"strings"
	"time"

	"cratetag/internal/domain"
	"cratetag/internal/ident"
	"cratetag/internal/payload"
)

const (
	Title  = "ORANGE CRATE LABEL"
	Footer = "Scan QR code for full details"
	// RuleWidth is the width of the separator rules.
	RuleWidth = 50
	// DefaultPreviewWidth is the notes cut used by the interactive preview.
	DefaultPreviewWidth = 50
	ellipsis            = "..."
)

var rule = strings.Repeat("=", RuleWidth)

// Format returns the full printable label. Notes are never truncated here.
func Format(rec domain.Record, id ident.Identifier, generatedAt time.Time) string {
	lines := []string{
		Title,
		rule,
		"",
		"Crate ID: " + id.String(),
		"Farm: " + rec.FarmName,
		"Location: " + rec.FarmLocation,
		"Variety: " + rec.Variety.String(),
		"Weight: " + domain.FormatWeight(rec.WeightKg) + " kg",
		"Quantity: " + strconv.Itoa(rec.QuantityPieces) + " pieces",
		"Quality: " + rec.QualityGrade.String(),
		"Harvest Date: " + rec.HarvestDate.Format(domain.DateLayout),
		"Organic: " + rec.OrganicLabel(),
		"",
		"Generated: " + generatedAt.Format(payload.GeneratedLayout),
		"",
		"Notes: " + rec.Notes,
		"",
		rule,
		Footer,
	}
	return strings.Join(lines, "\n") + "\n"
}

// Row is one line of the preview listing.
type Row struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Preview lists the canonical fields for display, cutting notes longer than
// width runes and marking the cut with "...". A width of zero or less
// disables the cut. This is a display transform only; labels and payloads
// always carry the full notes.
func Preview(rec domain.Record, id ident.Identifier, generatedAt time.Time, width int) []Row {
	return []Row{
		{"Crate ID", id.String()},
		{"Farm Name", rec.FarmName},
		{"Farm Location", rec.FarmLocation},
		{"Orange Variety", rec.Variety.String()},
		{"Weight (kg)", domain.FormatWeight(rec.WeightKg)},
		{"Quantity (pieces)", strconv.Itoa(rec.QuantityPieces)},
		{"Quality Grade", rec.QualityGrade.String()},
		{"Harvest Date", rec.HarvestDate.Format(domain.DateLayout)},
		{"Organic", rec.OrganicLabel()},
		{"Generated On", generatedAt.Format(payload.GeneratedLayout)},
		{"Notes", Truncate(rec.Notes, width)},
	}
}

// Truncate shortens s to width runes followed by "..." when it is longer.
func Truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width]) + ellipsis
}

// PreviewText joins preview rows as "Name: value" lines.
func PreviewText(rows []Row) string {
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(r.Name)
		b.WriteString(": ")
		b.WriteString(r.Value)
		b.WriteByte('\n')
	}
	return b.String()
}
