// Package payload produces the canonical text embedded in a crate's QR code
// and exported as <id>_Data.json.
//
// The encoding is an indented JSON object whose keys always appear in the
// order of Keys. Values are fully determined by the record, identifier and
// generation time, so two renders of the same crate are byte-identical.
package payload

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"time"

	"cratetag/internal/domain"
	"cratetag/internal/ident"
)

const (
	GeneratedLayout = "2006-01-02 15:04:05"
	OmittedNotes    = "[omitted]"
)

// Canonical key names, in encoding order.
const (
	KeyCrateID        = "CrateID"
	KeyFarmName       = "FarmName"
	KeyFarmLocation   = "FarmLocation"
	KeyVariety        = "Variety"
	KeyWeightKg       = "WeightKg"
	KeyQuantityPieces = "QuantityPieces"
	KeyQualityGrade   = "QualityGrade"
	KeyHarvestDate    = "HarvestDate"
	KeyOrganic        = "Organic"
	KeyGeneratedOn    = "GeneratedOn"
	KeyNotes          = "Notes"
)

// Keys lists the canonical keys in order.
var Keys = []string{
	KeyCrateID, KeyFarmName, KeyFarmLocation, KeyVariety, KeyWeightKg, KeyQuantityPieces,
	KeyQualityGrade, KeyHarvestDate, KeyOrganic, KeyGeneratedOn, KeyNotes,
}

// Options tweak serialization. The zero value is the canonical form.
type Options struct {
	// OmitNotes replaces the notes value with OmittedNotes. It exists only
	// for the explicit QR capacity fallback and is never applied implicitly.
	OmitNotes bool
}

type value struct {
	text    string
	numeric bool
}

// Serialize returns the canonical payload for rec. generatedAt is formatted
// in its own location; callers choose the zone.
func Serialize(rec domain.Record, id ident.Identifier, generatedAt time.Time, opts Options) string {
	notes := rec.Notes
	if opts.OmitNotes {
		notes = OmittedNotes
	}
	vals := []value{
		{text: id.String()},
		{text: rec.FarmName},
		{text: rec.FarmLocation},
		{text: rec.Variety.String()},
		{text: domain.FormatWeight(rec.WeightKg), numeric: true},
		{text: strconv.Itoa(rec.QuantityPieces), numeric: true},
		{text: rec.QualityGrade.String()},
		{text: rec.HarvestDate.Format(domain.DateLayout)},
		{text: rec.OrganicLabel()},
		{text: generatedAt.Format(GeneratedLayout)},
		{text: notes},
	}

	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, k := range Keys {
		buf.WriteString("  ")
		writeString(&buf, k)
		buf.WriteString(": ")
		if vals[i].numeric {
			buf.WriteString(vals[i].text)
		} else {
			writeString(&buf, vals[i].text)
		}
		if i < len(Keys)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}")
	return buf.String()
}

func writeString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	buf.Truncate(buf.Len() - 1)
}

// Digest is a hex sha256 fingerprint of a payload.
func Digest(payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
