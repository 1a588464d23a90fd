package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"cratetag/internal/domain"
	"cratetag/internal/ident"
)

var ErrMalformed = errors.New("malformed crate payload")

// Field is one key/value pair of a decoded payload. Numbers keep their
// literal text.
type Field struct {
	Key   string
	Value string
}

// Fields is a decoded payload in key order.
type Fields []Field

// Get returns the value for key.
func (f Fields) Get(key string) (string, bool) {
	for _, fld := range f {
		if fld.Key == key {
			return fld.Value, true
		}
	}
	return "", false
}

// Map returns the fields as a plain map.
func (f Fields) Map() map[string]string {
	m := make(map[string]string, len(f))
	for _, fld := range f {
		m[fld.Key] = fld.Value
	}
	return m
}

// Parse decodes canonical payload text. It rejects unknown, missing,
// duplicated or reordered keys and nested values.
func Parse(text string) (Fields, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	fields := make(Fields, 0, len(Keys))
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		key, _ := tok.(string)
		if len(fields) >= len(Keys) || key != Keys[len(fields)] {
			return nil, fmt.Errorf("%w: unexpected key %q at position %d", ErrMalformed, key, len(fields))
		}
		tok, err = dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		var val string
		switch v := tok.(type) {
		case string:
			val = v
		case json.Number:
			val = v.String()
		default:
			return nil, fmt.Errorf("%w: key %q has non-scalar value", ErrMalformed, key)
		}
		fields = append(fields, Field{Key: key, Value: val})
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data", ErrMalformed)
	}
	if len(fields) != len(Keys) {
		return nil, fmt.Errorf("%w: expected %d keys, got %d", ErrMalformed, len(Keys), len(fields))
	}
	return fields, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: expected %q", ErrMalformed, want)
	}
	return nil
}

// Decoded is a payload turned back into typed parts.
type Decoded struct {
	ID          ident.Identifier
	GeneratedAt time.Time
	Record      domain.Record
}

// Decode parses text and rebuilds the record through domain.Validate, so a
// payload that decodes is also a valid record. GeneratedOn carries no zone;
// it is interpreted in loc (UTC when nil).
func Decode(text string, loc *time.Location) (Decoded, error) {
	fields, err := Parse(text)
	if err != nil {
		return Decoded{}, err
	}
	m := fields.Map()
	id, err := ident.Parse(m[KeyCrateID])
	if err != nil {
		return Decoded{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	at, err := time.ParseInLocation(GeneratedLayout, m[KeyGeneratedOn], loc)
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: GeneratedOn: %v", ErrMalformed, err)
	}
	raw, err := rawFromFields(m)
	if err != nil {
		return Decoded{}, err
	}
	rec, err := domain.Validate(raw)
	if err != nil {
		return Decoded{}, err
	}
	return Decoded{ID: id, GeneratedAt: at, Record: rec}, nil
}

func rawFromFields(m map[string]string) (domain.RawRecord, error) {
	raw := domain.RawRecord{
		FarmName:     m[KeyFarmName],
		FarmLocation: m[KeyFarmLocation],
		QualityGrade: m[KeyQualityGrade],
		HarvestDate:  m[KeyHarvestDate],
		Notes:        m[KeyNotes],
	}
	if _, ok := domain.ParseVarietyKind(m[KeyVariety]); ok {
		raw.Variety = m[KeyVariety]
	} else {
		raw.Variety = domain.VarietyOther
		raw.VarietyOther = m[KeyVariety]
	}
	var err error
	if raw.WeightKg, err = strconv.ParseFloat(m[KeyWeightKg], 64); err != nil {
		return raw, fmt.Errorf("%w: WeightKg: %v", ErrMalformed, err)
	}
	if raw.QuantityPieces, err = strconv.Atoi(m[KeyQuantityPieces]); err != nil {
		return raw, fmt.Errorf("%w: QuantityPieces: %v", ErrMalformed, err)
	}
	switch m[KeyOrganic] {
	case "Yes":
		raw.OrganicCertified = true
	case "No":
	default:
		return raw, fmt.Errorf("%w: Organic must be Yes or No", ErrMalformed)
	}
	return raw, nil
}
