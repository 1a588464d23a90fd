// Package assemble turns a raw crate record into its artifact bundle.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cratetag/internal/domain"
	"cratetag/internal/ident"
	"cratetag/internal/label"
	"cratetag/internal/logging"
	"cratetag/internal/payload"
)

// Stage is where an invocation ended up.
type Stage string

const (
	StageValidated Stage = "validated"
	StageAssembled Stage = "assembled"
	StageRejected  Stage = "rejected"
)

// Bundle holds the artifacts generated for one record. The assembler keeps no
// reference to it.
type Bundle struct {
	ID          ident.Identifier `json:"id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Record      domain.Record    `json:"record"`
	Payload     string           `json:"payload"`
	Label       string           `json:"label"`
}

// Preview returns the display listing of the bundle with notes cut at width.
func (b Bundle) Preview(width int) []label.Row {
	return label.Preview(b.Record, b.ID, b.GeneratedAt, width)
}

// Reserialize renders the payload again with opts. With zero options the
// result equals b.Payload.
func (b Bundle) Reserialize(opts payload.Options) string {
	return payload.Serialize(b.Record, b.ID, b.GeneratedAt, opts)
}

// Assembler runs validation, identifier synthesis, serialization and label
// formatting. It holds no mutable state and is safe for concurrent use.
type Assembler struct {
	IDs      ident.Synthesizer
	Location *time.Location
	Now      func() time.Time
	Logger   logging.Logger
}

func New(loc *time.Location, logger logging.Logger) Assembler {
	return Assembler{
		IDs:      ident.Synthesizer{Location: loc},
		Location: loc,
		Now:      time.Now,
		Logger:   logger,
	}
}

func (a Assembler) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a Assembler) location() *time.Location {
	if a.Location != nil {
		return a.Location
	}
	return time.UTC
}

func (a Assembler) logger() logging.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return logging.Discard()
}

// Assemble validates raw and builds its bundle. A validation failure is
// returned as the *domain.ValidationError from domain.Validate, and no
// identifier is drawn. The clock is read once; the payload and the label
// share that reading.
func (a Assembler) Assemble(ctx context.Context, raw domain.RawRecord) (Bundle, error) {
	rec, err := domain.Validate(raw)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			a.logger().Debug(ctx, "crate rejected", "stage", StageRejected, "field", ve.Field, "kind", ve.Kind)
		}
		return Bundle{}, err
	}
	a.logger().Debug(ctx, "crate validated", "stage", StageValidated, "farm", rec.FarmName)
	return a.assembleRecord(ctx, rec)
}

// AssembleRecord builds the bundle for an already validated record.
func (a Assembler) AssembleRecord(ctx context.Context, rec domain.Record) (Bundle, error) {
	return a.assembleRecord(ctx, rec)
}

func (a Assembler) assembleRecord(ctx context.Context, rec domain.Record) (Bundle, error) {
	at := a.now().In(a.location())
	ids := a.IDs
	if ids.Location == nil {
		ids.Location = a.location()
	}
	id, err := ids.Synthesize(at)
	if err != nil {
		return Bundle{}, fmt.Errorf("synthesize crate id: %w", err)
	}
	b := Bundle{
		ID:          id,
		GeneratedAt: at,
		Record:      rec,
		Payload:     payload.Serialize(rec, id, at, payload.Options{}),
		Label:       label.Format(rec, id, at),
	}
	a.logger().Info(ctx, "crate assembled",
		"stage", StageAssembled,
		"id", id.String(),
		"variety", rec.Variety.String(),
		"grade", rec.QualityGrade.String(),
	)
	return b, nil
}
