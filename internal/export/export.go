// Package export builds the downloadable files for an assembled crate:
// <id>_QR.png, <id>_Label.txt and <id>_Data.json.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cratetag/internal/assemble"
	"cratetag/internal/ident"
	"cratetag/internal/logging"
	"cratetag/internal/payload"
	"cratetag/internal/qr"
)

// Policy decides what happens when the payload does not fit in a QR code.
type Policy string

const (
	// PolicyFail surfaces qr.ErrPayloadTooLarge to the caller.
	PolicyFail Policy = "fail"
	// PolicyOmitNotes renders the QR code from a payload whose notes are
	// replaced by payload.OmittedNotes. The data file keeps the full payload.
	PolicyOmitNotes Policy = "omit-notes"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyFail:
		return PolicyFail, nil
	case PolicyOmitNotes:
		return PolicyOmitNotes, nil
	}
	return "", fmt.Errorf("unknown payload policy %q (want fail or omit-notes)", s)
}

const (
	ContentTypePNG  = "image/png"
	ContentTypeText = "text/plain"
	ContentTypeJSON = "application/json"
)

type File struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// Set is the files for one bundle.
type Set struct {
	Files []File `json:"files"`
	// Degraded is true when the QR code was rendered from a reduced payload.
	Degraded bool `json:"degraded"`
	// QRPayload is the text actually encoded in the QR image.
	QRPayload string `json:"-"`
}

// Names returns the export file names for id.
func Names(id ident.Identifier) (qrName, labelName, dataName string) {
	return id.String() + "_QR.png", id.String() + "_Label.txt", id.String() + "_Data.json"
}

type Builder struct {
	Encoder qr.Encoder
	Policy  Policy
	Logger  logging.Logger
}

// Build renders the QR image and packages the three files.
func (b Builder) Build(ctx context.Context, bundle assemble.Bundle) (Set, error) {
	enc := b.Encoder
	if enc == nil {
		enc = qr.PNGEncoder{}
	}
	qrPayload := bundle.Payload
	degraded := false
	img, err := enc.Encode(qrPayload)
	if errors.Is(err, qr.ErrPayloadTooLarge) && b.Policy == PolicyOmitNotes {
		qrPayload = bundle.Reserialize(payload.Options{OmitNotes: true})
		degraded = true
		b.logger().Warn(ctx, "qr payload too large, notes omitted from qr code",
			"id", bundle.ID.String(), "payload_bytes", len(bundle.Payload), "reduced_bytes", len(qrPayload))
		img, err = enc.Encode(qrPayload)
	}
	if err != nil {
		return Set{}, fmt.Errorf("render qr for %s: %w", bundle.ID, err)
	}
	qrName, labelName, dataName := Names(bundle.ID)
	return Set{
		Files: []File{
			{Name: qrName, ContentType: ContentTypePNG, Data: img},
			{Name: labelName, ContentType: ContentTypeText, Data: []byte(bundle.Label)},
			{Name: dataName, ContentType: ContentTypeJSON, Data: []byte(bundle.Payload)},
		},
		Degraded:  degraded,
		QRPayload: qrPayload,
	}, nil
}

func (b Builder) logger() logging.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return logging.Discard()
}

// EnsureDir creates dir if missing.
func EnsureDir(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return dir, nil
}

// WriteDir writes every file of set into dir and returns their paths.
func WriteDir(dir string, set Set) ([]string, error) {
	dir, err := EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(set.Files))
	for _, f := range set.Files {
		p := filepath.Join(dir, f.Name)
		if err := os.WriteFile(p, f.Data, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", p, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}
