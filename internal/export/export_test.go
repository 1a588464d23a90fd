package export

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cratetag/internal/assemble"
	"cratetag/internal/domain"
	"cratetag/internal/payload"
	"cratetag/internal/qr"
)

type recordingEncoder struct {
	limit    int
	payloads []string
}

func (e *recordingEncoder) Encode(p string) ([]byte, error) {
	e.payloads = append(e.payloads, p)
	if len(p) > e.limit {
		return nil, &qr.CapacityError{Len: len(p), Max: e.limit, Level: qr.LevelHighest}
	}
	return []byte("png:" + p), nil
}

func bundle(t *testing.T, notes string) assemble.Bundle {
	t.Helper()
	a := assemble.New(time.UTC, nil)
	a.IDs.Rand = bytes.NewReader(bytes.Repeat([]byte{0x5A}, 16))
	a.Now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	b, err := a.Assemble(context.Background(), domain.RawRecord{
		FarmName:       "Sunny Valley Orchards",
		FarmLocation:   "California, USA",
		Variety:        "Navel",
		WeightKg:       18.5,
		QuantityPieces: 90,
		QualityGrade:   "Grade A",
		HarvestDate:    "2024-04-28",
		Notes:          notes,
	})
	require.NoError(t, err)
	return b
}

func TestBuildNames(t *testing.T) {
	b := bundle(t, "")
	set, err := Builder{Encoder: &recordingEncoder{limit: 4096}}.Build(context.Background(), b)
	require.NoError(t, err)
	require.Len(t, set.Files, 3)
	assert.Equal(t, "ORC-20240501-5A5A5A5A_QR.png", set.Files[0].Name)
	assert.Equal(t, "ORC-20240501-5A5A5A5A_Label.txt", set.Files[1].Name)
	assert.Equal(t, "ORC-20240501-5A5A5A5A_Data.json", set.Files[2].Name)
	assert.Equal(t, b.Label, string(set.Files[1].Data))
	assert.Equal(t, b.Payload, string(set.Files[2].Data))
	assert.False(t, set.Degraded)
	assert.Equal(t, b.Payload, set.QRPayload)
}

func TestBuildFailPolicySurfacesCapacity(t *testing.T) {
	b := bundle(t, strings.Repeat("long remark ", 40))
	enc := &recordingEncoder{limit: 400}
	_, err := Builder{Encoder: enc, Policy: PolicyFail}.Build(context.Background(), b)
	assert.True(t, errors.Is(err, qr.ErrPayloadTooLarge), "err = %v", err)
	assert.Len(t, enc.payloads, 1, "fail policy must not retry with a reduced payload")
}

func TestBuildOmitNotesFallback(t *testing.T) {
	b := bundle(t, strings.Repeat("long remark ", 40))
	enc := &recordingEncoder{limit: 400}
	set, err := Builder{Encoder: enc, Policy: PolicyOmitNotes}.Build(context.Background(), b)
	require.NoError(t, err)
	assert.True(t, set.Degraded)
	assert.Contains(t, set.QRPayload, payload.OmittedNotes)
	assert.NotContains(t, set.QRPayload, "long remark")
	// The data export keeps the full canonical payload.
	assert.Equal(t, b.Payload, string(set.Files[2].Data))
	assert.Contains(t, string(set.Files[1].Data), "long remark")
}

func TestBuildOmitNotesStillTooLarge(t *testing.T) {
	b := bundle(t, "tiny")
	_, err := Builder{Encoder: &recordingEncoder{limit: 10}, Policy: PolicyOmitNotes}.Build(context.Background(), b)
	assert.ErrorIs(t, err, qr.ErrPayloadTooLarge)
}

func TestBuildRealEncoderAndWriteDir(t *testing.T) {
	b := bundle(t, "keep cool")
	set, err := Builder{}.Build(context.Background(), b)
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(set.Files[0].Data))
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out", "crates")
	paths, err := WriteDir(dir, set)
	require.NoError(t, err)
	require.Len(t, paths, 3)
	data, err := os.ReadFile(filepath.Join(dir, b.ID.String()+"_Data.json"))
	require.NoError(t, err)
	assert.Equal(t, b.Payload, string(data))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyFail, p)
	p, err = ParsePolicy("Omit-Notes")
	require.NoError(t, err)
	assert.Equal(t, PolicyOmitNotes, p)
	_, err = ParsePolicy("truncate")
	assert.Error(t, err)
}
