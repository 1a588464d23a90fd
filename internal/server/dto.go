package server

import (
	"time"

	"cratetag/internal/assemble"
	"cratetag/internal/export"
	"cratetag/internal/label"
	"cratetag/internal/payload"
)

type CrateResponse struct {
	ID          string        `json:"id" example:"ORC-20240501-ABCD1234"`
	GeneratedAt string        `json:"generated_at" format:"date-time"`
	Payload     string        `json:"payload" doc:"Canonical payload embedded in the QR code"`
	Digest      string        `json:"digest" doc:"sha256 of the payload"`
	Label       string        `json:"label" doc:"Printable label text"`
	Preview     []label.Row   `json:"preview"`
	Files       []export.File `json:"files,omitempty" doc:"Export files, base64 encoded"`
	Degraded    bool          `json:"degraded,omitempty" doc:"QR code rendered without notes"`
}

type QRRequest struct {
	Payload string `json:"payload" minLength:"1"`
}

func crateResponse(b assemble.Bundle, previewWidth int) CrateResponse {
	return CrateResponse{
		ID:          b.ID.String(),
		GeneratedAt: b.GeneratedAt.Format(time.RFC3339),
		Payload:     b.Payload,
		Digest:      payload.Digest(b.Payload),
		Label:       b.Label,
		Preview:     b.Preview(previewWidth),
	}
}
