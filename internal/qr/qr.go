// Package qr renders canonical payloads as QR code PNG images.
package qr

import (
	"errors"
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// ErrPayloadTooLarge is returned when a payload does not fit in the largest
// QR symbol at the chosen recovery level.
var ErrPayloadTooLarge = errors.New("payload too large for qr code")

// Level is an error-correction level name.
type Level string

const (
	LevelLow     Level = "low"     // L, ~7%
	LevelMedium  Level = "medium"  // M, ~15%
	LevelHigh    Level = "high"    // Q, ~25%
	LevelHighest Level = "highest" // H, ~30%
)

// Byte-mode capacity of a version 40 symbol.
var capacity = map[Level]int{
	LevelLow:     2953,
	LevelMedium:  2331,
	LevelHigh:    1663,
	LevelHighest: 1273,
}

var recovery = map[Level]qrcode.RecoveryLevel{
	LevelLow:     qrcode.Low,
	LevelMedium:  qrcode.Medium,
	LevelHigh:    qrcode.High,
	LevelHighest: qrcode.Highest,
}

// ParseLevel accepts a level name or its letter (L, M, Q, H).
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "l":
		return LevelLow, nil
	case "medium", "m":
		return LevelMedium, nil
	case "high", "q":
		return LevelHigh, nil
	case "highest", "h":
		return LevelHighest, nil
	}
	return "", fmt.Errorf("unknown qr recovery level %q", s)
}

// Capacity is the largest payload, in bytes, accepted at l.
func (l Level) Capacity() int {
	return capacity[l]
}

// CapacityError describes a payload that did not fit.
type CapacityError struct {
	Len   int
	Max   int
	Level Level
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("payload is %d bytes, qr capacity at level %s is %d", e.Len, e.Level, e.Max)
}

func (e *CapacityError) Unwrap() error { return ErrPayloadTooLarge }

// Encoder turns payload text into an image.
type Encoder interface {
	Encode(payload string) ([]byte, error)
}

// PNGEncoder renders PNG images. The zero value uses level H, 10px modules
// and the standard 4-module border.
type PNGEncoder struct {
	Level         Level
	ModulePx      int
	DisableBorder bool
}

func (e PNGEncoder) level() Level {
	if _, ok := capacity[e.Level]; ok {
		return e.Level
	}
	return LevelHighest
}

// Check reports whether payload fits without rendering it.
func (e PNGEncoder) Check(payload string) error {
	lvl := e.level()
	if n := len(payload); n > lvl.Capacity() {
		return &CapacityError{Len: n, Max: lvl.Capacity(), Level: lvl}
	}
	return nil
}

// Encode renders payload. The symbol version grows to fit the content; a
// payload beyond the version 40 capacity fails with ErrPayloadTooLarge and is
// never cut down.
func (e PNGEncoder) Encode(payload string) ([]byte, error) {
	if err := e.Check(payload); err != nil {
		return nil, err
	}
	code, err := qrcode.New(payload, recovery[e.level()])
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	code.DisableBorder = e.DisableBorder
	px := e.ModulePx
	if px <= 0 {
		px = 10
	}
	// A negative size asks for px pixels per module.
	png, err := code.PNG(-px)
	if err != nil {
		return nil, fmt.Errorf("render qr png: %w", err)
	}
	return png, nil
}
