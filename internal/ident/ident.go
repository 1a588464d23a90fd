// Package ident synthesizes crate identifiers of the form ORC-YYYYMMDD-XXXXXXXX.
package ident

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	Prefix      = "ORC"
	stampLayout = "20060102"
	suffixLen   = 8
)

var (
	ErrMalformed = errors.New("malformed crate identifier")

	pattern = regexp.MustCompile(`^ORC-(\d{8})-([A-Z0-9]{8})$`)
)

// Identifier is an immutable crate identifier.
type Identifier string

func (id Identifier) String() string { return string(id) }

// Date returns the calendar date stamped into the identifier.
func (id Identifier) Date() (time.Time, error) {
	m := pattern.FindStringSubmatch(string(id))
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformed, string(id))
	}
	return time.Parse(stampLayout, m[1])
}

// Suffix returns the random component.
func (id Identifier) Suffix() string {
	s := string(id)
	if len(s) < suffixLen {
		return ""
	}
	return s[len(s)-suffixLen:]
}

// Parse checks that s has the fixed identifier shape.
func Parse(s string) (Identifier, error) {
	if !pattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	return Identifier(s), nil
}

// Synthesizer derives identifiers from an injected clock reading and entropy
// source. Rand must be safe for concurrent reads; nil means crypto/rand.
type Synthesizer struct {
	Rand     io.Reader
	Location *time.Location
}

// Synthesize builds the identifier for now. The date stamp is taken in
// s.Location (UTC when nil); the suffix is the first eight hex digits of a
// random UUID, uppercased. It only fails when the entropy source does.
func (s Synthesizer) Synthesize(now time.Time) (Identifier, error) {
	u, err := s.random()
	if err != nil {
		return "", fmt.Errorf("read entropy: %w", err)
	}
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	suffix := strings.ToUpper(strings.ReplaceAll(u.String(), "-", "")[:suffixLen])
	return Identifier(Prefix + "-" + now.In(loc).Format(stampLayout) + "-" + suffix), nil
}

func (s Synthesizer) random() (uuid.UUID, error) {
	if s.Rand == nil {
		return uuid.NewRandom()
	}
	return uuid.NewRandomFromReader(s.Rand)
}
