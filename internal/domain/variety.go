package domain

import "strings"

// VarietyKind enumerates the orange varieties known to the system.
type VarietyKind int

const (
	VarietyCustom VarietyKind = iota
	Valencia
	Navel
	BloodOrange
	Mandarin
	Clementine
	Tangerine
	CaraCara
)

var varietyNames = map[VarietyKind][2]string{
	Valencia:    {"Valencia", "Valencia"},
	Navel:       {"Navel", "Navel"},
	BloodOrange: {"BloodOrange", "Blood Orange"},
	Mandarin:    {"Mandarin", "Mandarin"},
	Clementine:  {"Clementine", "Clementine"},
	Tangerine:   {"Tangerine", "Tangerine"},
	CaraCara:    {"CaraCara", "Cara Cara"},
}

// KnownVarieties lists the enumerated varieties in presentation order.
func KnownVarieties() []VarietyKind {
	return []VarietyKind{Valencia, Navel, BloodOrange, Mandarin, Clementine, Tangerine, CaraCara}
}

// Token is the identifier-style name, e.g. BloodOrange.
func (k VarietyKind) Token() string {
	return varietyNames[k][0]
}

// String is the display name, e.g. "Blood Orange".
func (k VarietyKind) String() string {
	if n, ok := varietyNames[k]; ok {
		return n[1]
	}
	return VarietyOther
}

// ParseVarietyKind accepts either the token or the display name, ignoring
// case, spaces, dashes and underscores.
func ParseVarietyKind(s string) (VarietyKind, bool) {
	key := foldName(s)
	if key == "" {
		return VarietyCustom, false
	}
	for _, k := range KnownVarieties() {
		if foldName(k.Token()) == key {
			return k, true
		}
	}
	return VarietyCustom, false
}

// Variety is either one of the known kinds or a custom free-text value chosen
// through the "Other" escape. The two never collapse into a plain string until
// they are rendered.
type Variety struct {
	Kind   VarietyKind
	Custom string
}

func Known(k VarietyKind) Variety { return Variety{Kind: k} }

func Custom(name string) Variety { return Variety{Kind: VarietyCustom, Custom: name} }

func (v Variety) IsCustom() bool { return v.Kind == VarietyCustom }

// String returns the display value used in payloads and labels.
func (v Variety) String() string {
	if v.IsCustom() {
		return v.Custom
	}
	return v.Kind.String()
}

func (v Variety) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Grade is the crate quality grade.
type Grade int

const (
	GradeUnknown Grade = iota
	Premium
	GradeA
	GradeB
	GradeC
)

var gradeNames = map[Grade][2]string{
	Premium: {"Premium", "Premium"},
	GradeA:  {"GradeA", "Grade A"},
	GradeB:  {"GradeB", "Grade B"},
	GradeC:  {"GradeC", "Grade C"},
}

// Grades lists the grades from best to worst.
func Grades() []Grade {
	return []Grade{Premium, GradeA, GradeB, GradeC}
}

func (g Grade) Token() string {
	return gradeNames[g][0]
}

func (g Grade) String() string {
	if n, ok := gradeNames[g]; ok {
		return n[1]
	}
	return "Unknown"
}

func (g Grade) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// ParseGrade accepts "GradeA", "Grade A", "grade-a" and so on.
func ParseGrade(s string) (Grade, bool) {
	key := foldName(s)
	if key == "" {
		return GradeUnknown, false
	}
	for _, g := range Grades() {
		if foldName(g.Token()) == key {
			return g, true
		}
	}
	return GradeUnknown, false
}

func foldName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_', '\t':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}
