package models

import (
	"fmt"
	"strings"
	"unicode"
)

// MinSirenLength is the minimum number of characters of a SIREN once whitespace is removed.
// Some identifiers in the land registry are longer internal numbers, hence no maximum.
const MinSirenLength = 9

// Siren identifies a legal person (personne morale).
type Siren struct {
	value string
}

// ParseSiren removes all whitespace from raw and checks the remaining length.
// "519 587 851" parses to "519587851".
func ParseSiren(raw string) (Siren, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	if len(cleaned) < MinSirenLength {
		return Siren{}, &ValidationError{
			Kind:      TooShort,
			Component: "siren",
			Value:     raw,
			Reason:    fmt.Sprintf("must be at least %d characters", MinSirenLength),
		}
	}
	return Siren{value: cleaned}, nil
}

func (s Siren) String() string { return s.value }

// IsZero reports whether s was never parsed.
func (s Siren) IsZero() bool { return s.value == "" }

// Compare orders identifiers by their canonical string form.
func (s Siren) Compare(other Siren) int {
	return strings.Compare(s.value, other.value)
}

// MarshalText implements encoding.TextMarshaler.
func (s Siren) MarshalText() ([]byte, error) {
	return []byte(s.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Siren) UnmarshalText(text []byte) error {
	parsed, err := ParseSiren(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
