package models

import (
	"errors"
	"fmt"
	"strings"
)

// IDU component widths.
const (
	InseeWidth           = 5
	CommuneAbsorbeeWidth = 3
	SectionWidth         = 2
	NumeroWidth          = 4
	IduLength            = InseeWidth + CommuneAbsorbeeWidth + SectionWidth + NumeroWidth
)

// Idu is the 14-character cadastral parcel identifier:
// insee (5) + commune absorbée (3) + section (2) + numéro (4).
// The zero value is not a valid identifier; build one with ParseIdu or ParseIduString.
type Idu struct {
	value string
}

// ParseIdu validates the four IDU components and returns the canonical identifier.
// Commune absorbée, section and numéro are left-padded with zeros before their
// width is checked. Every failing component is reported; the returned error
// matches ErrInvalidFormat.
func ParseIdu(insee, communeAbsorbee, section, numero string) (Idu, error) {
	communeAbsorbee = zeroPad(communeAbsorbee, CommuneAbsorbeeWidth)
	section = zeroPad(section, SectionWidth)
	numero = zeroPad(numero, NumeroWidth)

	var errs []error

	if !isInsee(insee) {
		if strings.HasPrefix(insee, "2A") || strings.HasPrefix(insee, "2B") {
			errs = append(errs, invalidFormat("insee", insee, "must be numeric after 2A or 2B"))
		} else {
			errs = append(errs, invalidFormat("insee", insee, "must be numeric, except for departments 2A and 2B"))
		}
	}
	if !isDigits(communeAbsorbee) {
		errs = append(errs, invalidFormat("commune_absorbee", communeAbsorbee, "must be numeric"))
	}
	if !isAlnum(section) {
		errs = append(errs, invalidFormat("section", section, "must be alphanumeric"))
	}
	if !isDigits(numero) {
		errs = append(errs, invalidFormat("numero", numero, "must be numeric"))
	}

	if len(insee) != InseeWidth {
		errs = append(errs, invalidFormat("insee", insee, fmt.Sprintf("must be %d characters", InseeWidth)))
	}
	if len(communeAbsorbee) != CommuneAbsorbeeWidth {
		errs = append(errs, invalidFormat("commune_absorbee", communeAbsorbee, fmt.Sprintf("must be %d characters", CommuneAbsorbeeWidth)))
	}
	if len(section) != SectionWidth {
		errs = append(errs, invalidFormat("section", section, fmt.Sprintf("must be %d characters", SectionWidth)))
	}
	if len(numero) != NumeroWidth {
		errs = append(errs, invalidFormat("numero", numero, fmt.Sprintf("must be %d characters", NumeroWidth)))
	}

	switch len(errs) {
	case 0:
		return Idu{value: insee + communeAbsorbee + section + numero}, nil
	case 1:
		return Idu{}, errs[0]
	default:
		return Idu{}, errors.Join(errs...)
	}
}

// ParseIduString validates an already concatenated 14-character IDU.
func ParseIduString(raw string) (Idu, error) {
	if len(raw) != IduLength {
		return Idu{}, invalidFormat("idu", raw, fmt.Sprintf("must be %d characters", IduLength))
	}
	return ParseIdu(
		raw[:5],
		raw[5:8],
		raw[8:10],
		raw[10:],
	)
}

// MustParseIdu is like ParseIduString but panics on error. Intended for tests and constants.
func MustParseIdu(raw string) Idu {
	idu, err := ParseIduString(raw)
	if err != nil {
		panic(err)
	}
	return idu
}

func (i Idu) String() string { return i.value }

// IsZero reports whether i was never parsed.
func (i Idu) IsZero() bool { return i.value == "" }

func (i Idu) Insee() string           { return i.value[:5] }
func (i Idu) CommuneAbsorbee() string { return i.value[5:8] }
func (i Idu) Section() string         { return i.value[8:10] }
func (i Idu) Numero() string          { return i.value[10:] }

// Department returns the department code of the parcel's commune:
// the first two insee characters, or three for overseas departments (97x).
func (i Idu) Department() DepartmentCode {
	if i.IsZero() {
		return ""
	}
	if strings.HasPrefix(i.value, "97") {
		return DepartmentCode(i.value[:3])
	}
	return DepartmentCode(i.value[:2])
}

// Compare orders identifiers by their canonical string form.
func (i Idu) Compare(other Idu) int {
	return strings.Compare(i.value, other.value)
}

// MarshalText implements encoding.TextMarshaler.
func (i Idu) MarshalText() ([]byte, error) {
	return []byte(i.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *Idu) UnmarshalText(text []byte) error {
	parsed, err := ParseIduString(string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

func zeroPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

func isInsee(s string) bool {
	if isDigits(s) {
		return true
	}
	if strings.HasPrefix(s, "2A") || strings.HasPrefix(s, "2B") {
		return isDigits(s[2:])
	}
	return false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isAlnum(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'A' && r <= 'Z':
		case r >= 'a' && r <= 'z':
		default:
			return false
		}
	}
	return true
}
