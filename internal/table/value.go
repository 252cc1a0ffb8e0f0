package table

import (
	"strconv"
)

// Kind is the type of a column.
type Kind int

const (
	// Text columns hold strings; merges concatenate their distinct values.
	Text Kind = iota
	// Numeric columns hold float64 quantities; subdivision merges sum them.
	Numeric
)

func (k Kind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "text"
}

// Value is a single cell. The zero Value is null.
type Value struct {
	text   string
	number float64
	valid  bool
}

// TextValue returns a non-null text cell.
func TextValue(s string) Value {
	return Value{text: s, valid: true}
}

// NumberValue returns a non-null numeric cell.
func NumberValue(f float64) Value {
	return Value{number: f, valid: true}
}

// NullValue returns a null cell.
func NullValue() Value {
	return Value{}
}

// TextOrNull converts an optional string into a cell.
func TextOrNull(s *string) Value {
	if s == nil {
		return NullValue()
	}
	return TextValue(*s)
}

// NumberOrNull converts an optional number into a cell.
func NumberOrNull(f *float64) Value {
	if f == nil {
		return NullValue()
	}
	return NumberValue(*f)
}

func (v Value) IsNull() bool    { return !v.valid }
func (v Value) Text() string    { return v.text }
func (v Value) Number() float64 { return v.number }

// Format renders the cell for a column of the given kind. Null renders as "".
func (v Value) Format(kind Kind) string {
	if !v.valid {
		return ""
	}
	if kind == Numeric {
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	}
	return v.text
}

// Interface returns the cell as a string, a float64 or nil, for JSON encoding.
func (v Value) Interface(kind Kind) interface{} {
	if !v.valid {
		return nil
	}
	if kind == Numeric {
		return v.number
	}
	return v.text
}
