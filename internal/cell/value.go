package cell

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind tags which field of a Value is active.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindInt64
	KindBool
	KindTimestamp
	KindDecimal
	KindFloat64
	KindJSON
)

// Value is a canonical cell value. Only the field matching Kind is
// meaningful; the zero Value is Null.
type Value struct {
	Kind Kind

	S   string          // KindText, KindJSON
	I64 int64           // KindInt64
	B   bool            // KindBool
	T   time.Time       // KindTimestamp
	D   decimal.Decimal // KindDecimal
	F64 float64         // KindFloat64
}

// Null is the canonical null value.
var Null = Value{}

// TextValue returns a Text value.
func TextValue(s string) Value { return Value{Kind: KindText, S: s} }

// IntValue returns an Int64 value.
func IntValue(i int64) Value { return Value{Kind: KindInt64, I64: i} }

// BoolValue returns a Bool value.
func BoolValue(b bool) Value { return Value{Kind: KindBool, B: b} }

// FloatValue returns a Float64 value.
func FloatValue(f float64) Value { return Value{Kind: KindFloat64, F64: f} }

// DecimalValue returns a Decimal value.
func DecimalValue(d decimal.Decimal) Value { return Value{Kind: KindDecimal, D: d} }

// JSONValue returns a JsonText value. s must already be valid JSON.
func JSONValue(s string) Value { return Value{Kind: KindJSON, S: s} }

// TimestampValue truncates t to whole seconds and drops its zone, keeping
// the wall clock.
func TimestampValue(t time.Time) Value {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
	return Value{Kind: KindTimestamp, T: wall}
}

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Equal reports whether v and o carry the same tag and content.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindText, KindJSON:
		return v.S == o.S
	case KindInt64:
		return v.I64 == o.I64
	case KindBool:
		return v.B == o.B
	case KindTimestamp:
		return v.T.Equal(o.T)
	case KindDecimal:
		return v.D.Equal(o.D)
	case KindFloat64:
		return v.F64 == o.F64
	}
	return false
}

// String returns the unquoted display form of v. Null displays as "".
func (v Value) String() string {
	switch v.Kind {
	case KindText, KindJSON:
		return v.S
	case KindNull:
		return ""
	}
	return unquotedLiteral(v)
}

// IsBlank reports whether every field of row is Null. An empty row is blank.
func IsBlank(row []Value) bool {
	for _, v := range row {
		if !v.IsNull() {
			return false
		}
	}
	return true
}
