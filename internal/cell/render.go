package cell

import (
	"strconv"
	"strings"
)

// NullLiteral is the SQL NULL keyword.
const NullLiteral = "NULL"

// Render formats v as a SQL literal for a column of type t. It is meant for
// generated script text; executed statements bind Param(v) instead.
//
// Passing a value whose kind does not belong to t is a caller error; the
// value is rendered according to its own kind.
func Render(v Value, t ColumnType) string {
	switch v.Kind {
	case KindNull:
		return NullLiteral
	case KindText, KindJSON:
		return QuoteString(v.S)
	case KindTimestamp:
		return QuoteString(v.T.Format(TimestampLayout))
	}
	return unquotedLiteral(v)
}

func unquotedLiteral(v Value) string {
	switch v.Kind {
	case KindBool:
		if v.B {
			return "TRUE"
		}
		return "FALSE"
	case KindInt64:
		return strconv.FormatInt(v.I64, 10)
	case KindFloat64:
		return strconv.FormatFloat(v.F64, 'f', -1, 64)
	case KindDecimal:
		return v.D.String()
	case KindTimestamp:
		return v.T.Format(TimestampLayout)
	}
	return NullLiteral
}

// QuoteString wraps s in single quotes, doubling embedded single quotes.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// ParseLiteral is the inverse of Render: it reads a literal produced by
// Render back into a canonical value of type t.
func ParseLiteral(lit string, t ColumnType) (Value, error) {
	trimmed := strings.TrimSpace(lit)
	if strings.EqualFold(trimmed, NullLiteral) {
		return Null, nil
	}
	if len(trimmed) >= 2 && trimmed[0] == '\'' && trimmed[len(trimmed)-1] == '\'' {
		inner := strings.ReplaceAll(trimmed[1:len(trimmed)-1], "''", "'")
		return Coerce(inner, t)
	}
	return Coerce(trimmed, t)
}

// Param converts v into a value accepted by database/sql drivers as a bound
// parameter. Decimals are passed as their exact text and timestamps in
// TimestampLayout, the same form Render writes, so rows written by either
// path compare equal.
func Param(v Value) any {
	switch v.Kind {
	case KindText, KindJSON:
		return v.S
	case KindInt64:
		return v.I64
	case KindBool:
		return v.B
	case KindTimestamp:
		return v.T.Format(TimestampLayout)
	case KindDecimal:
		return v.D.String()
	case KindFloat64:
		return v.F64
	}
	return nil
}
