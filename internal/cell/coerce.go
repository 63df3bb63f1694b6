package cell

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TimestampLayout is the layout timestamps are rendered with.
const TimestampLayout = "2006-01-02 15:04:05"

// timestampLayouts are tried in order when parsing text into a timestamp.
// None of them depend on the host locale.
var timestampLayouts = []string{
	TimestampLayout,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04",
	"2006-01-02",
}

// Coerce validates raw against t and returns its canonical value. raw may be
// text from an editor or a native value returned by a driver. nil, empty and
// whitespace-only text coerce to Null for every type.
func Coerce(raw any, t ColumnType) (Value, error) {
	switch r := raw.(type) {
	case nil:
		return Null, nil
	case Value:
		if r.IsNull() || r.Kind == kindFor(t) {
			return r, nil
		}
		raw = r.String()
	case []byte:
		raw = string(r)
	case json.RawMessage:
		raw = string(r)
	case *string:
		if r == nil {
			return Null, nil
		}
		raw = *r
	}

	if s, ok := raw.(string); ok {
		if strings.TrimSpace(s) == "" {
			return Null, nil
		}
		return coerceText(s, t)
	}
	return coerceNative(raw, t)
}

func kindFor(t ColumnType) Kind {
	switch t {
	case Integer:
		return KindInt64
	case Boolean:
		return KindBool
	case DateTime:
		return KindTimestamp
	case Decimal:
		return KindDecimal
	case Real:
		return KindFloat64
	case Json:
		return KindJSON
	}
	return KindText
}

func coerceText(s string, t ColumnType) (Value, error) {
	trimmed := strings.TrimSpace(s)

	switch t {
	case String, CharacterVarying:
		return TextValue(s), nil

	case Boolean:
		switch strings.ToLower(trimmed) {
		case "true", "1":
			return BoolValue(true), nil
		case "false", "0":
			return BoolValue(false), nil
		}
		return Null, newCoercionError(s, t, TypeMismatch, nil)

	case Integer:
		i, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return Null, newCoercionError(s, t, Overflow, err)
			}
			return Null, newCoercionError(s, t, TypeMismatch, err)
		}
		return IntValue(i), nil

	case DateTime:
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, trimmed); err == nil {
				return TimestampValue(ts), nil
			}
		}
		return Null, newCoercionError(s, t, TypeMismatch, nil)

	case Decimal:
		d, err := decimal.NewFromString(trimmed)
		if err != nil {
			return Null, newCoercionError(s, t, TypeMismatch, err)
		}
		return DecimalValue(d), nil

	case Real:
		if hasHexPrefix(trimmed) {
			return Null, newCoercionError(s, t, TypeMismatch, nil)
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return Null, newCoercionError(s, t, Overflow, err)
			}
			return Null, newCoercionError(s, t, TypeMismatch, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Null, newCoercionError(s, t, TypeMismatch, nil)
		}
		return FloatValue(f), nil

	case Json:
		return coerceJSON(s)
	}

	return Null, newCoercionError(s, t, TypeMismatch, fmt.Errorf("unknown column type %d", int(t)))
}

// coerceJSON accepts valid JSON text verbatim. Anything else that does not
// look like an object or array is wrapped as a JSON string.
func coerceJSON(s string) (Value, error) {
	if json.Valid([]byte(s)) {
		return JSONValue(s), nil
	}

	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return Null, newCoercionError(s, Json, InvalidJSON, nil)
	}

	wrapped, err := marshalJSON(s)
	if err != nil || !json.Valid(wrapped) {
		return Null, newCoercionError(s, Json, InvalidJSON, err)
	}
	return JSONValue(string(wrapped)), nil
}

func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func coerceNative(raw any, t ColumnType) (Value, error) {
	switch t {
	case Boolean:
		if b, ok := raw.(bool); ok {
			return BoolValue(b), nil
		}

	case Integer:
		if i, ok, overflow := asInt64(raw); ok {
			if overflow {
				return Null, newCoercionError(stringify(raw), t, Overflow, nil)
			}
			return IntValue(i), nil
		}

	case DateTime:
		if ts, ok := raw.(time.Time); ok {
			if !renderableYear(ts) {
				return Null, newCoercionError(stringify(raw), t, TypeMismatch, nil)
			}
			return TimestampValue(ts), nil
		}

	case Decimal:
		switch r := raw.(type) {
		case decimal.Decimal:
			return DecimalValue(r), nil
		case float64:
			if math.IsNaN(r) || math.IsInf(r, 0) {
				return Null, newCoercionError(stringify(raw), t, TypeMismatch, nil)
			}
			return DecimalValue(decimal.NewFromFloat(r)), nil
		}

	case Real:
		switch r := raw.(type) {
		case float64:
			if math.IsNaN(r) || math.IsInf(r, 0) {
				return Null, newCoercionError(stringify(raw), t, TypeMismatch, nil)
			}
			return FloatValue(r), nil
		case decimal.Decimal:
			return FloatValue(r.InexactFloat64()), nil
		}

	case Json:
		switch raw.(type) {
		case bool, float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, time.Time:
		default:
			b, err := marshalJSON(raw)
			if err != nil {
				return Null, newCoercionError(fmt.Sprint(raw), t, InvalidJSON, err)
			}
			return JSONValue(string(b)), nil
		}
	}

	s := stringify(raw)
	if strings.TrimSpace(s) == "" {
		return Null, nil
	}
	return coerceText(s, t)
}

// renderableYear reports whether ts has the four-digit year TimestampLayout
// can write and read back.
func renderableYear(ts time.Time) bool {
	return ts.Year() >= 0 && ts.Year() <= 9999
}

// hasHexPrefix reports whether s is a hexadecimal literal, which
// strconv.ParseFloat would otherwise accept.
func hasHexPrefix(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// asInt64 reports whether raw is a Go integer, and whether it overflows int64.
func asInt64(raw any) (i int64, ok bool, overflow bool) {
	switch r := raw.(type) {
	case int:
		return int64(r), true, false
	case int8:
		return int64(r), true, false
	case int16:
		return int64(r), true, false
	case int32:
		return int64(r), true, false
	case int64:
		return r, true, false
	case uint:
		return int64(r), true, uint64(r) > math.MaxInt64
	case uint8:
		return int64(r), true, false
	case uint16:
		return int64(r), true, false
	case uint32:
		return int64(r), true, false
	case uint64:
		return int64(r), true, r > math.MaxInt64
	}
	return 0, false, false
}

// stringify renders a native value as locale-independent text.
func stringify(raw any) string {
	switch r := raw.(type) {
	case string:
		return r
	case float64:
		return strconv.FormatFloat(r, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(r), 'f', -1, 32)
	case time.Time:
		return r.Format(TimestampLayout)
	case decimal.Decimal:
		return r.String()
	case fmt.Stringer:
		return r.String()
	}
	return fmt.Sprint(raw)
}
