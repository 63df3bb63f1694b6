package cell

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a coercion failure. Empty input is not a failure: it
// coerces to Null.
type ErrorKind int

const (
	TypeMismatch ErrorKind = iota + 1
	InvalidJSON
	Overflow
)

var (
	ErrTypeMismatch = errors.New("type mismatch")
	ErrInvalidJSON  = errors.New("invalid JSON")
	ErrOverflow     = errors.New("integer out of range")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case InvalidJSON:
		return ErrInvalidJSON
	case Overflow:
		return ErrOverflow
	}
	return ErrTypeMismatch
}

func (k ErrorKind) String() string {
	return k.sentinel().Error()
}

// CoercionError reports a raw value that cannot be stored in a column.
type CoercionError struct {
	Column string // empty when coerced without a column descriptor
	Raw    string
	Type   ColumnType
	Kind   ErrorKind
	Err    error // underlying parse error, if any
}

func (e *CoercionError) Error() string {
	var msg string
	if e.Column != "" {
		msg = fmt.Sprintf("invalid value %q for column %q of type %s", e.Raw, e.Column, e.Type)
	} else {
		msg = fmt.Sprintf("invalid value %q for type %s", e.Raw, e.Type)
	}
	if e.Kind == InvalidJSON || e.Kind == Overflow {
		msg += ": " + e.Kind.String()
	}
	return msg
}

// Is matches the sentinel for the error's kind.
func (e *CoercionError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (e *CoercionError) Unwrap() error { return e.Err }

func newCoercionError(raw string, t ColumnType, kind ErrorKind, err error) *CoercionError {
	return &CoercionError{Raw: raw, Type: t, Kind: kind, Err: err}
}
