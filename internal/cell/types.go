// Package cell converts raw grid and driver values into canonical typed
// values and renders them back as SQL literals or driver parameters.
package cell

import (
	"fmt"
	"strings"
)

// ColumnType is the declared semantic type of a column.
type ColumnType int

const (
	String ColumnType = iota
	Integer
	Boolean
	DateTime
	Decimal
	Real
	Json
	CharacterVarying
)

var typeNames = [...]string{
	String:           "String",
	Integer:          "Integer",
	Boolean:          "Boolean",
	DateTime:         "DateTime",
	Decimal:          "Decimal",
	Real:             "Real",
	Json:             "Json",
	CharacterVarying: "CharacterVarying",
}

func (t ColumnType) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
	return typeNames[t]
}

// Valid reports whether t is one of the known column types.
func (t ColumnType) Valid() bool {
	return t >= 0 && int(t) < len(typeNames)
}

// SQLType returns the DDL type used when creating a column of type t.
func (t ColumnType) SQLType() string {
	switch t {
	case String:
		return "TEXT"
	case CharacterVarying:
		return "VARCHAR(255)"
	case Integer:
		return "INTEGER"
	case Boolean:
		return "BOOLEAN"
	case DateTime:
		return "TIMESTAMP"
	case Decimal:
		return "DECIMAL"
	case Real:
		return "REAL"
	case Json:
		return "JSON"
	}
	return "TEXT"
}

// LookupType resolves a type by its enumeration name, case-insensitively.
func LookupType(name string) (ColumnType, bool) {
	for i, n := range typeNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return ColumnType(i), true
		}
	}
	return String, false
}

// ParseSQLType maps a catalog data type (information_schema.columns.data_type
// or a SQLite declared type) onto a ColumnType. Unknown types map to String.
func ParseSQLType(dataType string) ColumnType {
	dt := strings.ToLower(strings.TrimSpace(dataType))
	if idx := strings.Index(dt, "("); idx != -1 {
		dt = strings.TrimSpace(dt[:idx])
	}

	switch {
	case dt == "boolean" || dt == "bool" || dt == "bit":
		return Boolean
	case isIntegerType(dt):
		return Integer
	case strings.HasPrefix(dt, "timestamp") || dt == "datetime" || dt == "date":
		return DateTime
	case dt == "numeric" || dt == "decimal" || dt == "money":
		return Decimal
	case dt == "real" || dt == "float" || strings.HasPrefix(dt, "double") || dt == "float4" || dt == "float8":
		return Real
	case dt == "json" || dt == "jsonb":
		return Json
	case dt == "character varying" || dt == "varchar" || dt == "nvarchar":
		return CharacterVarying
	}
	return String
}

func isIntegerType(dt string) bool {
	switch strings.TrimSuffix(dt, " unsigned") {
	case "int", "integer", "tinyint", "smallint", "mediumint", "bigint",
		"int2", "int4", "int8", "serial", "smallserial", "bigserial":
		return true
	}
	return false
}

// Column describes one column of a table.
type Column struct {
	Name       string
	Type       ColumnType
	PrimaryKey bool
}

// Coerce converts raw into a canonical value for the column, attaching the
// column name to any error.
func (c Column) Coerce(raw any) (Value, error) {
	v, err := Coerce(raw, c.Type)
	if err != nil {
		if ce, ok := err.(*CoercionError); ok {
			ce.Column = c.Name
		}
		return Null, err
	}
	return v, nil
}
