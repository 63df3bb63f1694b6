// Package backup generates plain-text SQL backup scripts and keeps them in a
// directory on disk.
package backup

import (
	"strings"

	"github.com/shakram02/go-sql-admin-mcp/internal/cell"
)

// Dialect quotes identifiers for the target database.
type Dialect interface {
	QuoteIdent(name string) string
	QualifiedTable(table string) string
}

// Table is the schema and content of one table.
type Table struct {
	Name    string
	Columns []cell.Column
	Rows    [][]cell.Value
}

// TableScript returns DROP TABLE, CREATE TABLE and one INSERT per non-blank
// row, one statement per line.
func TableScript(d Dialect, t Table) string {
	var script strings.Builder
	script.WriteString("DROP TABLE IF EXISTS " + d.QualifiedTable(t.Name) + ";\n")
	script.WriteString(CreateTableStatement(d, t.Name, t.Columns) + ";\n")

	for _, row := range t.Rows {
		if stmt := InsertStatement(d, t.Name, t.Columns, row); stmt != "" {
			script.WriteString(stmt + "\n")
		}
	}
	return script.String()
}

// DatabaseScript concatenates the scripts of every table.
func DatabaseScript(d Dialect, tables []Table) string {
	var script strings.Builder
	for _, t := range tables {
		script.WriteString(TableScript(d, t))
	}
	return script.String()
}

// RowScript is the INSERT that recreates a single row.
func RowScript(d Dialect, table string, columns []cell.Column, row []cell.Value) string {
	stmt := InsertStatement(d, table, columns, row)
	if stmt == "" {
		return ""
	}
	return stmt + "\n"
}

// CreateTableStatement builds a CREATE TABLE without the trailing semicolon.
// Primary key columns come from the catalog; without any, a column named id
// becomes the key.
func CreateTableStatement(d Dialect, table string, columns []cell.Column) string {
	var keys []string
	for _, c := range columns {
		if c.PrimaryKey {
			keys = append(keys, c.Name)
		}
	}
	if len(keys) == 0 {
		for _, c := range columns {
			if strings.EqualFold(c.Name, "id") {
				keys = append(keys, c.Name)
				break
			}
		}
	}

	defs := make([]string, 0, len(columns)+1)
	for _, c := range columns {
		def := d.QuoteIdent(c.Name) + " " + c.Type.SQLType()
		if len(keys) == 1 && keys[0] == c.Name {
			def += " PRIMARY KEY"
		}
		defs = append(defs, def)
	}
	if len(keys) > 1 {
		quoted := make([]string, len(keys))
		for i, k := range keys {
			quoted[i] = d.QuoteIdent(k)
		}
		defs = append(defs, "PRIMARY KEY ("+strings.Join(quoted, ", ")+")")
	}

	return "CREATE TABLE " + d.QualifiedTable(table) + " (" + strings.Join(defs, ", ") + ")"
}

// InsertStatement renders an INSERT for the non-null fields of row. It
// returns "" for a blank row.
func InsertStatement(d Dialect, table string, columns []cell.Column, row []cell.Value) string {
	if cell.IsBlank(row) {
		return ""
	}

	var names, values []string
	for i, v := range row {
		if v.IsNull() || i >= len(columns) {
			continue
		}
		names = append(names, d.QuoteIdent(columns[i].Name))
		values = append(values, cell.Render(v, columns[i].Type))
	}
	if len(names) == 0 {
		return ""
	}

	return "INSERT INTO " + d.QualifiedTable(table) +
		" (" + strings.Join(names, ", ") + ") VALUES (" + strings.Join(values, ", ") + ");"
}
