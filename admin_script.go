package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shakram02/go-sql-admin-mcp/internal/cell"
)

// ScriptResult is the outcome of RunScript: rows for a read-only query,
// counts for anything else.
type ScriptResult struct {
	Columns      []string         `json:"columns,omitempty"`
	Rows         []map[string]any `json:"rows,omitempty"`
	Truncated    bool             `json:"truncated,omitempty"`
	Statements   int              `json:"statements,omitempty"`
	RowsAffected int64            `json:"rows_affected,omitempty"`
}

// RunScript runs ad-hoc SQL. A single read-only statement returns its rows;
// any other script runs in a transaction unless the server is read-only.
func (a *Admin) RunScript(ctx context.Context, script string) (*ScriptResult, error) {
	if strings.TrimSpace(script) == "" {
		return nil, fmt.Errorf("empty query")
	}

	readErr := a.adapter.ValidateQuery(script)
	if readErr == nil {
		return a.query(ctx, script)
	}
	if a.readOnly {
		return nil, fmt.Errorf("query rejected: %v", readErr)
	}

	n, affected, err := a.execScript(ctx, script)
	if err != nil {
		return nil, err
	}
	return &ScriptResult{Statements: n, RowsAffected: affected}, nil
}

func (a *Admin) query(ctx context.Context, query string) (*ScriptResult, error) {
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	// Columns with a declared type go through the codec; computed columns
	// without one are shown as the driver returned them.
	columns := make([]cell.Column, len(names))
	typed := make([]bool, len(names))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, ct := range types {
			columns[i] = cell.Column{Name: names[i], Type: cell.ParseSQLType(ct.DatabaseTypeName())}
			typed[i] = ct.DatabaseTypeName() != ""
		}
	}

	result := &ScriptResult{Columns: names}
	for rows.Next() {
		if len(result.Rows) >= a.maxRows {
			result.Truncated = true
			break
		}

		values := make([]any, len(names))
		valuePtrs := make([]any, len(names))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row %d: %w", len(result.Rows)+1, err)
		}

		row := make(map[string]any, len(names))
		for i, name := range names {
			if !typed[i] {
				row[name] = nativeDisplay(values[i])
				continue
			}
			v, err := columns[i].Coerce(values[i])
			if err != nil {
				row[name] = nativeDisplay(values[i])
				continue
			}
			row[name] = displayValue(v)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return result, nil
}

func nativeDisplay(val any) any {
	switch v := val.(type) {
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(cell.TimestampLayout)
	}
	return val
}

// displayValue converts a canonical value into a JSON-friendly value.
func displayValue(v cell.Value) any {
	switch v.Kind {
	case cell.KindNull:
		return nil
	case cell.KindInt64:
		return v.I64
	case cell.KindBool:
		return v.B
	case cell.KindFloat64:
		return v.F64
	}
	return v.String()
}

func displayRow(columns []cell.Column, row []cell.Value) map[string]any {
	out := make(map[string]any, len(columns))
	for i, c := range columns {
		out[c.Name] = displayValue(row[i])
	}
	return out
}
