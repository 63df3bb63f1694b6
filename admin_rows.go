package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/shakram02/go-sql-admin-mcp/internal/backup"
	"github.com/shakram02/go-sql-admin-mcp/internal/cell"
)

// rowFromMap coerces a column -> raw value map into a row ordered like
// columns. Absent columns are Null.
func rowFromMap(columns []cell.Column, values map[string]any) ([]cell.Value, error) {
	row := make([]cell.Value, len(columns))
	seen := 0
	for i, col := range columns {
		raw, ok := values[col.Name]
		if !ok {
			continue
		}
		seen++
		v, err := col.Coerce(raw)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	if seen != len(values) {
		for name := range values {
			if findColumn(columns, name) == -1 {
				return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
			}
		}
	}
	return row, nil
}

func findColumn(columns []cell.Column, name string) int {
	for i, c := range columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// whereClause identifies a row by its primary key when the key is present
// in the row, otherwise by every other non-null field. JSON fields are never
// compared. Placeholders are numbered from first.
func (a *Admin) whereClause(columns []cell.Column, row []cell.Value, skip string, first int) (string, []any, error) {
	var keyIdx []int
	for i, c := range columns {
		if c.PrimaryKey {
			if row[i].IsNull() {
				keyIdx = nil
				break
			}
			keyIdx = append(keyIdx, i)
		}
	}
	if len(keyIdx) == 0 {
		for i, c := range columns {
			if c.Name == skip || row[i].IsNull() || row[i].Kind == cell.KindJSON {
				continue
			}
			keyIdx = append(keyIdx, i)
		}
	}
	if len(keyIdx) == 0 {
		return "", nil, ErrNoRowIdentity
	}

	conditions := make([]string, len(keyIdx))
	args := make([]any, len(keyIdx))
	for n, i := range keyIdx {
		conditions[n] = a.adapter.QuoteIdent(columns[i].Name) + " = " + a.adapter.Placeholder(first+n)
		args[n] = cell.Param(row[i])
	}
	return strings.Join(conditions, " AND "), args, nil
}

// InsertRow coerces values and inserts them as a new row. When the table has
// an integer id column and no id was given, the next id is assigned.
func (a *Admin) InsertRow(ctx context.Context, table string, values map[string]any) error {
	if err := a.checkWritable(); err != nil {
		return err
	}
	columns, err := a.Columns(ctx, table)
	if err != nil {
		return err
	}
	row, err := rowFromMap(columns, values)
	if err != nil {
		return err
	}

	if idx := idColumn(columns); idx != -1 && row[idx].IsNull() {
		next, err := a.nextID(ctx, table, columns[idx].Name)
		if err != nil {
			return err
		}
		row[idx] = cell.IntValue(next)
	}

	var names, placeholders []string
	var args []any
	for i, v := range row {
		if v.IsNull() {
			continue
		}
		names = append(names, a.adapter.QuoteIdent(columns[i].Name))
		placeholders = append(placeholders, a.adapter.Placeholder(len(args)+1))
		args = append(args, cell.Param(v))
	}
	if len(names) == 0 {
		return ErrEmptyRow
	}

	query := "INSERT INTO " + a.adapter.QualifiedTable(table) +
		" (" + strings.Join(names, ", ") + ") VALUES (" + strings.Join(placeholders, ", ") + ")"
	if _, err := a.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert row: %w", err)
	}
	return nil
}

func idColumn(columns []cell.Column) int {
	for i, c := range columns {
		if strings.EqualFold(c.Name, "id") && c.Type == cell.Integer {
			return i
		}
	}
	return -1
}

func (a *Admin) nextID(ctx context.Context, table, column string) (int64, error) {
	query := "SELECT COALESCE(MAX(" + a.adapter.QuoteIdent(column) + "), 0) + 1 FROM " + a.adapter.QualifiedTable(table)
	var next int64
	if err := a.db.QueryRowContext(ctx, query).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to compute next id: %w", err)
	}
	return next, nil
}

// UpdateCell sets one column of the row identified by match. A blank match
// is a placeholder row that was never saved, so nothing is written.
func (a *Admin) UpdateCell(ctx context.Context, table string, match map[string]any, column string, raw any) (int64, error) {
	if err := a.checkWritable(); err != nil {
		return 0, err
	}
	columns, err := a.Columns(ctx, table)
	if err != nil {
		return 0, err
	}
	idx := findColumn(columns, column)
	if idx == -1 {
		return 0, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}

	row, err := rowFromMap(columns, match)
	if err != nil {
		return 0, err
	}
	if cell.IsBlank(row) {
		return 0, nil
	}

	newValue, err := columns[idx].Coerce(raw)
	if err != nil {
		return 0, err
	}

	where, whereArgs, err := a.whereClause(columns, row, column, 2)
	if err != nil {
		return 0, err
	}

	query := "UPDATE " + a.adapter.QualifiedTable(table) +
		" SET " + a.adapter.QuoteIdent(column) + " = " + a.adapter.Placeholder(1) +
		" WHERE " + where
	args := append([]any{cell.Param(newValue)}, whereArgs...)

	res, err := a.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update cell: %w", err)
	}
	return res.RowsAffected()
}

// DeleteRow saves a backup of every row matching the given values and
// deletes them. It returns the number of rows deleted and the backup written;
// when nothing matches, nothing is written.
func (a *Admin) DeleteRow(ctx context.Context, table string, match map[string]any) (int64, backup.Backup, error) {
	if err := a.checkWritable(); err != nil {
		return 0, backup.Backup{}, err
	}
	columns, err := a.Columns(ctx, table)
	if err != nil {
		return 0, backup.Backup{}, err
	}
	row, err := rowFromMap(columns, match)
	if err != nil {
		return 0, backup.Backup{}, err
	}
	where, args, err := a.whereClause(columns, row, "", 1)
	if err != nil {
		return 0, backup.Backup{}, err
	}

	matched, err := a.selectRows(ctx, table, columns, where, args)
	if err != nil {
		return 0, backup.Backup{}, err
	}
	if len(matched) == 0 {
		return 0, backup.Backup{}, nil
	}

	var script strings.Builder
	for _, r := range matched {
		script.WriteString(backup.RowScript(a.adapter, table, columns, r))
	}
	saved, err := a.backups.Save(backup.RowBackupName(table, a.now()), script.String())
	if err != nil {
		return 0, backup.Backup{}, err
	}

	res, err := a.db.ExecContext(ctx, "DELETE FROM "+a.adapter.QualifiedTable(table)+" WHERE "+where, args...)
	if err != nil {
		return 0, saved, fmt.Errorf("failed to delete row: %w", err)
	}
	n, err := res.RowsAffected()
	return n, saved, err
}

// selectRows reads the full rows matching where, in column order.
func (a *Admin) selectRows(ctx context.Context, table string, columns []cell.Column, where string, args []any) ([][]cell.Value, error) {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = a.adapter.QuoteIdent(c.Name)
	}
	query := "SELECT " + strings.Join(names, ", ") + " FROM " + a.adapter.QualifiedTable(table) + " WHERE " + where
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of %s: %w", table, err)
	}
	defer rows.Close()

	var out [][]cell.Value
	for rows.Next() {
		row, err := scanValues(rows, columns)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
