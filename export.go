package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/shakram02/go-sql-admin-mcp/internal/cell"
)

const (
	maxSheetNameLen  = 31
	scriptResultName = "Script_Result"
	defaultSheetName = "Sheet1"
)

var ErrNothingToExport = errors.New("no tables with data to export")

// ExportTable writes a table into a single-sheet xlsx workbook at path.
func (a *Admin) ExportTable(ctx context.Context, table, path string) (string, error) {
	data, err := a.readTable(ctx, table, 0)
	if err != nil {
		return "", err
	}
	w := newWorkbook()
	defer w.close()

	if err := w.addSheet(table, columnNames(data.Columns), valueRows(data.Rows)); err != nil {
		return "", err
	}
	return w.save(path)
}

// ExportDatabase writes every table with at least one row into its own
// sheet of one workbook.
func (a *Admin) ExportDatabase(ctx context.Context, path string) (string, error) {
	tables, err := a.ListTables(ctx)
	if err != nil {
		return "", err
	}
	w := newWorkbook()
	defer w.close()

	for _, table := range tables {
		data, err := a.readTable(ctx, table, 0)
		if err != nil {
			return "", err
		}
		if len(data.Rows) == 0 {
			continue
		}
		if err := w.addSheet(table, columnNames(data.Columns), valueRows(data.Rows)); err != nil {
			return "", err
		}
	}
	if w.sheets == 0 {
		return "", ErrNothingToExport
	}
	return w.save(path)
}

// ExportQuery runs a read-only query and writes its rows to a Script_Result sheet.
func (a *Admin) ExportQuery(ctx context.Context, query, path string) (string, error) {
	if err := a.adapter.ValidateQuery(query); err != nil {
		return "", fmt.Errorf("query rejected: %w", err)
	}
	result, err := a.query(ctx, query)
	if err != nil {
		return "", err
	}
	rows := make([][]any, len(result.Rows))
	for i, r := range result.Rows {
		row := make([]any, len(result.Columns))
		for j, name := range result.Columns {
			row[j] = r[name]
		}
		rows[i] = row
	}

	w := newWorkbook()
	defer w.close()
	if err := w.addSheet(scriptResultName, result.Columns, rows); err != nil {
		return "", err
	}
	return w.save(path)
}

type workbook struct {
	f      *excelize.File
	sheets int
	names  map[string]bool
	bold   int
}

func newWorkbook() *workbook {
	return &workbook{f: excelize.NewFile(), names: map[string]bool{}, bold: -1}
}

func (w *workbook) close() {
	if err := w.f.Close(); err != nil {
		logError("Failed to close workbook: %v", err)
	}
}

func (w *workbook) addSheet(table string, header []string, rows [][]any) error {
	name := w.uniqueName(sheetName(table))
	if w.sheets == 0 {
		if err := w.f.SetSheetName(defaultSheetName, name); err != nil {
			return fmt.Errorf("failed to name sheet %s: %w", name, err)
		}
	} else if _, err := w.f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to add sheet %s: %w", name, err)
	}
	w.sheets++

	if w.bold == -1 {
		style, err := w.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return fmt.Errorf("failed to create header style: %w", err)
		}
		w.bold = style
	}

	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := w.f.SetSheetRow(name, "A1", &headerRow); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", name, err)
	}
	if err := w.f.SetRowStyle(name, 1, 1, w.bold); err != nil {
		return fmt.Errorf("failed to style header of %s: %w", name, err)
	}

	for i, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := w.f.SetSheetRow(name, axis, &row); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+1, name, err)
		}
	}
	return nil
}

func (w *workbook) uniqueName(name string) string {
	candidate := name
	for n := 2; w.names[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf("_%d", n)
		base := []rune(name)
		if len(base)+len(suffix) > maxSheetNameLen {
			base = base[:maxSheetNameLen-len(suffix)]
		}
		candidate = string(base) + suffix
	}
	w.names[strings.ToLower(candidate)] = true
	return candidate
}

func (w *workbook) save(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("export path is empty")
	}
	if !strings.EqualFold(filepath.Ext(path), ".xlsx") {
		path += ".xlsx"
	}
	if err := w.f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}
	return path, nil
}

// sheetName drops the characters Excel forbids in sheet names and applies
// its length limit.
func sheetName(table string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, table)
	name = strings.Trim(name, "'")
	if r := []rune(name); len(r) > maxSheetNameLen {
		name = string(r[:maxSheetNameLen])
	}
	if name == "" {
		return "Sheet"
	}
	return name
}

func columnNames(columns []cell.Column) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}

func valueRows(rows [][]cell.Value) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = displayValue(v)
		}
		out[i] = values
	}
	return out
}
