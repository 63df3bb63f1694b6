package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shakram02/go-sql-admin-mcp/internal/cell"
)

type toolHandler struct {
	tool   Tool
	writes bool
	run    func(s *MCPServer, args json.RawMessage) (string, error)
}

func lookupTool(name string) (toolHandler, bool) {
	for _, h := range toolHandlers {
		if h.tool.Name == name {
			return h, true
		}
	}
	return toolHandler{}, false
}

func stringProp(description string) Property {
	return Property{Type: "string", Description: description}
}

func objectTool(name, description string, props map[string]Property, required ...string) Tool {
	if props == nil {
		props = map[string]Property{}
	}
	return Tool{
		Name:        name,
		Description: description,
		InputSchema: InputSchema{Type: "object", Properties: props, Required: required},
	}
}

var (
	tableProp = stringProp("Table name")
	rowProp   = Property{
		Type:                 "object",
		Description:          "Current values of the row, column name to value. The primary key is enough when the table has one.",
		AdditionalProperties: true,
	}
	pathProp = stringProp("Destination .xlsx file")
)

var columnTypeNames = func() []string {
	var names []string
	for t := cell.String; t.Valid(); t++ {
		names = append(names, t.String())
	}
	return names
}()

var toolHandlers = []toolHandler{
	{
		tool: objectTool("query",
			"Execute SQL. A single read-only statement (SELECT, SHOW, DESCRIBE, EXPLAIN, WITH) returns rows; any other script runs in one transaction and is rejected in read-only mode",
			map[string]Property{"sql": stringProp("The SQL to execute")}, "sql"),
		run: (*MCPServer).toolQuery,
	},
	{
		tool: objectTool("list_tables", "List the tables of the database", nil),
		run:  (*MCPServer).toolListTables,
	},
	{
		tool: objectTool("read_table", "Read the typed columns and non-blank rows of a table",
			map[string]Property{"table": tableProp}, "table"),
		run: (*MCPServer).toolReadTable,
	},
	{
		tool: objectTool("insert_row",
			"Insert a row. Every value is checked against its column type; an integer id column is assigned when omitted",
			map[string]Property{
				"table":  tableProp,
				"values": {Type: "object", Description: "Column name to value", AdditionalProperties: true},
			}, "table", "values"),
		writes: true,
		run:    (*MCPServer).toolInsertRow,
	},
	{
		tool: objectTool("update_cell", "Set one column of an existing row",
			map[string]Property{
				"table":  tableProp,
				"row":    rowProp,
				"column": stringProp("Column to set"),
				"value":  {Type: "string", Description: "New value as text; empty means NULL"},
			}, "table", "row", "column"),
		writes: true,
		run:    (*MCPServer).toolUpdateCell,
	},
	{
		tool: objectTool("delete_row", "Delete a row after saving a backup script of it",
			map[string]Property{"table": tableProp, "row": rowProp}, "table", "row"),
		writes: true,
		run:    (*MCPServer).toolDeleteRow,
	},
	{
		tool: objectTool("create_table", "Create a table from typed column definitions",
			map[string]Property{
				"table": tableProp,
				"columns": {
					Type: "array",
					Items: &Property{
						Type: "object",
						Properties: map[string]Property{
							"name":        stringProp("Column name"),
							"type":        {Type: "string", Enum: columnTypeNames},
							"primary_key": {Type: "boolean"},
						},
						Required: []string{"name", "type"},
					},
				},
			}, "table", "columns"),
		writes: true,
		run:    (*MCPServer).toolCreateTable,
	},
	{
		tool: objectTool("drop_table", "Drop a table after saving a backup script of it",
			map[string]Property{"table": tableProp}, "table"),
		writes: true,
		run:    (*MCPServer).toolDropTable,
	},
	{
		tool: objectTool("backup_database", "Save a script that recreates every table and its rows", nil),
		run:  (*MCPServer).toolBackupDatabase,
	},
	{
		tool: objectTool("list_backups", "List saved backup scripts, newest first", nil),
		run:  (*MCPServer).toolListBackups,
	},
	{
		tool: objectTool("restore_backup", "Execute a saved backup script in one transaction",
			map[string]Property{"name": stringProp("Backup file name")}, "name"),
		writes: true,
		run:    (*MCPServer).toolRestoreBackup,
	},
	{
		tool: objectTool("list_scripts", "List the names of saved SQL scripts", nil),
		run:  (*MCPServer).toolListScripts,
	},
	{
		tool: objectTool("get_script", "Show the SQL of a saved script",
			map[string]Property{"name": stringProp("Script name")}, "name"),
		run: (*MCPServer).toolGetScript,
	},
	{
		tool: objectTool("save_script", "Save a user script, replacing one with the same name",
			map[string]Property{"name": stringProp("Script name"), "sql": stringProp("Script SQL")}, "name", "sql"),
		run: (*MCPServer).toolSaveScript,
	},
	{
		tool: objectTool("delete_script", "Delete a user script",
			map[string]Property{"name": stringProp("Script name")}, "name"),
		run: (*MCPServer).toolDeleteScript,
	},
	{
		tool: objectTool("run_script", "Run a saved script like the query tool",
			map[string]Property{"name": stringProp("Script name")}, "name"),
		run: (*MCPServer).toolRunScript,
	},
	{
		tool: objectTool("export_table", "Export a table to an xlsx workbook",
			map[string]Property{"table": tableProp, "path": pathProp}, "table", "path"),
		run: (*MCPServer).toolExportTable,
	},
	{
		tool: objectTool("export_database", "Export every non-empty table to one xlsx workbook, a sheet per table",
			map[string]Property{"path": pathProp}, "path"),
		run: (*MCPServer).toolExportDatabase,
	},
	{
		tool: objectTool("export_query", "Export the rows of a read-only query to an xlsx workbook",
			map[string]Property{"sql": stringProp("Read-only query"), "path": pathProp}, "sql", "path"),
		run: (*MCPServer).toolExportQuery,
	},
	{
		tool: objectTool("format_value", "Check a value against a column type and show its canonical form and SQL literal",
			map[string]Property{
				"type":  {Type: "string", Enum: columnTypeNames},
				"value": stringProp("Value to check"),
			}, "type"),
		run: (*MCPServer).toolFormatValue,
	},
}

type tableArgs struct {
	Table string `json:"table"`
}

type rowArgs struct {
	Table  string         `json:"table"`
	Row    map[string]any `json:"row"`
	Values map[string]any `json:"values"`
	Column string         `json:"column"`
	Value  any            `json:"value"`
}

type nameArgs struct {
	Name string `json:"name"`
	SQL  string `json:"sql"`
}

type exportArgs struct {
	Table string `json:"table"`
	SQL   string `json:"sql"`
	Path  string `json:"path"`
}

type columnInfo struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	PrimaryKey bool   `json:"primary_key,omitempty"`
}

func (s *MCPServer) toolQuery(raw json.RawMessage) (string, error) {
	var args nameArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if err := requireString("sql", args.SQL); err != nil {
		return "", err
	}
	return s.runScript(args.SQL)
}

func (s *MCPServer) runScript(sql string) (string, error) {
	ctx, cancel := s.timeout()
	defer cancel()

	result, err := s.admin.RunScript(ctx, sql)
	if err != nil {
		return "", err
	}
	if result.Columns == nil {
		return fmt.Sprintf("Executed %d statement(s), %d row(s) affected", result.Statements, result.RowsAffected), nil
	}

	rows := result.Rows
	if rows == nil {
		rows = []map[string]any{}
	}
	if result.Truncated {
		rows = append(rows, map[string]any{
			"_warning": fmt.Sprintf("Result truncated at %d rows", s.admin.maxRows),
		})
	}
	return marshalText(rows)
}

func (s *MCPServer) toolListTables(json.RawMessage) (string, error) {
	ctx, cancel := s.timeout()
	defer cancel()

	tables, err := s.admin.ListTables(ctx)
	if err != nil {
		return "", err
	}
	if tables == nil {
		tables = []string{}
	}
	return marshalText(tables)
}

func (s *MCPServer) toolReadTable(raw json.RawMessage) (string, error) {
	var args tableArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if err := requireString("table", args.Table); err != nil {
		return "", err
	}
	ctx, cancel := s.timeout()
	defer cancel()

	data, err := s.admin.LoadTable(ctx, args.Table)
	if err != nil {
		return "", err
	}

	columns := make([]columnInfo, len(data.Columns))
	for i, c := range data.Columns {
		columns[i] = columnInfo{Name: c.Name, Type: c.Type.String(), PrimaryKey: c.PrimaryKey}
	}
	rows := make([]map[string]any, len(data.Rows))
	for i, row := range data.Rows {
		rows[i] = displayRow(data.Columns, row)
	}
	return marshalText(map[string]any{
		"table":     data.Name,
		"columns":   columns,
		"rows":      rows,
		"truncated": data.Truncated,
	})
}

func (s *MCPServer) toolInsertRow(raw json.RawMessage) (string, error) {
	var args rowArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if err := requireString("table", args.Table); err != nil {
		return "", err
	}
	if len(args.Values) == 0 {
		return "", badArgs("Missing or invalid 'values' parameter")
	}
	ctx, cancel := s.timeout()
	defer cancel()

	if err := s.admin.InsertRow(ctx, args.Table, args.Values); err != nil {
		return "", err
	}
	return fmt.Sprintf("Inserted 1 row into %s", args.Table), nil
}

func (s *MCPServer) toolUpdateCell(raw json.RawMessage) (string, error) {
	var args rowArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if err := requireString("table", args.Table); err != nil {
		return "", err
	}
	if err := requireString("column", args.Column); err != nil {
		return "", err
	}
	ctx, cancel := s.timeout()
	defer cancel()

	n, err := s.admin.UpdateCell(ctx, args.Table, args.Row, args.Column, args.Value)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "No rows updated", nil
	}
	return fmt.Sprintf("Updated %s in %d row(s)", args.Column, n), nil
}

func (s *MCPServer) toolDeleteRow(raw json.RawMessage) (string, error) {
	var args rowArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if err := requireString("table", args.Table); err != nil {
		return "", err
	}
	if len(args.Row) == 0 {
		return "", badArgs("Missing or invalid 'row' parameter")
	}
	ctx, cancel := s.timeout()
	defer cancel()

	n, saved, err := s.admin.DeleteRow(ctx, args.Table, args.Row)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Deleted %d row(s) from %s; backup saved to %s", n, args.Table, saved.Name), nil
}

func (s *MCPServer) toolCreateTable(raw json.RawMessage) (string, error) {
	var args struct {
		Table   string       `json:"table"`
		Columns []columnInfo `json:"columns"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if err := requireString("table", args.Table); err != nil {
		return "", err
	}

	columns := make([]cell.Column, len(args.Columns))
	for i, c := range args.Columns {
		t, ok := cell.LookupType(c.Type)
		if !ok {
			return "", badArgs("Unknown type %q for column %s (expected one of %s)",
				c.Type, c.Name, strings.Join(columnTypeNames, ", "))
		}
		columns[i] = cell.Column{Name: c.Name, Type: t, PrimaryKey: c.PrimaryKey}
	}

	ctx, cancel := s.timeout()
	defer cancel()

	if err := s.admin.CreateTable(ctx, args.Table, columns); err != nil {
		return "", err
	}
	return fmt.Sprintf("Created table %s", args.Table), nil
}

func (s *MCPServer) toolDropTable(raw json.RawMessage) (string, error) {
	var args tableArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if err := requireString("table", args.Table); err != nil {
		return "", err
	}
	ctx, cancel := s.timeout()
	defer cancel()

	saved, err := s.admin.DropTable(ctx, args.Table)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Dropped table %s; backup saved to %s", args.Table, saved.Name), nil
}

func (s *MCPServer) toolBackupDatabase(json.RawMessage) (string, error) {
	ctx, cancel := s.timeout()
	defer cancel()

	saved, err := s.admin.BackupDatabase(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Backup saved to %s (%d bytes)", saved.Path, saved.Size), nil
}

func (s *MCPServer) toolListBackups(json.RawMessage) (string, error) {
	backups, err := s.admin.ListBackups()
	if err != nil {
		return "", err
	}
	if backups == nil {
		return "[]", nil
	}
	return marshalText(backups)
}

func (s *MCPServer) toolRestoreBackup(raw json.RawMessage) (string, error) {
	var args nameArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if err := requireString("name", args.Name); err != nil {
		return "", err
	}
	ctx, cancel := s.timeout()
	defer cancel()

	n, err := s.admin.RestoreBackup(ctx, args.Name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Restored %s: %d statement(s) executed", args.Name, n), nil
}

func (s *MCPServer) toolListScripts(json.RawMessage) (string, error) {
	names := s.scripts.Names()
	if names == nil {
		names = []string{}
	}
	return marshalText(names)
}

func (s *MCPServer) toolGetScript(raw json.RawMessage) (string, error) {
	var args nameArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if err := requireString("name", args.Name); err != nil {
		return "", err
	}
	return s.scripts.Get(args.Name)
}

func (s *MCPServer) toolSaveScript(raw json.RawMessage) (string, error) {
	var args nameArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	replaced, err := s.scripts.Save(args.Name, args.SQL)
	if err != nil {
		return "", err
	}
	if replaced {
		return fmt.Sprintf("Updated script %s", args.Name), nil
	}
	return fmt.Sprintf("Saved script %s", args.Name), nil
}

func (s *MCPServer) toolDeleteScript(raw json.RawMessage) (string, error) {
	var args nameArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if err := requireString("name", args.Name); err != nil {
		return "", err
	}
	if err := s.scripts.Delete(args.Name); err != nil {
		return "", err
	}
	return fmt.Sprintf("Deleted script %s", args.Name), nil
}

func (s *MCPServer) toolRunScript(raw json.RawMessage) (string, error) {
	var args nameArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if err := requireString("name", args.Name); err != nil {
		return "", err
	}
	sql, err := s.scripts.Get(args.Name)
	if err != nil {
		return "", err
	}
	return s.runScript(sql)
}

func (s *MCPServer) toolExportTable(raw json.RawMessage) (string, error) {
	var args exportArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if err := requireString("table", args.Table); err != nil {
		return "", err
	}
	if err := requireString("path", args.Path); err != nil {
		return "", err
	}
	ctx, cancel := s.timeout()
	defer cancel()

	path, err := s.admin.ExportTable(ctx, args.Table, args.Path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Exported %s to %s", args.Table, path), nil
}

func (s *MCPServer) toolExportDatabase(raw json.RawMessage) (string, error) {
	var args exportArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if err := requireString("path", args.Path); err != nil {
		return "", err
	}
	ctx, cancel := s.timeout()
	defer cancel()

	path, err := s.admin.ExportDatabase(ctx, args.Path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Exported database to %s", path), nil
}

func (s *MCPServer) toolExportQuery(raw json.RawMessage) (string, error) {
	var args exportArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if err := requireString("sql", args.SQL); err != nil {
		return "", err
	}
	if err := requireString("path", args.Path); err != nil {
		return "", err
	}
	ctx, cancel := s.timeout()
	defer cancel()

	path, err := s.admin.ExportQuery(ctx, args.SQL, args.Path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Exported query result to %s", path), nil
}

func (s *MCPServer) toolFormatValue(raw json.RawMessage) (string, error) {
	var args struct {
		Type  string `json:"type"`
		Value any    `json:"value"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	t, ok := cell.LookupType(args.Type)
	if !ok {
		return "", badArgs("Unknown type %q (expected one of %s)", args.Type, strings.Join(columnTypeNames, ", "))
	}
	v, err := cell.Coerce(args.Value, t)
	if err != nil {
		return "", err
	}
	return marshalText(map[string]any{
		"type":    t.String(),
		"value":   displayValue(v),
		"literal": cell.Render(v, t),
	})
}
