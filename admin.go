package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shakram02/go-sql-admin-mcp/internal/backup"
	"github.com/shakram02/go-sql-admin-mcp/internal/cell"
)

var (
	ErrReadOnly        = errors.New("server is in read-only mode")
	ErrTableNotFound   = errors.New("table not found")
	ErrUnknownColumn   = errors.New("unknown column")
	ErrNoRowIdentity   = errors.New("row has no values to identify it")
	ErrEmptyRow        = errors.New("row has no values to insert")
	ErrInvalidTableDef = errors.New("invalid table definition")
)

// Admin runs table operations against one database. Every value written
// goes through the cell codec and is bound as a parameter.
type Admin struct {
	db           *sql.DB
	adapter      DBAdapter
	databaseName string
	backups      *backup.Store
	readOnly     bool
	maxRows      int
	now          func() time.Time
}

// OpenAdmin connects to the database via the adapter.
func OpenAdmin(ctx context.Context, adapter DBAdapter, dsn string, cfg Config) (*Admin, error) {
	db, err := sql.Open(adapter.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if adapter.DriverName() == "sqlite" {
		// sqlite does not support concurrent write access.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxIdleConns(MaxConnectionsIdle)
		db.SetMaxOpenConns(MaxConnectionsOpen)
	}
	db.SetConnMaxLifetime(time.Hour)

	// Test connection with timeout
	pingCtx, pingCancel := context.WithTimeout(ctx, ConnectionTimeout)
	defer pingCancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.ReadOnly {
		if err := adapter.EnforceReadOnly(ctx, db); err != nil {
			logError("Warning: Could not set read-only mode: %v", err)
		}
	}

	store, err := backup.OpenStore(cfg.BackupDir)
	if err != nil {
		db.Close()
		return nil, err
	}

	maxRows := cfg.MaxRows
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	return &Admin{
		db:           db,
		adapter:      adapter,
		databaseName: adapter.DatabaseName(dsn),
		backups:      store,
		readOnly:     cfg.ReadOnly,
		maxRows:      maxRows,
		now:          time.Now,
	}, nil
}

func (a *Admin) Close() error {
	return a.db.Close()
}

func (a *Admin) checkWritable() error {
	if a.readOnly {
		return ErrReadOnly
	}
	return nil
}

// ListTables returns the names of the tables in the database.
func (a *Admin) ListTables(ctx context.Context) ([]string, error) {
	query, args := a.adapter.ListTablesQuery(a.databaseName)
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, tableName)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return tables, nil
}

// Schema returns the catalog description of a table's columns.
func (a *Admin) Schema(ctx context.Context, table string) ([]SchemaColumn, error) {
	query, args := a.adapter.ReadSchemaQuery(a.databaseName, table)
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get schema: %w", err)
	}
	defer rows.Close()

	var columns []SchemaColumn
	for rows.Next() {
		col, err := a.adapter.ScanSchemaRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan column info: %w", err)
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading schema: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return columns, nil
}

// Columns returns the typed columns of a table.
func (a *Admin) Columns(ctx context.Context, table string) ([]cell.Column, error) {
	schema, err := a.Schema(ctx, table)
	if err != nil {
		return nil, err
	}
	columns := make([]cell.Column, len(schema))
	for i, sc := range schema {
		columns[i] = sc.Column()
	}
	return columns, nil
}

// TableData is the typed content of a table with blank rows removed.
type TableData struct {
	Name      string
	Columns   []cell.Column
	Rows      [][]cell.Value
	Truncated bool
}

// LoadTable reads every non-blank row of a table, up to the row limit.
func (a *Admin) LoadTable(ctx context.Context, table string) (*TableData, error) {
	return a.readTable(ctx, table, a.maxRows)
}

// readTable reads the non-blank rows of a table. A limit of zero or less
// reads every row.
func (a *Admin) readTable(ctx context.Context, table string, limit int) (*TableData, error) {
	columns, err := a.Columns(ctx, table)
	if err != nil {
		return nil, err
	}

	rows, err := a.db.QueryContext(ctx, "SELECT * FROM "+a.adapter.QualifiedTable(table))
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", table, err)
	}
	defer rows.Close()

	resultCols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	// Result order follows the catalog order; match by name to be safe.
	byName := make(map[string]cell.Column, len(columns))
	for _, c := range columns {
		byName[c.Name] = c
	}
	ordered := make([]cell.Column, len(resultCols))
	for i, name := range resultCols {
		col, ok := byName[name]
		if !ok {
			col = cell.Column{Name: name, Type: cell.String}
		}
		ordered[i] = col
	}

	data := &TableData{Name: table, Columns: ordered}
	for rows.Next() {
		if limit > 0 && len(data.Rows) >= limit {
			data.Truncated = true
			break
		}
		row, err := scanValues(rows, ordered)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row %d: %w", len(data.Rows)+1, err)
		}
		if cell.IsBlank(row) {
			continue
		}
		data.Rows = append(data.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return data, nil
}

// scanValues reads the current row and coerces each driver value into its
// column's canonical form. Values the codec rejects are kept as text so a
// single odd cell does not hide the table.
func scanValues(rows *sql.Rows, columns []cell.Column) ([]cell.Value, error) {
	raw := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	row := make([]cell.Value, len(columns))
	for i, col := range columns {
		v, err := col.Coerce(raw[i])
		if err != nil {
			logError("Column %s: %v; keeping value as text", col.Name, err)
			v, _ = cell.Coerce(raw[i], cell.String)
		}
		row[i] = v
	}
	return row, nil
}
