package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shakram02/go-sql-admin-mcp/internal/cell"
	"github.com/shakram02/go-sql-admin-mcp/internal/sqlscan"
)

// DBAdapter defines the contract for database-specific behavior.
// Each supported database (MySQL, PostgreSQL, SQLite) implements this interface.
type DBAdapter interface {
	// DriverName returns the database/sql driver name (e.g., "mysql", "postgres", "sqlite").
	DriverName() string

	// ServerName returns the MCP server name for this adapter.
	ServerName() string

	// URIScheme returns the resource URI scheme (e.g., "mysql", "postgres", "sqlite").
	URIScheme() string

	// BuildDSN constructs a DSN from environment variables.
	BuildDSN(readOnly bool) (string, error)

	// DatabaseName extracts the database/file name from a DSN string.
	DatabaseName(dsn string) string

	// EnforceReadOnly configures the database connection for read-only access.
	EnforceReadOnly(ctx context.Context, db *sql.DB) error

	// ListTablesQuery returns the SQL query and arguments to list all tables.
	ListTablesQuery(databaseName string) (string, []any)

	// ReadSchemaQuery returns the SQL query and arguments to read column info for a table.
	ReadSchemaQuery(databaseName, tableName string) (string, []any)

	// ScanSchemaRow scans a single row from the schema query result.
	ScanSchemaRow(rows *sql.Rows) (SchemaColumn, error)

	// ValidateQuery reports whether a SQL query is a single read-only statement.
	ValidateQuery(sql string) error

	// Lexer returns the lexical rules used to strip literals and split scripts.
	Lexer() sqlscan.Dialect

	// QuoteIdent quotes a column or table identifier.
	QuoteIdent(name string) string

	// QualifiedTable returns the quoted, schema-qualified name of a table.
	QualifiedTable(table string) string

	// Placeholder returns the bind parameter marker for the n-th (1-based) argument.
	Placeholder(n int) string
}

// SchemaColumn is one row of a table's catalog description.
type SchemaColumn struct {
	Name     string  `json:"column_name"`
	DataType string  `json:"data_type"`
	Nullable string  `json:"is_nullable"`
	Key      string  `json:"column_key,omitempty"`
	Default  *string `json:"column_default,omitempty"`
	Extra    string  `json:"extra,omitempty"`
}

// Column converts the catalog description into a typed column.
func (c SchemaColumn) Column() cell.Column {
	return cell.Column{
		Name:       c.Name,
		Type:       cell.ParseSQLType(c.DataType),
		PrimaryKey: c.Key == "PRI",
	}
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// quoteWith wraps name in the quote character, doubling embedded quotes.
func quoteWith(name string, quote string) string {
	return quote + strings.ReplaceAll(name, quote, quote+quote) + quote
}

// NewAdapter returns the adapter for a driver name.
func NewAdapter(driver, pgSchema string) (DBAdapter, error) {
	switch strings.ToLower(driver) {
	case "mysql":
		return &MySQLAdapter{}, nil
	case "postgres", "postgresql", "pg":
		if pgSchema == "" {
			pgSchema = DefaultPostgresSchema
		}
		return &PostgresAdapter{Schema: pgSchema}, nil
	case "sqlite", "sqlite3":
		return &SQLiteAdapter{}, nil
	}
	return nil, fmt.Errorf("unsupported database driver: %q (expected mysql, postgres or sqlite)", driver)
}
