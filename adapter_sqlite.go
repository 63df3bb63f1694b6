package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/shakram02/go-sql-admin-mcp/internal/sqlscan"
)

// SQLiteAdapter implements DBAdapter for SQLite databases.
type SQLiteAdapter struct{}

func (a *SQLiteAdapter) DriverName() string     { return "sqlite" }
func (a *SQLiteAdapter) ServerName() string     { return "sqlite-sql-admin-mcp-server" }
func (a *SQLiteAdapter) URIScheme() string      { return "sqlite" }
func (a *SQLiteAdapter) Lexer() sqlscan.Dialect { return sqlscan.SQLite }
func (a *SQLiteAdapter) Placeholder(int) string { return "?" }

func (a *SQLiteAdapter) QuoteIdent(name string) string { return quoteWith(name, `"`) }

// QualifiedTable uses the bare table name; SQLite has one schema per file.
func (a *SQLiteAdapter) QualifiedTable(table string) string { return a.QuoteIdent(table) }

func (a *SQLiteAdapter) BuildDSN(readOnly bool) (string, error) {
	dbPath := os.Getenv("MCP_SQLITE_PATH")
	if dbPath == "" {
		return "", fmt.Errorf("missing required environment variable: MCP_SQLITE_PATH")
	}
	if !readOnly {
		return dbPath, nil
	}
	// Enforce read-only mode via DSN parameter
	if !strings.Contains(dbPath, "?") {
		return dbPath + "?mode=ro", nil
	}
	if !strings.Contains(dbPath, "mode=") {
		return dbPath + "&mode=ro", nil
	}
	return dbPath, nil
}

func (a *SQLiteAdapter) DatabaseName(dsn string) string {
	// DSN is a file path, possibly with ?mode=ro
	path := strings.TrimPrefix(dsn, "file:")
	if idx := strings.Index(path, "?"); idx != -1 {
		path = path[:idx]
	}
	// Extract just the filename without directory
	parts := strings.Split(path, "/")
	name := parts[len(parts)-1]
	// Remove common extensions for display
	name = strings.TrimSuffix(name, ".db")
	name = strings.TrimSuffix(name, ".sqlite")
	name = strings.TrimSuffix(name, ".sqlite3")
	return name
}

func (a *SQLiteAdapter) EnforceReadOnly(ctx context.Context, db *sql.DB) error {
	// PRAGMA query_only backs up ?mode=ro in the DSN.
	_, err := db.ExecContext(ctx, "PRAGMA query_only = ON")
	return err
}

func (a *SQLiteAdapter) ListTablesQuery(databaseName string) (string, []any) {
	// databaseName is ignored (SQLite has one DB per file).
	return `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`,
		nil
}

func (a *SQLiteAdapter) ReadSchemaQuery(databaseName, tableName string) (string, []any) {
	// PRAGMA table_info cannot use ? placeholders, so we embed the table name safely.
	return fmt.Sprintf("PRAGMA table_info('%s')", strings.ReplaceAll(tableName, "'", "''")),
		nil
}

func (a *SQLiteAdapter) ScanSchemaRow(rows *sql.Rows) (SchemaColumn, error) {
	// PRAGMA table_info returns: cid, name, type, notnull, dflt_value, pk
	var cid int
	var name, colType string
	var notNull, pk int
	var dfltValue sql.NullString

	if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
		return SchemaColumn{}, err
	}

	col := SchemaColumn{
		Name:     name,
		DataType: colType,
		Nullable: "YES",
		Default:  nullStringPtr(dfltValue),
	}
	if notNull == 1 {
		col.Nullable = "NO"
	}
	if pk > 0 {
		col.Key = "PRI"
	}
	return col, nil
}

var sqliteForbiddenPatterns = compilePatterns([]patternDesc{
	{`(?i)\bload_extension\s*\(`, "load_extension()"},
	{`(?i)\bwritefile\s*\(`, "writefile()"},
	{`(?i)\bedit\s*\(`, "edit()"},
	{`(?i)\bfts3_tokenizer\s*\(`, "fts3_tokenizer()"},
})

var sqliteExtraKeywords = compileKeywords("REPLACE", "ATTACH", "DETACH", "REINDEX", "VACUUM")

var pragmaWritePattern = regexp.MustCompile(`(?i)\bPRAGMA\s+\w+\s*=`)

func (a *SQLiteAdapter) ValidateQuery(sqlQuery string) error {
	cleaned := a.Lexer().Strip(sqlQuery)

	if err := validateCommon(sqlQuery, cleaned); err != nil {
		return err
	}
	if err := sqliteForbiddenPatterns.check(sqlQuery, "query contains forbidden pattern"); err != nil {
		return err
	}
	if err := sqliteExtraKeywords.check(cleaned, "query contains forbidden keyword"); err != nil {
		return err
	}

	// Block PRAGMA writes (PRAGMA x = value), but allow read PRAGMAs
	if pragmaWritePattern.MatchString(cleaned) {
		return fmt.Errorf("PRAGMA writes are not allowed")
	}

	return nil
}
