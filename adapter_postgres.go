package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/shakram02/go-sql-admin-mcp/internal/sqlscan"
)

// DefaultPostgresSchema is the schema administered when MCP_PG_SCHEMA is unset.
const DefaultPostgresSchema = "public"

// PostgresAdapter implements DBAdapter for PostgreSQL databases.
type PostgresAdapter struct {
	Schema string
}

func (a *PostgresAdapter) DriverName() string     { return "postgres" }
func (a *PostgresAdapter) ServerName() string     { return "postgres-sql-admin-mcp-server" }
func (a *PostgresAdapter) URIScheme() string      { return "postgres" }
func (a *PostgresAdapter) Lexer() sqlscan.Dialect { return sqlscan.Postgres }

func (a *PostgresAdapter) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (a *PostgresAdapter) QuoteIdent(name string) string { return pq.QuoteIdentifier(name) }

func (a *PostgresAdapter) QualifiedTable(table string) string {
	return pq.QuoteIdentifier(a.schema()) + "." + pq.QuoteIdentifier(table)
}

func (a *PostgresAdapter) schema() string {
	if a.Schema == "" {
		return DefaultPostgresSchema
	}
	return a.Schema
}

func (a *PostgresAdapter) BuildDSN(readOnly bool) (string, error) {
	host := os.Getenv("MCP_PG_HOST")
	port := os.Getenv("MCP_PG_PORT")
	db := os.Getenv("MCP_PG_DB")
	user := os.Getenv("MCP_PG_USER")
	password := os.Getenv("MCP_PG_PASSWORD")
	sslmode := os.Getenv("MCP_PG_SSLMODE")
	if sslmode == "" {
		sslmode = "prefer"
	}

	var missing []string
	if host == "" {
		missing = append(missing, "MCP_PG_HOST")
	}
	if port == "" {
		missing = append(missing, "MCP_PG_PORT")
	}
	if db == "" {
		missing = append(missing, "MCP_PG_DB")
	}
	if user == "" {
		missing = append(missing, "MCP_PG_USER")
	}
	if password == "" {
		missing = append(missing, "MCP_PG_PASSWORD")
	}

	if len(missing) > 0 {
		return "", fmt.Errorf("missing required environment variables: %v", missing)
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.PathEscape(user), url.PathEscape(password), host, port, db, sslmode), nil
}

func (a *PostgresAdapter) DatabaseName(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}

func (a *PostgresAdapter) EnforceReadOnly(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, "SET SESSION CHARACTERISTICS AS TRANSACTION READ ONLY")
	return err
}

func (a *PostgresAdapter) ListTablesQuery(databaseName string) (string, []any) {
	return `SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 AND table_catalog = $2 AND table_type = 'BASE TABLE'
		ORDER BY table_name`,
		[]any{a.schema(), databaseName}
}

func (a *PostgresAdapter) ReadSchemaQuery(databaseName, tableName string) (string, []any) {
	return `SELECT c.column_name, c.data_type, c.is_nullable, c.column_default,
			CASE WHEN k.column_name IS NULL THEN '' ELSE 'PRI' END AS column_key
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT kcu.table_schema, kcu.table_name, kcu.column_name
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
			WHERE tc.constraint_type = 'PRIMARY KEY'
		) k ON k.table_schema = c.table_schema AND k.table_name = c.table_name AND k.column_name = c.column_name
		WHERE c.table_catalog = $1 AND c.table_schema = $2 AND c.table_name = $3
		ORDER BY c.ordinal_position`, []any{databaseName, a.schema(), tableName}
}

func (a *PostgresAdapter) ScanSchemaRow(rows *sql.Rows) (SchemaColumn, error) {
	var colName, dataType, isNullable, colKey string
	var colDefault sql.NullString

	if err := rows.Scan(&colName, &dataType, &isNullable, &colDefault, &colKey); err != nil {
		return SchemaColumn{}, err
	}

	return SchemaColumn{
		Name:     colName,
		DataType: dataType,
		Nullable: isNullable,
		Key:      colKey,
		Default:  nullStringPtr(colDefault),
	}, nil
}

var postgresForbiddenPatterns = compilePatterns([]patternDesc{
	{`(?i)\bCOPY\s+.*\bTO\b`, "COPY ... TO"},
	{`(?i)\bCOPY\s+.*\bFROM\b`, "COPY ... FROM"},
	{`(?i)\bpg_read_file\s*\(`, "pg_read_file()"},
	{`(?i)\bpg_read_binary_file\s*\(`, "pg_read_binary_file()"},
	{`(?i)\bpg_ls_dir\s*\(`, "pg_ls_dir()"},
	{`(?i)\blo_import\s*\(`, "lo_import()"},
	{`(?i)\blo_export\s*\(`, "lo_export()"},
})

var postgresDoSFunctions = compilePatterns([]patternDesc{
	{`(?i)\bpg_sleep\s*\(`, "pg_sleep()"},
	{`(?i)\bpg_sleep_for\s*\(`, "pg_sleep_for()"},
	{`(?i)\bpg_sleep_until\s*\(`, "pg_sleep_until()"},
	{`(?i)\bpg_advisory_lock\s*\(`, "pg_advisory_lock()"},
	{`(?i)\bpg_advisory_xact_lock\s*\(`, "pg_advisory_xact_lock()"},
	{`(?i)\bpg_try_advisory_lock\s*\(`, "pg_try_advisory_lock()"},
})

var postgresExtraKeywords = compileKeywords("CALL", "EXECUTE", "COPY", "LISTEN", "NOTIFY", "PREPARE", "DEALLOCATE", "VACUUM", "REINDEX", "CLUSTER")

func (a *PostgresAdapter) ValidateQuery(sqlQuery string) error {
	cleaned := a.Lexer().Strip(sqlQuery)

	if err := validateCommon(sqlQuery, cleaned); err != nil {
		return err
	}
	if err := postgresForbiddenPatterns.check(sqlQuery, "query contains forbidden pattern"); err != nil {
		return err
	}
	if err := postgresDoSFunctions.check(sqlQuery, "query contains forbidden function"); err != nil {
		return err
	}
	return postgresExtraKeywords.check(cleaned, "query contains forbidden keyword")
}
