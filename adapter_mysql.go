package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/shakram02/go-sql-admin-mcp/internal/sqlscan"
)

// MySQLAdapter implements DBAdapter for MySQL databases.
type MySQLAdapter struct{}

func (a *MySQLAdapter) DriverName() string     { return "mysql" }
func (a *MySQLAdapter) ServerName() string     { return "mysql-sql-admin-mcp-server" }
func (a *MySQLAdapter) URIScheme() string      { return "mysql" }
func (a *MySQLAdapter) Lexer() sqlscan.Dialect { return sqlscan.MySQL }
func (a *MySQLAdapter) Placeholder(int) string { return "?" }

func (a *MySQLAdapter) QuoteIdent(name string) string { return quoteWith(name, "`") }

// QualifiedTable leaves the table in the connection's current database.
func (a *MySQLAdapter) QualifiedTable(table string) string { return a.QuoteIdent(table) }

func (a *MySQLAdapter) BuildDSN(readOnly bool) (string, error) {
	host := os.Getenv("MCP_MYSQL_HOST")
	port := os.Getenv("MCP_MYSQL_PORT")
	db := os.Getenv("MCP_MYSQL_DB")
	user := os.Getenv("MCP_MYSQL_USER")
	password := os.Getenv("MCP_MYSQL_PASSWORD")

	var missing []string
	if host == "" {
		missing = append(missing, "MCP_MYSQL_HOST")
	}
	if port == "" {
		missing = append(missing, "MCP_MYSQL_PORT")
	}
	if db == "" {
		missing = append(missing, "MCP_MYSQL_DB")
	}
	if user == "" {
		missing = append(missing, "MCP_MYSQL_USER")
	}
	if password == "" {
		missing = append(missing, "MCP_MYSQL_PASSWORD")
	}

	if len(missing) > 0 {
		return "", fmt.Errorf("missing required environment variables: %v", missing)
	}

	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = host + ":" + port
	cfg.DBName = db
	// DATETIME columns scan into time.Time instead of raw bytes.
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

func (a *MySQLAdapter) DatabaseName(dsn string) string {
	cfg, err := mysql.ParseDSN(dsn)
	if err == nil {
		return cfg.DBName
	}
	// DSN format: user:password@tcp(host:port)/dbname?params
	parts := strings.Split(dsn, "/")
	if len(parts) < 2 {
		return ""
	}
	dbPart := parts[len(parts)-1]
	if idx := strings.Index(dbPart, "?"); idx != -1 {
		dbPart = dbPart[:idx]
	}
	return dbPart
}

func (a *MySQLAdapter) EnforceReadOnly(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, "SET SESSION TRANSACTION READ ONLY")
	return err
}

func (a *MySQLAdapter) ListTablesQuery(databaseName string) (string, []any) {
	return `SELECT table_name FROM information_schema.tables WHERE table_schema = ? AND table_type = 'BASE TABLE' ORDER BY table_name`,
		[]any{databaseName}
}

func (a *MySQLAdapter) ReadSchemaQuery(databaseName, tableName string) (string, []any) {
	return `SELECT column_name, data_type, is_nullable, column_key, column_default, extra
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`, []any{databaseName, tableName}
}

func (a *MySQLAdapter) ScanSchemaRow(rows *sql.Rows) (SchemaColumn, error) {
	var colName, dataType, isNullable, colKey string
	var colDefault, extra sql.NullString

	if err := rows.Scan(&colName, &dataType, &isNullable, &colKey, &colDefault, &extra); err != nil {
		return SchemaColumn{}, err
	}

	return SchemaColumn{
		Name:     colName,
		DataType: dataType,
		Nullable: isNullable,
		Key:      colKey,
		Default:  nullStringPtr(colDefault),
		Extra:    extra.String,
	}, nil
}

var mysqlForbiddenPatterns = compilePatterns([]patternDesc{
	{`(?i)\bINTO\s+OUTFILE\b`, "INTO OUTFILE"},
	{`(?i)\bINTO\s+DUMPFILE\b`, "INTO DUMPFILE"},
	{`(?i)\bLOAD_FILE\s*\(`, "LOAD_FILE()"},
	{`(?i)\bINTO\s+@`, "INTO @variable"},
})

var mysqlDoSFunctions = compilePatterns([]patternDesc{
	{`(?i)\bSLEEP\s*\(`, "SLEEP()"},
	{`(?i)\bBENCHMARK\s*\(`, "BENCHMARK()"},
	{`(?i)\bGET_LOCK\s*\(`, "GET_LOCK()"},
	{`(?i)\bRELEASE_LOCK\s*\(`, "RELEASE_LOCK()"},
	{`(?i)\bIS_FREE_LOCK\s*\(`, "IS_FREE_LOCK()"},
	{`(?i)\bIS_USED_LOCK\s*\(`, "IS_USED_LOCK()"},
	{`(?i)\bWAIT_FOR_EXECUTED_GTID_SET\s*\(`, "WAIT_FOR_EXECUTED_GTID_SET()"},
	{`(?i)\bWAIT_UNTIL_SQL_THREAD_AFTER_GTIDS\s*\(`, "WAIT_UNTIL_SQL_THREAD_AFTER_GTIDS()"},
	{`(?i)\bMASTER_POS_WAIT\s*\(`, "MASTER_POS_WAIT()"},
	{`(?i)\bSOURCE_POS_WAIT\s*\(`, "SOURCE_POS_WAIT()"},
})

var mysqlExtraKeywords = compileKeywords("CALL", "EXEC", "EXECUTE", "REPLACE", "LOAD", "HANDLER", "RENAME")

func (a *MySQLAdapter) ValidateQuery(sqlQuery string) error {
	cleaned := a.Lexer().Strip(sqlQuery)

	if err := validateCommon(sqlQuery, cleaned); err != nil {
		return err
	}
	if err := mysqlForbiddenPatterns.check(sqlQuery, "query contains forbidden pattern"); err != nil {
		return err
	}
	if err := mysqlDoSFunctions.check(sqlQuery, "query contains forbidden function"); err != nil {
		return err
	}
	return mysqlExtraKeywords.check(cleaned, "query contains forbidden keyword")
}
