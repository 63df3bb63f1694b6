package main

import (
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"

	"github.com/shakram02/go-sql-admin-mcp/internal/cell"
)

var allAdapters = []DBAdapter{&MySQLAdapter{}, &PostgresAdapter{}, &SQLiteAdapter{}}

func TestValidateQuery_AllowedQueries(t *testing.T) {
	allowedQueries := []string{
		"SELECT * FROM users",
		"SELECT id, name FROM users WHERE id = 1",
		"select * from users",
		"SHOW TABLES",
		"DESCRIBE users",
		"DESC users",
		"EXPLAIN SELECT * FROM users",
		"WITH recent AS (SELECT * FROM orders) SELECT * FROM recent",
		"SELECT * FROM settings",
		"SELECT * FROM user_settings WHERE setting_name = 'theme'",
		"SELECT created_at FROM orders",
		"SELECT updated_at FROM products",
		"SELECT deleted FROM items",
		"SELECT * FROM users WHERE name = 'DROP TABLE users'",
		"SELECT * FROM users;",
	}

	for _, adapter := range allAdapters {
		for _, query := range allowedQueries {
			t.Run(adapter.DriverName()+"/"+query, func(t *testing.T) {
				if err := adapter.ValidateQuery(query); err != nil {
					t.Errorf("Expected query to be allowed, but got error: %v", err)
				}
			})
		}
	}
}

func TestValidateQuery_BlockedQueries(t *testing.T) {
	common := []string{
		"INSERT INTO users VALUES (1, 'test')",
		"UPDATE users SET name = 'test'",
		"DELETE FROM users",
		"DROP TABLE users",
		"CREATE TABLE test (id INT)",
		"ALTER TABLE users ADD COLUMN age INT",
		"TRUNCATE TABLE users",
		"GRANT ALL ON users TO someone",
		"SET @var = 1",
		"SELECT 1; DROP TABLE users",
		"WITH x AS (SELECT 1) DELETE FROM users",
	}
	extra := map[string][]string{
		"mysql": {
			"CALL some_procedure()",
			"SELECT * INTO OUTFILE '/tmp/data.txt' FROM users",
			"SELECT LOAD_FILE('/etc/passwd')",
			"SELECT SLEEP(10)",
			"SELECT GET_LOCK('lock', 10)",
			"SELECT 1; -- comment\nDROP TABLE users",
			"REPLACE INTO users VALUES (1, 'test')",
			"RENAME TABLE users TO users_old",
		},
		"postgres": {
			"SELECT pg_sleep(10)",
			"SELECT pg_read_file('/etc/passwd')",
			"COPY users TO '/tmp/users.csv'",
			"SELECT pg_advisory_lock(1)",
			"EXPLAIN EXECUTE plan",
			"SELECT 1 # ; DROP TABLE users",
		},
		"sqlite": {
			"SELECT load_extension('hack.so')",
			"SELECT writefile('/tmp/data', content)",
			"ATTACH DATABASE '/tmp/other.db' AS other",
			"EXPLAIN PRAGMA journal_mode = WAL",
			"VACUUM",
		},
	}

	for _, adapter := range allAdapters {
		queries := append(append([]string{}, common...), extra[adapter.DriverName()]...)
		for _, query := range queries {
			t.Run(adapter.DriverName()+"/"+query, func(t *testing.T) {
				if err := adapter.ValidateQuery(query); err == nil {
					t.Error("Expected query to be blocked, but it was allowed")
				}
			})
		}
	}
}

func TestValidateQuery_EmptyQuery(t *testing.T) {
	for _, adapter := range allAdapters {
		t.Run(adapter.DriverName(), func(t *testing.T) {
			if err := adapter.ValidateQuery(""); err == nil {
				t.Error("Expected empty query to be rejected")
			}
			if err := adapter.ValidateQuery("   "); err == nil {
				t.Error("Expected whitespace-only query to be rejected")
			}
		})
	}
}

func TestValidateQuery_CommentInjection(t *testing.T) {
	queries := map[string][]string{
		"mysql":    {"SELECT 1 -- ; DROP TABLE users", "SELECT 1 /* ; DROP TABLE users */", "SELECT 1 # ; DROP TABLE users"},
		"postgres": {"SELECT 1 -- ; DROP TABLE users", "SELECT * FROM t WHERE body = $$DROP TABLE users$$", "SELECT * FROM t WHERE body = $tag$x; DROP TABLE users$tag$"},
		"sqlite":   {"SELECT 1 /* ; DROP TABLE users */", "SELECT 1 -- ; DROP TABLE users"},
	}

	for _, adapter := range allAdapters {
		for _, query := range queries[adapter.DriverName()] {
			t.Run(adapter.DriverName()+"/"+query, func(t *testing.T) {
				if err := adapter.ValidateQuery(query); err != nil {
					t.Errorf("Expected query to be allowed, but got error: %v", err)
				}
			})
		}
	}
}

func TestQuoteIdentAndPlaceholder(t *testing.T) {
	tests := []struct {
		adapter     DBAdapter
		ident       string
		table       string
		placeholder string
	}{
		{&MySQLAdapter{}, "`we``ird`", "`orders`", "?"},
		{&PostgresAdapter{}, `"we""ird"`, `"public"."orders"`, "$3"},
		{&PostgresAdapter{Schema: "sales"}, `"we""ird"`, `"sales"."orders"`, "$3"},
		{&SQLiteAdapter{}, `"we""ird"`, `"orders"`, "?"},
	}

	weird := map[string]string{"mysql": "we`ird", "postgres": `we"ird`, "sqlite": `we"ird`}
	for _, tc := range tests {
		name := tc.adapter.DriverName()
		t.Run(name+"/"+tc.table, func(t *testing.T) {
			if got := tc.adapter.QuoteIdent(weird[name]); got != tc.ident {
				t.Errorf("QuoteIdent = %q, want %q", got, tc.ident)
			}
			if got := tc.adapter.QualifiedTable("orders"); got != tc.table {
				t.Errorf("QualifiedTable = %q, want %q", got, tc.table)
			}
			if got := tc.adapter.Placeholder(3); got != tc.placeholder {
				t.Errorf("Placeholder(3) = %q, want %q", got, tc.placeholder)
			}
		})
	}
}

func TestNewAdapter(t *testing.T) {
	tests := []struct {
		driver string
		want   string
	}{
		{"mysql", "mysql"},
		{"MySQL", "mysql"},
		{"postgres", "postgres"},
		{"postgresql", "postgres"},
		{"pg", "postgres"},
		{"sqlite", "sqlite"},
		{"sqlite3", "sqlite"},
	}
	for _, tc := range tests {
		t.Run(tc.driver, func(t *testing.T) {
			adapter, err := NewAdapter(tc.driver, "")
			if err != nil {
				t.Fatalf("NewAdapter(%q) error: %v", tc.driver, err)
			}
			if adapter.DriverName() != tc.want {
				t.Errorf("DriverName() = %q, want %q", adapter.DriverName(), tc.want)
			}
		})
	}

	if _, err := NewAdapter("oracle", ""); err == nil {
		t.Error("Expected unsupported driver to be rejected")
	}

	adapter, _ := NewAdapter("postgres", "")
	if got := adapter.(*PostgresAdapter).Schema; got != DefaultPostgresSchema {
		t.Errorf("default schema = %q, want %q", got, DefaultPostgresSchema)
	}
}

func TestSQLiteBuildDSN(t *testing.T) {
	tests := []struct {
		path     string
		readOnly bool
		want     string
	}{
		{"/data/shop.db", false, "/data/shop.db"},
		{"/data/shop.db", true, "/data/shop.db?mode=ro"},
		{"/data/shop.db?cache=shared", true, "/data/shop.db?cache=shared&mode=ro"},
		{"/data/shop.db?mode=rw", true, "/data/shop.db?mode=rw"},
	}
	adapter := &SQLiteAdapter{}
	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			t.Setenv("MCP_SQLITE_PATH", tc.path)
			got, err := adapter.BuildDSN(tc.readOnly)
			if err != nil {
				t.Fatalf("BuildDSN error: %v", err)
			}
			if got != tc.want {
				t.Errorf("BuildDSN = %q, want %q", got, tc.want)
			}
		})
	}

	t.Run("missing path", func(t *testing.T) {
		t.Setenv("MCP_SQLITE_PATH", "")
		if _, err := adapter.BuildDSN(false); err == nil {
			t.Error("Expected missing MCP_SQLITE_PATH to be rejected")
		}
	})
}

func TestMySQLBuildDSN(t *testing.T) {
	t.Setenv("MCP_MYSQL_HOST", "db")
	t.Setenv("MCP_MYSQL_PORT", "3306")
	t.Setenv("MCP_MYSQL_DB", "shop")
	t.Setenv("MCP_MYSQL_USER", "app")
	t.Setenv("MCP_MYSQL_PASSWORD", "p@ss:word")

	adapter := &MySQLAdapter{}
	dsn, err := adapter.BuildDSN(false)
	if err != nil {
		t.Fatalf("BuildDSN error: %v", err)
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("ParseDSN(%q) error: %v", dsn, err)
	}
	if cfg.Addr != "db:3306" || cfg.User != "app" || cfg.Passwd != "p@ss:word" || !cfg.ParseTime {
		t.Errorf("unexpected config from %q: %+v", dsn, cfg)
	}
	if got := adapter.DatabaseName(dsn); got != "shop" {
		t.Errorf("DatabaseName = %q, want shop", got)
	}

	t.Setenv("MCP_MYSQL_PASSWORD", "")
	if _, err := adapter.BuildDSN(false); err == nil || !strings.Contains(err.Error(), "MCP_MYSQL_PASSWORD") {
		t.Errorf("Expected missing password error, got %v", err)
	}
}

func TestPostgresBuildDSN(t *testing.T) {
	t.Setenv("MCP_PG_HOST", "db")
	t.Setenv("MCP_PG_PORT", "5432")
	t.Setenv("MCP_PG_DB", "shop")
	t.Setenv("MCP_PG_USER", "app")
	t.Setenv("MCP_PG_PASSWORD", "secret")
	t.Setenv("MCP_PG_SSLMODE", "")

	adapter := &PostgresAdapter{}
	dsn, err := adapter.BuildDSN(false)
	if err != nil {
		t.Fatalf("BuildDSN error: %v", err)
	}
	if want := "postgres://app:secret@db:5432/shop?sslmode=prefer"; dsn != want {
		t.Errorf("BuildDSN = %q, want %q", dsn, want)
	}
	if got := adapter.DatabaseName(dsn); got != "shop" {
		t.Errorf("DatabaseName = %q, want shop", got)
	}
}

func TestSQLiteDatabaseName(t *testing.T) {
	adapter := &SQLiteAdapter{}
	tests := map[string]string{
		"/data/shop.db":              "shop",
		"file:/data/shop.sqlite":     "shop",
		"/data/shop.sqlite3?mode=ro": "shop",
		"inventory":                  "inventory",
	}
	for dsn, want := range tests {
		if got := adapter.DatabaseName(dsn); got != want {
			t.Errorf("DatabaseName(%q) = %q, want %q", dsn, got, want)
		}
	}
}

func TestSchemaColumn_Column(t *testing.T) {
	tests := []struct {
		schema SchemaColumn
		want   cell.Column
	}{
		{SchemaColumn{Name: "id", DataType: "bigint", Key: "PRI"}, cell.Column{Name: "id", Type: cell.Integer, PrimaryKey: true}},
		{SchemaColumn{Name: "price", DataType: "numeric(10,2)"}, cell.Column{Name: "price", Type: cell.Decimal}},
		{SchemaColumn{Name: "meta", DataType: "jsonb"}, cell.Column{Name: "meta", Type: cell.Json}},
		{SchemaColumn{Name: "code", DataType: "character varying"}, cell.Column{Name: "code", Type: cell.CharacterVarying}},
	}
	for _, tc := range tests {
		t.Run(tc.schema.Name, func(t *testing.T) {
			if got := tc.schema.Column(); got != tc.want {
				t.Errorf("Column() = %+v, want %+v", got, tc.want)
			}
		})
	}
}
