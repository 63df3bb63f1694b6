package sqlscan

import (
	"reflect"
	"strings"
	"testing"
)

func TestStrip(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		input    string
		expected string
	}{
		{"string stripped", SQLite, "SELECT * FROM users WHERE name = 'DROP TABLE'", "SELECT * FROM users WHERE name = ''"},
		{"doubled quote", SQLite, "SELECT 'it''s; fine' FROM t", "SELECT '' FROM t"},
		{"-- comment", Postgres, "SELECT * FROM users -- comment", "SELECT * FROM users  "},
		{"/* */ comment", Postgres, "SELECT * FROM users /* comment */", "SELECT * FROM users  "},
		{"unterminated block comment", Postgres, "SELECT 1 /* open", "SELECT 1  "},
		{"mysql hash comment", MySQL, "SELECT * FROM users # comment", "SELECT * FROM users  "},
		{"mysql backtick", MySQL, "SELECT * FROM `table_name`", "SELECT * FROM `table_name`"},
		{"mysql backslash escape", MySQL, `SELECT 'a\'b; DROP' FROM t`, "SELECT '' FROM t"},
		{"mysql double-quoted string", MySQL, `SELECT "DROP" FROM t`, `SELECT "" FROM t`},
		{"postgres identifier kept", Postgres, `SELECT * FROM "table_name"`, `SELECT * FROM "table_name"`},
		{"postgres dollar quote", Postgres, "SELECT $$DROP TABLE$$", "SELECT ''"},
		{"postgres tagged dollar quote", Postgres, "SELECT $fn$DROP$fn$ AS x", "SELECT '' AS x"},
		{"postgres placeholders untouched", Postgres, "SELECT * FROM t WHERE a = $1 AND b = $2", "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{"sqlite bracket", SQLite, "SELECT * FROM [table_name]", "SELECT * FROM [table_name]"},
		{"hash is code in sqlite", SQLite, "SELECT # FROM users", "SELECT # FROM users"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := tc.dialect.Strip(tc.input)
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	script := strings.Join([]string{
		`DROP TABLE IF EXISTS "notes";`,
		`CREATE TABLE "notes" ("id" INTEGER PRIMARY KEY, "body" TEXT);`,
		`INSERT INTO "notes" ("id", "body") VALUES (1, 'semi; colon');`,
		`INSERT INTO "notes" ("id", "body") VALUES (2, 'line one`,
		`line two; still text');`,
		`-- trailing comment; not a statement`,
	}, "\n")

	want := []string{
		`DROP TABLE IF EXISTS "notes"`,
		`CREATE TABLE "notes" ("id" INTEGER PRIMARY KEY, "body" TEXT)`,
		`INSERT INTO "notes" ("id", "body") VALUES (1, 'semi; colon')`,
		"INSERT INTO \"notes\" (\"id\", \"body\") VALUES (2, 'line one\nline two; still text')",
	}

	got := SQLite.Split(script)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Split mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestSplit_DialectRules(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		script  string
		want    int
	}{
		{"mysql backslash keeps string open", MySQL, `INSERT INTO t VALUES ('a\';b'); SELECT 1`, 2},
		{"postgres dollar body", Postgres, "CREATE FUNCTION f() RETURNS int AS $$ SELECT 1; $$ LANGUAGE sql; SELECT 2;", 2},
		{"empty statements skipped", SQLite, ";;  ; SELECT 1;;", 1},
		{"no terminator", SQLite, "SELECT 1", 1},
		{"only comments", MySQL, "# a\n-- b\n/* c */", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.dialect.Split(tc.script)
			if len(got) != tc.want {
				t.Errorf("Expected %d statements, got %d: %q", tc.want, len(got), got)
			}
		})
	}
}
