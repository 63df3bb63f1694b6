package scripts

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_MergesDefaultsAndUser(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, DefaultFile), `{"count users": "SELECT COUNT(*) FROM users", "all orders": "SELECT * FROM orders"}`)
	writeFile(t, filepath.Join(dir, UserFile), `{"all orders": "SELECT * FROM orders ORDER BY id", "mine": "SELECT 1"}`)

	lib, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := []string{"all orders", "count users", "mine"}
	if got := lib.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names = %v, want %v", got, want)
	}

	sql, err := lib.Get("all orders")
	if err != nil || sql != "SELECT * FROM orders ORDER BY id" {
		t.Errorf("Expected user script to override default, got %q (%v)", sql, err)
	}

	if _, err := lib.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLoad_MissingFiles(t *testing.T) {
	lib, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(lib.Names()) != 0 {
		t.Errorf("Expected empty library, got %v", lib.Names())
	}
}

func TestLoad_BadJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, DefaultFile), `{"broken": `)
	if _, err := Load(dir); err == nil {
		t.Error("Expected malformed default scripts to fail loading")
	}
}

func TestSave_PersistsOnlyUserScripts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, DefaultFile), `{"builtin": "SELECT 1"}`)

	lib, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	replaced, err := lib.Save("report", "SELECT 2")
	if err != nil || replaced {
		t.Fatalf("Save = %v, %v", replaced, err)
	}
	replaced, err = lib.Save("report", "SELECT 3")
	if err != nil || !replaced {
		t.Fatalf("Expected second save to replace, got %v, %v", replaced, err)
	}

	if _, err := lib.Save("  ", "SELECT 1"); !errors.Is(err, ErrEmptyName) {
		t.Errorf("Expected ErrEmptyName, got %v", err)
	}
	if _, err := lib.Save("x", " \n "); !errors.Is(err, ErrEmptyScript) {
		t.Errorf("Expected ErrEmptyScript, got %v", err)
	}

	reloaded, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	sql, err := reloaded.Get("report")
	if err != nil || sql != "SELECT 3" {
		t.Errorf("Expected persisted script, got %q (%v)", sql, err)
	}

	data, err := os.ReadFile(filepath.Join(dir, UserFile))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "{\n  \"report\": \"SELECT 3\"\n}" {
		t.Errorf("Unexpected user file content: %s", data)
	}
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, DefaultFile), `{"builtin": "SELECT 1"}`)
	lib, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := lib.Delete("builtin"); !errors.Is(err, ErrDefaultScript) {
		t.Errorf("Expected ErrDefaultScript, got %v", err)
	}
	if err := lib.Delete("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if _, err := lib.Save("temp", "SELECT 9"); err != nil {
		t.Fatal(err)
	}
	if err := lib.Delete("temp"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := lib.Get("temp"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected deleted script to be gone, got %v", err)
	}
}
