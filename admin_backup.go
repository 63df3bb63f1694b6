package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/shakram02/go-sql-admin-mcp/internal/backup"
	"github.com/shakram02/go-sql-admin-mcp/internal/cell"
)

// CreateTable creates a table unless it already exists.
func (a *Admin) CreateTable(ctx context.Context, table string, columns []cell.Column) error {
	if err := a.checkWritable(); err != nil {
		return err
	}
	if strings.TrimSpace(table) == "" {
		return fmt.Errorf("%w: table name is empty", ErrInvalidTableDef)
	}
	if len(columns) == 0 {
		return fmt.Errorf("%w: no columns", ErrInvalidTableDef)
	}
	seen := map[string]bool{}
	for _, c := range columns {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if name == "" {
			return fmt.Errorf("%w: column name is empty", ErrInvalidTableDef)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate column %s", ErrInvalidTableDef, c.Name)
		}
		if !c.Type.Valid() {
			return fmt.Errorf("%w: column %s has unknown type", ErrInvalidTableDef, c.Name)
		}
		seen[name] = true
	}

	stmt := backup.CreateTableStatement(a.adapter, table, columns)
	stmt = strings.Replace(stmt, "CREATE TABLE ", "CREATE TABLE IF NOT EXISTS ", 1)
	if _, err := a.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// DropTable saves a full backup of the table and drops it.
func (a *Admin) DropTable(ctx context.Context, table string) (backup.Backup, error) {
	if err := a.checkWritable(); err != nil {
		return backup.Backup{}, err
	}
	data, err := a.readTable(ctx, table, 0)
	if err != nil {
		return backup.Backup{}, err
	}

	script := backup.TableScript(a.adapter, backup.Table{Name: table, Columns: data.Columns, Rows: data.Rows})
	saved, err := a.backups.Save(backup.TableBackupName(table), script)
	if err != nil {
		return backup.Backup{}, err
	}

	if _, err := a.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+a.adapter.QualifiedTable(table)); err != nil {
		return saved, fmt.Errorf("failed to drop table: %w", err)
	}
	return saved, nil
}

// BackupDatabase writes one script recreating every table. Backups are
// never capped by the row limit.
func (a *Admin) BackupDatabase(ctx context.Context) (backup.Backup, error) {
	names, err := a.ListTables(ctx)
	if err != nil {
		return backup.Backup{}, err
	}

	tables := make([]backup.Table, 0, len(names))
	for _, name := range names {
		data, err := a.readTable(ctx, name, 0)
		if err != nil {
			return backup.Backup{}, err
		}
		tables = append(tables, backup.Table{Name: name, Columns: data.Columns, Rows: data.Rows})
	}

	return a.backups.Save(backup.DatabaseBackupName(a.now()), backup.DatabaseScript(a.adapter, tables))
}

// ListBackups returns the stored backup scripts, newest first.
func (a *Admin) ListBackups() ([]backup.Backup, error) {
	return a.backups.List()
}

// RestoreBackup executes every statement of a stored backup in one
// transaction and returns the number of statements run.
func (a *Admin) RestoreBackup(ctx context.Context, name string) (int, error) {
	if err := a.checkWritable(); err != nil {
		return 0, err
	}
	script, err := a.backups.Read(name)
	if err != nil {
		return 0, err
	}
	n, _, err := a.execScript(ctx, script)
	if err != nil {
		return 0, fmt.Errorf("failed to restore backup %s: %w", name, err)
	}
	return n, nil
}

func (a *Admin) execScript(ctx context.Context, script string) (int, int64, error) {
	statements := a.adapter.Lexer().Split(script)
	if len(statements) == 0 {
		return 0, 0, fmt.Errorf("script contains no statements")
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	var affected int64
	for i, stmt := range statements {
		res, err := tx.ExecContext(ctx, stmt)
		if err != nil {
			_ = tx.Rollback()
			return 0, 0, fmt.Errorf("statement %d: %w", i+1, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			affected += n
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return len(statements), affected, nil
}
