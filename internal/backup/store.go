package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultDir is where backups are kept when no directory is configured.
const DefaultDir = "Backups"

const scriptExt = ".sql"

var ErrNotFound = errors.New("backup not found")

// Backup describes one script file in the store.
type Backup struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Created time.Time `json:"created"`
	Size    int64     `json:"size"`
}

// Store is a directory of backup scripts.
type Store struct {
	dir string
}

// OpenStore creates dir if needed.
func OpenStore(dir string) (*Store, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

// fileName reduces name to a bare file name ending in .sql.
func fileName(name string) (string, error) {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == ".." || base == string(filepath.Separator) || base == "" {
		return "", fmt.Errorf("invalid backup name %q", name)
	}
	if !strings.HasSuffix(base, scriptExt) {
		base += scriptExt
	}
	return base, nil
}

// Save writes script under name, replacing any backup with the same name.
// The file is written to a temporary name first and renamed into place.
func (s *Store) Save(name, script string) (Backup, error) {
	base, err := fileName(name)
	if err != nil {
		return Backup{}, err
	}

	tmp := filepath.Join(s.dir, "."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, []byte(script), 0o644); err != nil {
		return Backup{}, fmt.Errorf("failed to write backup: %w", err)
	}

	path := filepath.Join(s.dir, base)
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return Backup{}, fmt.Errorf("failed to write backup: %w", err)
	}

	return s.stat(path)
}

// List returns the backups in the store, newest name first.
func (s *Store) List() ([]Backup, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	var backups []Backup
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), scriptExt) {
			continue
		}
		b, err := s.stat(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		backups = append(backups, b)
	}

	sort.Slice(backups, func(i, j int) bool { return backups[i].Name > backups[j].Name })
	return backups, nil
}

// Read returns the script stored under name.
func (s *Store) Read(name string) (string, error) {
	base, err := fileName(name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, base))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, base)
		}
		return "", fmt.Errorf("failed to read backup: %w", err)
	}
	return string(data), nil
}

func (s *Store) stat(path string) (Backup, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Backup{}, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return Backup{
		Name:    info.Name(),
		Path:    abs,
		Created: info.ModTime(),
		Size:    info.Size(),
	}, nil
}

// Timestamped names used for automatic backups.

func DatabaseBackupName(now time.Time) string {
	return "backup_" + now.Format("20060102_150405") + scriptExt
}

func RowBackupName(table string, now time.Time) string {
	return "row_" + table + "_" + now.Format("20060102150405") + scriptExt
}

func TableBackupName(table string) string {
	return "table_" + table + scriptExt
}
