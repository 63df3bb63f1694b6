// Package scripts keeps the library of named SQL scripts: read-only defaults
// shipped next to the binary and user scripts saved at runtime.
package scripts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const (
	DefaultFile = "default_scripts.json"
	UserFile    = "user_scripts.json"
)

var (
	ErrNotFound      = errors.New("script not found")
	ErrEmptyScript   = errors.New("script is empty")
	ErrEmptyName     = errors.New("script name is empty")
	ErrDefaultScript = errors.New("default scripts cannot be deleted")
)

// Library merges default and user scripts. User scripts override defaults
// with the same name. It is safe for concurrent use.
type Library struct {
	mu       sync.RWMutex
	dir      string
	defaults map[string]string
	user     map[string]string
}

// Load reads both script files from dir. A missing file is treated as empty.
func Load(dir string) (*Library, error) {
	defaults, err := readScripts(filepath.Join(dir, DefaultFile))
	if err != nil {
		return nil, fmt.Errorf("failed to load default scripts: %w", err)
	}
	user, err := readScripts(filepath.Join(dir, UserFile))
	if err != nil {
		return nil, fmt.Errorf("failed to load user scripts: %w", err)
	}
	return &Library{dir: dir, defaults: defaults, user: user}, nil
}

func readScripts(path string) (map[string]string, error) {
	scripts := map[string]string{}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return scripts, nil
		}
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return scripts, nil
	}
	if err := json.Unmarshal(data, &scripts); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return scripts, nil
}

// Names returns every script name, sorted.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.defaults)+len(l.user))
	for name := range l.defaults {
		if _, ok := l.user[name]; !ok {
			names = append(names, name)
		}
	}
	for name := range l.user {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the SQL of a script.
func (l *Library) Get(name string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if sql, ok := l.user[name]; ok {
		return sql, nil
	}
	if sql, ok := l.defaults[name]; ok {
		return sql, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Save stores a user script and persists the user file. It reports whether
// an existing script of the same name was replaced.
func (l *Library) Save(name, sql string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, ErrEmptyName
	}
	if strings.TrimSpace(sql) == "" {
		return false, ErrEmptyScript
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_, inUser := l.user[name]
	_, inDefaults := l.defaults[name]
	l.user[name] = sql
	if err := l.persist(); err != nil {
		return false, err
	}
	return inUser || inDefaults, nil
}

// Delete removes a user script. Defaults are never removed.
func (l *Library) Delete(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.user[name]; !ok {
		if _, ok := l.defaults[name]; ok {
			return ErrDefaultScript
		}
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(l.user, name)
	return l.persist()
}

func (l *Library) persist() error {
	data, err := json.MarshalIndent(l.user, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode user scripts: %w", err)
	}
	if l.dir != "" {
		if err := os.MkdirAll(l.dir, 0o755); err != nil {
			return fmt.Errorf("failed to save user scripts: %w", err)
		}
	}
	if err := os.WriteFile(filepath.Join(l.dir, UserFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to save user scripts: %w", err)
	}
	return nil
}
