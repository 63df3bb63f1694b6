package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shakram02/go-sql-admin-mcp/internal/backup"
)

// Server configuration defaults
const (
	DefaultQueryTimeout = 30 * time.Second
	DefaultMaxRows      = 10000
	DefaultDriver       = "postgres"

	ConnectionTimeout  = 10 * time.Second
	MaxConnectionsIdle = 5
	MaxConnectionsOpen = 10
)

// Config is read from MCP_* environment variables.
type Config struct {
	Driver       string
	DSN          string // overrides the per-driver MCP_* connection variables
	PGSchema     string
	ReadOnly     bool
	QueryTimeout time.Duration
	MaxRows      int
	BackupDir    string
	ScriptsDir   string
}

// LoadConfig reads the environment. args are the command-line arguments
// after the program name; the first one, if present, is the DSN.
func LoadConfig(args []string) (Config, error) {
	cfg := Config{
		Driver:       envOr("MCP_DB_DRIVER", DefaultDriver),
		PGSchema:     os.Getenv("MCP_PG_SCHEMA"),
		QueryTimeout: DefaultQueryTimeout,
		MaxRows:      DefaultMaxRows,
		BackupDir:    envOr("MCP_BACKUP_DIR", backup.DefaultDir),
		ScriptsDir:   envOr("MCP_SCRIPTS_DIR", "."),
	}
	if len(args) > 0 {
		cfg.DSN = args[0]
	}

	if v := os.Getenv("MCP_READ_ONLY"); v != "" {
		readOnly, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MCP_READ_ONLY %q: %w", v, err)
		}
		cfg.ReadOnly = readOnly
	}

	if v := os.Getenv("MCP_QUERY_TIMEOUT"); v != "" {
		timeout, err := parseTimeout(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MCP_QUERY_TIMEOUT %q: %w", v, err)
		}
		cfg.QueryTimeout = timeout
	}

	if v := os.Getenv("MCP_MAX_ROWS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid MCP_MAX_ROWS %q: must be a positive integer", v)
		}
		cfg.MaxRows = n
	}

	return cfg, nil
}

// parseTimeout accepts a Go duration ("45s") or a whole number of seconds.
func parseTimeout(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("must be positive")
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return d, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
