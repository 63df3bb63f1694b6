package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "modernc.org/sqlite"

	"github.com/shakram02/go-sql-admin-mcp/internal/scripts"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-h" || os.Args[1] == "--help") {
		usage()
		return
	}

	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		logError("Invalid configuration: %v", err)
		os.Exit(1)
	}

	adapter, err := NewAdapter(cfg.Driver, cfg.PGSchema)
	if err != nil {
		logError("%v", err)
		os.Exit(1)
	}

	dsn := cfg.DSN
	if dsn == "" {
		dsn, err = adapter.BuildDSN(cfg.ReadOnly)
		if err != nil {
			logError("Failed to build connection string: %v", err)
			usage()
			os.Exit(1)
		}
	}

	// Create context that cancels on interrupt signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logError("Received shutdown signal")
		cancel()
	}()

	library, err := scripts.Load(cfg.ScriptsDir)
	if err != nil {
		logError("Failed to load scripts: %v", err)
		os.Exit(1)
	}

	admin, err := OpenAdmin(ctx, adapter, dsn, cfg)
	if err != nil {
		logError("Failed to create server: %v", err)
		os.Exit(1)
	}

	server := NewMCPServer(ctx, admin, library, cfg.QueryTimeout)
	defer server.Close()

	mode := "read-write"
	if cfg.ReadOnly {
		mode = "read-only"
	}
	logError("%s started (%s mode, backups in %s)", adapter.ServerName(), mode, admin.backups.Dir())

	if err := server.Run(); err != nil {
		if errors.Is(err, context.Canceled) {
			logError("Server shutdown gracefully")
		} else {
			logError("Server error: %v", err)
			os.Exit(1)
		}
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: sql-admin-mcp [dsn]")
	fmt.Fprintln(os.Stderr, "Without a DSN the connection is built from MCP_DB_DRIVER and its variables:")
	fmt.Fprintln(os.Stderr, "  mysql:    MCP_MYSQL_HOST, MCP_MYSQL_PORT, MCP_MYSQL_DB, MCP_MYSQL_USER, MCP_MYSQL_PASSWORD")
	fmt.Fprintln(os.Stderr, "  postgres: MCP_PG_HOST, MCP_PG_PORT, MCP_PG_DB, MCP_PG_USER, MCP_PG_PASSWORD, MCP_PG_SSLMODE, MCP_PG_SCHEMA")
	fmt.Fprintln(os.Stderr, "  sqlite:   MCP_SQLITE_PATH")
	fmt.Fprintln(os.Stderr, "Other settings: MCP_READ_ONLY, MCP_QUERY_TIMEOUT, MCP_MAX_ROWS, MCP_BACKUP_DIR, MCP_SCRIPTS_DIR")
}
