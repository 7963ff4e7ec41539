// NutriMind: per-user workspace memory MCP server.
//
// Maintains markdown workspace documents (shared profile, goal tracking,
// nutrition history, chat history) projected from a health database, and
// exposes meal analysis and daily-status operations over MCP.
//
// Usage:
//
//	nutrimind serve    # Start MCP server (stdio transport)
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/nutrimind/nutrimind/internal/config"
	"github.com/nutrimind/nutrimind/internal/logging"
	nmserver "github.com/nutrimind/nutrimind/internal/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("nutrimind v%s\n", nmserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Logs go to a file or stderr; stdout carries the MCP transport.
	log, closeLog, err := logging.Open(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer closeLog()

	srv, cleanup, err := nmserver.New(cfg, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Graceful shutdown on interrupt; also stops the scheduler.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	go srv.Scheduler.Run(ctx)

	log.Info().Str("version", nmserver.Version).Msg("serving MCP over stdio")
	return server.ServeStdio(srv.MCP)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `NutriMind v%s — workspace memory MCP server

Usage:
  nutrimind serve    Start the MCP server (stdio transport)

Configuration (environment):
  NUTRIMIND_DATA_DIR       Workspace root (default ~/.nutrimind/workspaces)
  NUTRIMIND_DB_PATH        Health database (default ~/.nutrimind/health.db)
  NUTRIMIND_ANALYZER_URL   Meal analysis service base URL
  NUTRIMIND_WORKERS        Background workers (default 4)
  NUTRIMIND_QUEUE_SIZE     Background queue size (default 64)
  NUTRIMIND_LOG_FILE       Log file (default stderr)
  NUTRIMIND_LOG_LEVEL      trace|debug|info|warn|error (default info)
`, nmserver.Version)
}
