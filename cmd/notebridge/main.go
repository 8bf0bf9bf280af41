package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/notebridge/internal/config"
	"github.com/hpungsan/notebridge/internal/logging"
	"github.com/hpungsan/notebridge/internal/mcp"
	"github.com/hpungsan/notebridge/internal/ops"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"create": true, "update": true, "delete": true, "delete-attachment": true,
	"get": true, "list": true, "copy": true, "parent": true,
	"notifications": true, "serve": true, "worker": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	// Global flags come before the subcommand.
	if arg == "--user" || arg == "-u" || strings.HasPrefix(arg, "--user=") {
		return true
	}
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v"
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a short usage note when run interactively without args.
func printBanner() {
	fmt.Println(`
  notebridge

  CRM notes kept in step with their legacy counterparts

  Usage: notebridge <command> [options]
         notebridge --help

  MCP server mode requires piped input.`)
}

func main() {
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before opening any store
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}
	baseDir := filepath.Join(homeDir, ".notebridge")

	cwd, err := os.Getwd()
	if err != nil {
		cwd = baseDir
	}
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel, os.Stderr)

	rt, err := openRuntime(context.Background(), baseDir, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer rt.Close()

	if isCLIMode() {
		app := newCLIApp(rt)
		if err := app.Run(os.Args); err != nil {
			rt.Close()
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		rt.Close()
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'notebridge --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	for _, name := range mcp.ValidateDisabledTools(cfg.DisabledTools) {
		log.Warn().Str("tool", name).Msg("unknown tool in disabled_tools")
	}
	if err := mcp.Run(rt.notes, cfg, ops.Actor{User: cfg.DefaultUser}, Version); err != nil {
		rt.Close()
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
