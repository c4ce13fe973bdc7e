package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/drop-shape-mcp/internal/config"
	"github.com/ironsheep/drop-shape-mcp/internal/monitoring"
	"github.com/ironsheep/drop-shape-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("drop-shape-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("drop-shape-mcp - MCP server for pendant and sessile drop shape analysis")
			fmt.Println()
			fmt.Println("Usage: drop-shape-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  DROP_MCP_LOG_LEVEL=debug          Enable debug logging")
			fmt.Printf("  %s=/path/config.json   Tolerances and physical constants\n", config.EnvConfigPath)
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if os.Getenv("DROP_MCP_LOG_LEVEL") == "debug" {
		monitoring.SetLogger(log.Printf)
		log.Printf("Drop Shape MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	} else {
		monitoring.SetLogger(nil)
	}

	var cfg *config.Config
	if path := os.Getenv(config.EnvConfigPath); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			log.Fatalf("Config error: %v", err)
		}
		cfg = loaded
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server.Version = Version
	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("Server error: %v", err)
	}
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("Server error: %v", err)
	}
}
