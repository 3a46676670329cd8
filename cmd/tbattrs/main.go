// tbattrs resolves ThingsBoard asset and device attributes from YAML
// definition documents and renders synthetic building hierarchies for
// performance tests.
//
// Subcommands:
//
//	tbattrs asset <type> [--set key=value]...
//	tbattrs device <type> [--index N] [--set key=value]...
//	tbattrs telemetry <type> [--sample device]
//	tbattrs validate [--file path]
//	tbattrs plan <scenario.json> [--publish] [--no-store] [--json]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/athena68/tb-performance-tests/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// getConfigPath returns the configuration file path.
// Checks TBATTRS_CONFIG environment variable first, then uses default.
func getConfigPath() string {
	if path := os.Getenv("TBATTRS_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
