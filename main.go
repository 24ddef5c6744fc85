// Package main is the entry point for the handoff CLI application.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/danielolaszy/handoff/cmd"
	"github.com/danielolaszy/handoff/internal/automation"
	"github.com/danielolaszy/handoff/internal/logging"
)

// main is the entry point of the application.
// It executes the root command and maps errors to exit codes.
func main() {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	logging.Info("starting handoff", "version", cmd.Version, "log_level", logLevel)

	if err := cmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode reports err to the user and returns the process exit code.
func exitCode(err error) int {
	var exitErr *cmd.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	var usageErr *cmd.UsageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", usageErr)
		fmt.Fprintln(os.Stderr, "Use --help for usage information.")
		return 1
	}

	logging.Error("fatal error", "error", err)
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, automation.FatalSummary(err, time.Now()))
	return 1
}
