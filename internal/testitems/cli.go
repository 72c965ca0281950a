package testitems

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/orgwatch/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0o600
)

// SetupLogging logs to stdout and, when logFile is set, to that file too.
func SetupLogging(logFile string, verbose bool) error {
	var w io.Writer = os.Stdout
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
	}
	if err := logger.InitWithFormat(logger.FormatText, w); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the load test tool.
func ShowHelp() {
	os.Stdout.WriteString(`orgwatch load test
==================

Generates synthetic report corpora, submits them as runs and verifies the
published ranking of a running orgwatch service.

Usage:
  go run ./cmd/test-items [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -orgs int
        Number of organizations to report on (default 100)
  -per-run int
        Organizations per run (default 10)
  -hot float
        Share of organizations that should publish (default 0.3)
  -workers int
        Number of concurrent submitters (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -wait duration
        How long to wait for runs to finish (default 2m)
  -seed uint
        Corpus generator seed (default 1)
  -output string
        Output file for the generated corpus
  -log string
        Log file for test output
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Test against a fresh local service
  go run ./cmd/test-items -orgs 200 -per-run 20

  # Reproduce a corpus
  go run ./cmd/test-items -seed 42 -output corpus.json
`)
}
