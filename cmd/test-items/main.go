package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/orgwatch/internal/testitems"
)

// Default configuration constants.
const (
	defaultOrgs        = 100
	defaultOrgsPerRun  = 10
	defaultHotRatio    = 0.3
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultWait        = 2 * time.Minute
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		orgs       = flag.Int("orgs", defaultOrgs, "Number of organizations to report on")
		perRun     = flag.Int("per-run", defaultOrgsPerRun, "Organizations per run")
		hot        = flag.Float64("hot", defaultHotRatio, "Share of organizations that should publish")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		wait       = flag.Duration("wait", defaultWait, "How long to wait for runs to finish")
		seed       = flag.Uint64("seed", 1, "Corpus generator seed")
		outputFile = flag.String("output", "", "Output file for the generated corpus")
		logFile    = flag.String("log", "", "Log file for test output")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testitems.ShowHelp()
		return
	}

	if err := testitems.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	config := &testitems.Config{
		BaseURL:     *baseURL,
		Orgs:        *orgs,
		OrgsPerRun:  *perRun,
		HotRatio:    *hot,
		Workers:     *workers,
		Timeout:     *timeout,
		WaitTimeout: *wait,
		Seed:        *seed,
		OutputFile:  *outputFile,
		Verbose:     *verbose,
	}

	if _, err := testitems.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
