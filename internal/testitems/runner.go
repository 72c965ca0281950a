package testitems

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/orgwatch/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// Run executes the complete load test.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting orgwatch load test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("orgs", config.Orgs),
		logger.Int("orgsPerRun", config.OrgsPerRun),
		logger.Int("workers", config.Workers),
		logger.Bool("verbose", config.Verbose))

	client := newHTTPClient(config.BaseURL, config.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate the corpus
	orgs, err := generateOrgs(ctx, config, stats)
	if err != nil {
		return stats, fmt.Errorf("corpus generation failed: %w", err)
	}
	batches := batchOrgs(orgs, config.OrgsPerRun)

	// Step 3: Submit runs concurrently
	ids, err := submitRuns(ctx, config, client, batches, stats)
	if err != nil {
		return stats, fmt.Errorf("run submission failed: %w", err)
	}

	// Step 4: Wait for processing
	if err := waitForRuns(ctx, config, client, ids, stats); err != nil {
		return stats, fmt.Errorf("waiting for runs failed: %w", err)
	}

	// Step 5: Read and verify the ranking
	entries, err := listEntities(ctx, client, stats)
	if err != nil {
		return stats, fmt.Errorf("entity listing failed: %w", err)
	}
	if err := verifyRanking(entries); err != nil {
		return stats, fmt.Errorf("ranking verification failed: %w", err)
	}
	if stats.RunsAccepted == len(batches) {
		if err := verifyExpected(orgs, entries); err != nil {
			return stats, fmt.Errorf("publication verification failed: %w", err)
		}
	}
	if err := verifyProfiles(ctx, client, entries, stats); err != nil {
		return stats, fmt.Errorf("profile verification failed: %w", err)
	}

	// Step 6: Save the corpus
	if config.OutputFile != "" {
		if err := saveOrgsToFile(ctx, config.OutputFile, orgs); err != nil {
			logger.Get().Warn(ctx, "failed to save corpus to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	logger.Get().Info(ctx, "test completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	logger.Get().Info(ctx, "checking service health")

	// /healthz serves Prometheus text, so no body is decoded
	status, err := client.Get(ctx, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", status)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveOrgsToFile writes the generated corpus as JSON.
func saveOrgsToFile(ctx context.Context, filename string, orgs []Org) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(orgs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal corpus: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write corpus: %w", err)
	}
	logger.Get().Info(ctx, "corpus saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final test statistics.
func displayFinalStats(stats *Stats) {
	var acceptRate, itemsPerSecond float64
	if stats.RunsSubmitted > 0 {
		acceptRate = float64(stats.RunsAccepted) / float64(stats.RunsSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		itemsPerSecond = float64(stats.ItemsGenerated) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("orgsGenerated", stats.OrgsGenerated),
		logger.Int("itemsGenerated", stats.ItemsGenerated),
		logger.Int("runsSubmitted", stats.RunsSubmitted),
		logger.Int("runsAccepted", stats.RunsAccepted),
		logger.Int("runsRejected", stats.RunsRejected),
		logger.Int("runsCompleted", stats.RunsCompleted),
		logger.Int("runsFailed", stats.RunsFailed),
		logger.Int("entitiesListed", stats.EntitiesListed),
		logger.Int("profilesVerified", stats.ProfilesVerified),
		logger.Duration("duration", stats.Duration),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("itemsPerSecond", itemsPerSecond))
}
