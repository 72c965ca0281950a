package testitems

import (
	"time"

	"github.com/okian/orgwatch/internal/domain/model"
)

// Config holds configuration for the load test.
type Config struct {
	BaseURL     string        // Base URL of the service
	Orgs        int           // Number of organizations to report on
	OrgsPerRun  int           // Organizations bundled into one run
	HotRatio    float64       // Share of organizations whose reports should publish
	Workers     int           // Number of concurrent submitters
	Timeout     time.Duration // HTTP request timeout
	WaitTimeout time.Duration // How long to wait for runs to finish
	Seed        uint64        // Seed of the corpus generator
	OutputFile  string        // Output file for the generated corpus
	Verbose     bool          // Enable verbose logging
}

// Org is one synthetic organization and the reports written about it.
type Org struct {
	Name  string          `json:"name"`
	Slug  string          `json:"slug"`
	Hot   bool            `json:"hot"`
	Items []model.RawItem `json:"items"`
}

// Batch is one run submitted to the service.
type Batch struct {
	RunID string          `json:"run_id"`
	Items []model.RawItem `json:"items"`
}

// AckResponse is the body of POST /runs.
type AckResponse struct {
	RunID     string `json:"run_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// RunStatus is the part of GET /runs/{id} the tool reads.
type RunStatus struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

// Stats holds test statistics.
type Stats struct {
	OrgsGenerated    int
	ItemsGenerated   int
	RunsSubmitted    int
	RunsAccepted     int
	RunsDuplicate    int
	RunsRejected     int
	RunsFailed       int
	RunsCompleted    int
	EntitiesListed   int
	ProfilesVerified int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
