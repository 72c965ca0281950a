package testitems

import "time"

// Run statuses reported by the service.
const (
	statusCompleted = "completed"
	statusFailed    = "failed"
)

// Runner configuration constants.
const (
	pollInterval         = 250 * time.Millisecond
	PercentageMultiplier = 100
	maxEntitiesLimit     = 500
)
