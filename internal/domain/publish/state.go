package publish

// State is the visibility tier of an entity.
type State string

const (
	StateWatchlist  State = "WATCHLIST"
	StatePublicLow  State = "PUBLIC_LOW"
	StatePublicMed  State = "PUBLIC_MED"
	StatePublicHigh State = "PUBLIC_HIGH"
)

// Label returns the display label of the state.
func (s State) Label() string {
	switch s {
	case StatePublicLow:
		return "Public - Low Risk"
	case StatePublicMed:
		return "Public - Medium Risk"
	case StatePublicHigh:
		return "Public - High Risk"
	default:
		return "Watchlist (Not Public)"
	}
}

// IsPublic reports whether the state may be shown publicly.
func (s State) IsPublic() bool {
	return s == StatePublicLow || s == StatePublicMed || s == StatePublicHigh
}

// Rank orders states by severity; watchlist is 0.
func (s State) Rank() int {
	switch s {
	case StatePublicLow:
		return 1
	case StatePublicMed:
		return 2
	case StatePublicHigh:
		return 3
	default:
		return 0
	}
}

// Disclaimer accompanies every published profile.
const Disclaimer = "This profile summarizes publicly available, firsthand reports that mention this organization " +
	"in connection with commission-based recruiting or sales roles. The reports are not verified facts and no " +
	"unlawful conduct is asserted. The risk score reflects how often independent posts describe specific " +
	"recruiting and compensation patterns over time, not the truth of any single allegation. Affiliated parties " +
	"may request a review by supplying verifiable corrections."
