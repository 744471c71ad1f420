package scoring

// Tier labels, ordered best to worst.
const (
	TierPlatinum = "Platinum"
	TierGold     = "Gold"
	TierSilver   = "Silver"
	TierBronze   = "Bronze"
	TierProspect = "Prospect"
)

// Contact timing labels.
const (
	TimingImmediate = "Immediate"
	TimingToday     = "Today"
	TimingTomorrow  = "Tomorrow"
	TimingThisWeek  = "This Week"
	TimingNextWeek  = "Next Week"
)

// Lead intent labels.
const (
	IntentHighBuyer      = "High Buyer"
	IntentActiveSearcher = "Active Searcher"
	IntentConsidering    = "Considering"
	IntentCurious        = "Curious"
	IntentUnlikely       = "Unlikely"
)

// band is one (inclusive lower bound, label) entry of a threshold table.
type band struct {
	min   float64
	label string
}

// thresholdTable maps a composite score to a discrete label. Entries are
// ordered highest bound first and bounds are inclusive: a score of exactly
// 90 lands in the 90-band. Input outside [0,100] is clamped, which makes
// classification total over all floats.
type thresholdTable []band

func (t thresholdTable) classify(score float64) string {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	for _, b := range t {
		if score >= b.min {
			return b.label
		}
	}
	// Unreachable as long as the table ends at bound 0.
	return t[len(t)-1].label
}

// The three tables are independent on purpose: tier, timing and intent are
// separate product dials and are not required to stay mutually consistent.
var (
	tierTable = thresholdTable{
		{90, TierPlatinum},
		{80, TierGold},
		{60, TierSilver},
		{40, TierBronze},
		{0, TierProspect},
	}

	timingTable = thresholdTable{
		{90, TimingImmediate},
		{75, TimingToday},
		{60, TimingTomorrow},
		{45, TimingThisWeek},
		{0, TimingNextWeek},
	}

	intentTable = thresholdTable{
		{85, IntentHighBuyer},
		{70, IntentActiveSearcher},
		{50, IntentConsidering},
		{30, IntentCurious},
		{0, IntentUnlikely},
	}
)

// TierFor maps a composite score to its qualification tier.
func TierFor(score float64) string { return tierTable.classify(score) }

// TimingFor maps a composite score to the recommended contact window.
func TimingFor(score float64) string { return timingTable.classify(score) }

// IntentFor maps a composite score to the inferred purchase intent.
func IntentFor(score float64) string { return intentTable.classify(score) }
