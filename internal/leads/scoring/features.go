package scoring

import (
	"math"
	"strings"
	"time"

	"efficity_backend/internal/leads/repository"
)

// Feature vector layout. The order is fixed; both predictors and the trained
// classifier depend on it.
const (
	featEmailInteractions = iota
	featResponseTimeHours
	featDaysSinceInteraction
	featDaysInPipeline
	featSeasonal
	featBudget
	featFinancing
	featCityDesirability
	featSourceQuality
	featAge
	featContactChannels

	// FeatureCount is the fixed length of a feature vector.
	FeatureCount = 11
)

// FeatureVector is the fixed-length numeric encoding of a lead. Every element
// is clipped to its documented range at extraction time.
type FeatureVector [FeatureCount]float64

// Extraction defaults for absent fields. Extraction never fails: a missing or
// malformed value resolves to its neutral default.
const (
	defaultResponseTimeHours = 12.0
	maxResponseTimeHours     = 72.0
	defaultAge               = 35.0
	defaultDaysInPipeline    = 1.0
	maxDaysInPipeline        = 180.0
	maxDaysSinceInteraction  = 30.0
	minBudget                = 50_000.0
	maxBudget                = 2_000_000.0
	defaultCityDesirability  = 5.0
	defaultSourceQuality     = 5.0
)

// financingKeywords are matched case-insensitively against the lead's notes.
var financingKeywords = []string{"financement", "banque", "prêt", "pret", "notaire"}

// cityDesirability scores a city on a 1-10 scale. Unknown cities get the
// mid-range default. Keys are lowercase.
var cityDesirability = map[string]float64{
	"paris":           10,
	"lyon":            9,
	"bordeaux":        8,
	"nice":            8,
	"aix-en-provence": 8,
	"annecy":          8,
	"toulouse":        7,
	"nantes":          7,
	"rennes":          7,
	"montpellier":     6,
	"strasbourg":      6,
	"marseille":       6,
	"lille":           6,
	"grenoble":        5,
	"dijon":           5,
	"le havre":        4,
	"saint-étienne":   3,
}

// sourceQuality scores an acquisition channel on a 1-10 scale. Unknown
// sources get the mid-range default. Keys are lowercase.
var sourceQuality = map[string]float64{
	"referral":       10,
	"recommandation": 10,
	"website":        8,
	"site_web":       8,
	"seloger":        7,
	"leboncoin":      6,
	"facebook":       5,
	"instagram":      5,
	"google_ads":     5,
	"portail":        4,
	"achat_fichier":  2,
}

// premiumCityThreshold marks the desirability level treated as a premium
// location by the signal generator.
const premiumCityThreshold = 8.0

// ExtractFeatures converts a lead into its feature vector. It is a pure
// function of the lead and the supplied clock, and it never fails; absent
// fields substitute their defaults. The second return reports whether the
// record was empty enough that downstream stages should fall back to the
// neutral result instead of pretending the defaults are a real prediction.
func ExtractFeatures(lead repository.Lead, now time.Time) (FeatureVector, FallbackReason) {
	var v FeatureVector

	v[featEmailInteractions] = float64(lead.EmailInteractions)

	responseTime := defaultResponseTimeHours
	if lead.ResponseTimeHours != nil && *lead.ResponseTimeHours >= 0 {
		responseTime = *lead.ResponseTimeHours
	}
	v[featResponseTimeHours] = clip(responseTime, 0, maxResponseTimeHours)

	daysSince := maxDaysSinceInteraction
	if lead.LastInteractionAt != nil {
		daysSince = now.Sub(*lead.LastInteractionAt).Hours() / 24
	}
	v[featDaysSinceInteraction] = clip(daysSince, 0, maxDaysSinceInteraction)

	daysInPipeline := defaultDaysInPipeline
	if !lead.CreatedAt.IsZero() {
		daysInPipeline = now.Sub(lead.CreatedAt).Hours() / 24
		if daysInPipeline < defaultDaysInPipeline {
			daysInPipeline = defaultDaysInPipeline
		}
	}
	v[featDaysInPipeline] = clip(daysInPipeline, 0, maxDaysInPipeline)

	v[featSeasonal] = seasonalFactor(now.Month())

	budget := 0.0
	if lead.Budget != nil && *lead.Budget > 0 {
		budget = clip(*lead.Budget, minBudget, maxBudget)
	}
	v[featBudget] = budget

	if mentionsFinancing(lead.Notes) {
		v[featFinancing] = 1
	}

	v[featCityDesirability] = cityScore(lead.City)
	v[featSourceQuality] = sourceScore(lead.Source)

	age := defaultAge
	if lead.Age != nil && *lead.Age > 0 {
		age = float64(*lead.Age)
	}
	v[featAge] = age

	v[featContactChannels] = float64(lead.ContactChannels())

	if isEmptyLead(lead) {
		return v, FallbackEmptyLead
	}
	return v, FallbackNone
}

// seasonalFactor is a cyclical value in [0,1] peaking in spring, when the
// French residential market is most active.
func seasonalFactor(month time.Month) float64 {
	return (math.Sin(2*math.Pi*(float64(month)-3)/12) + 1) / 2
}

func mentionsFinancing(notes *string) bool {
	if notes == nil {
		return false
	}
	lower := strings.ToLower(*notes)
	for _, kw := range financingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func cityScore(city *string) float64 {
	if city == nil {
		return defaultCityDesirability
	}
	if score, ok := cityDesirability[strings.ToLower(strings.TrimSpace(*city))]; ok {
		return score
	}
	return defaultCityDesirability
}

func sourceScore(source *string) float64 {
	if source == nil {
		return defaultSourceQuality
	}
	if score, ok := sourceQuality[strings.ToLower(strings.TrimSpace(*source))]; ok {
		return score
	}
	return defaultSourceQuality
}

// isEmptyLead reports whether the record carries no usable signal at all.
// Such records still score (the pipeline is total) but land on the neutral
// fallback rather than a defaults-only pseudo-prediction.
func isEmptyLead(lead repository.Lead) bool {
	return lead.FullName() == "" &&
		lead.Email == nil &&
		lead.Phone == nil &&
		lead.Budget == nil &&
		lead.City == nil &&
		lead.Notes == nil &&
		lead.Source == nil &&
		lead.EmailInteractions == 0 &&
		lead.TotalInteractions == 0 &&
		lead.LastInteractionAt == nil
}

func clip(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
