package scoring

import (
	"math"
	"testing"
	"time"

	"efficity_backend/internal/leads/repository"
)

var testNow = time.Date(2026, time.June, 15, 10, 0, 0, 0, time.UTC)

func strPtr(s string) *string       { return &s }
func floatPtr(f float64) *float64   { return &f }
func intPtr(i int) *int             { return &i }
func timePtr(t time.Time) *time.Time { return &t }

func TestExtractFeaturesDefaults(t *testing.T) {
	lead := repository.Lead{
		FirstName: strPtr("Claire"),
		CreatedAt: testNow.Add(-24 * time.Hour),
	}

	v, reason := ExtractFeatures(lead, testNow)
	if reason != FallbackNone {
		t.Fatalf("reason = %q, want none", reason)
	}

	if v[featResponseTimeHours] != defaultResponseTimeHours {
		t.Errorf("response time default = %v, want %v", v[featResponseTimeHours], defaultResponseTimeHours)
	}
	if v[featAge] != defaultAge {
		t.Errorf("age default = %v, want %v", v[featAge], defaultAge)
	}
	if v[featDaysSinceInteraction] != maxDaysSinceInteraction {
		t.Errorf("days since interaction = %v, want max %v", v[featDaysSinceInteraction], maxDaysSinceInteraction)
	}
	if v[featCityDesirability] != defaultCityDesirability {
		t.Errorf("city desirability = %v, want default %v", v[featCityDesirability], defaultCityDesirability)
	}
	if v[featSourceQuality] != defaultSourceQuality {
		t.Errorf("source quality = %v, want default %v", v[featSourceQuality], defaultSourceQuality)
	}
	if v[featBudget] != 0 {
		t.Errorf("budget with no declaration = %v, want 0", v[featBudget])
	}
}

func TestExtractFeaturesClipping(t *testing.T) {
	lead := repository.Lead{
		FirstName:         strPtr("Marc"),
		Budget:            floatPtr(5_000_000),
		ResponseTimeHours: floatPtr(500),
		CreatedAt:         testNow.Add(-400 * 24 * time.Hour),
		LastInteractionAt: timePtr(testNow.Add(-90 * 24 * time.Hour)),
	}

	v, _ := ExtractFeatures(lead, testNow)

	if v[featBudget] != maxBudget {
		t.Errorf("budget = %v, want clipped to %v", v[featBudget], maxBudget)
	}
	if v[featResponseTimeHours] != maxResponseTimeHours {
		t.Errorf("response time = %v, want clipped to %v", v[featResponseTimeHours], maxResponseTimeHours)
	}
	if v[featDaysInPipeline] != maxDaysInPipeline {
		t.Errorf("days in pipeline = %v, want clipped to %v", v[featDaysInPipeline], maxDaysInPipeline)
	}
	if v[featDaysSinceInteraction] != maxDaysSinceInteraction {
		t.Errorf("days since interaction = %v, want clipped to %v", v[featDaysSinceInteraction], maxDaysSinceInteraction)
	}
}

func TestExtractFeaturesLowBudgetClipsUp(t *testing.T) {
	lead := repository.Lead{
		FirstName: strPtr("Nina"),
		Budget:    floatPtr(10_000),
	}
	v, _ := ExtractFeatures(lead, testNow)
	if v[featBudget] != minBudget {
		t.Errorf("budget = %v, want clipped up to %v", v[featBudget], minBudget)
	}
}

func TestMentionsFinancing(t *testing.T) {
	tests := []struct {
		notes *string
		want  bool
	}{
		{nil, false},
		{strPtr(""), false},
		{strPtr("Souhaite visiter rapidement"), false},
		{strPtr("Financement en cours avec sa banque"), true},
		{strPtr("A déjà un accord de PRÊT"), true},
		{strPtr("rendez-vous notaire la semaine prochaine"), true},
	}

	for _, tt := range tests {
		if got := mentionsFinancing(tt.notes); got != tt.want {
			t.Errorf("mentionsFinancing(%v) = %v, want %v", tt.notes, got, tt.want)
		}
	}
}

func TestSeasonalFactorRange(t *testing.T) {
	for m := time.January; m <= time.December; m++ {
		f := seasonalFactor(m)
		if f < 0 || f > 1 {
			t.Errorf("seasonalFactor(%v) = %v, out of [0,1]", m, f)
		}
	}
	// Peak must land in spring.
	if seasonalFactor(time.June) <= seasonalFactor(time.December) {
		t.Error("expected spring months above winter months")
	}
}

func TestCityScoreCaseInsensitive(t *testing.T) {
	if got := cityScore(strPtr("  PARIS ")); got != 10 {
		t.Errorf("cityScore(PARIS) = %v, want 10", got)
	}
	if got := cityScore(strPtr("Trifouillis")); got != defaultCityDesirability {
		t.Errorf("unknown city = %v, want default %v", got, defaultCityDesirability)
	}
}

func TestIsEmptyLead(t *testing.T) {
	if !isEmptyLead(repository.Lead{}) {
		t.Fatal("zero-value lead should be empty")
	}
	if isEmptyLead(repository.Lead{Email: strPtr("a@b.fr")}) {
		t.Fatal("lead with email should not be empty")
	}
	if isEmptyLead(repository.Lead{EmailInteractions: 1}) {
		t.Fatal("lead with interactions should not be empty")
	}
}

func TestExtractFeaturesEmptyLeadFallback(t *testing.T) {
	_, reason := ExtractFeatures(repository.Lead{}, testNow)
	if reason != FallbackEmptyLead {
		t.Fatalf("reason = %q, want %q", reason, FallbackEmptyLead)
	}
}

func TestExtractFeaturesDeterministic(t *testing.T) {
	lead := repository.Lead{
		FirstName:         strPtr("Sophie"),
		Budget:            floatPtr(600_000),
		City:              strPtr("Lyon"),
		Notes:             strPtr("financement en cours"),
		EmailInteractions: 4,
		TotalInteractions: 6,
		CreatedAt:         testNow.Add(-10 * 24 * time.Hour),
	}

	a, _ := ExtractFeatures(lead, testNow)
	b, _ := ExtractFeatures(lead, testNow)
	for i := range a {
		if math.Abs(a[i]-b[i]) != 0 {
			t.Fatalf("feature %d differs between runs: %v vs %v", i, a[i], b[i])
		}
	}
}
