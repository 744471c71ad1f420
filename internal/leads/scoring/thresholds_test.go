package scoring

import "testing"

func TestTierForBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{100, TierPlatinum},
		{90, TierPlatinum},
		{89.999, TierGold},
		{80, TierGold},
		{79.999, TierSilver},
		{60, TierSilver},
		{59.999, TierBronze},
		{50, TierBronze},
		{40, TierBronze},
		{39.999, TierProspect},
		{0, TierProspect},
	}

	for _, tt := range tests {
		if got := TierFor(tt.score); got != tt.want {
			t.Errorf("TierFor(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestTierForClampsOutOfRange(t *testing.T) {
	if got := TierFor(150); got != TierPlatinum {
		t.Errorf("TierFor(150) = %q, want %q", got, TierPlatinum)
	}
	if got := TierFor(-20); got != TierProspect {
		t.Errorf("TierFor(-20) = %q, want %q", got, TierProspect)
	}
}

func TestTimingForBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{95, TimingImmediate},
		{90, TimingImmediate},
		{89.9, TimingToday},
		{75, TimingToday},
		{74.9, TimingTomorrow},
		{60, TimingTomorrow},
		{59.9, TimingThisWeek},
		{45, TimingThisWeek},
		{44.9, TimingNextWeek},
		{0, TimingNextWeek},
	}

	for _, tt := range tests {
		if got := TimingFor(tt.score); got != tt.want {
			t.Errorf("TimingFor(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestIntentForBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{85, IntentHighBuyer},
		{84.9, IntentActiveSearcher},
		{70, IntentActiveSearcher},
		{69.9, IntentConsidering},
		{50, IntentConsidering},
		{49.9, IntentCurious},
		{30, IntentCurious},
		{29.9, IntentUnlikely},
		{0, IntentUnlikely},
	}

	for _, tt := range tests {
		if got := IntentFor(tt.score); got != tt.want {
			t.Errorf("IntentFor(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestNeutralScoreLandsOnBronze(t *testing.T) {
	// The fallback contract depends on 50 classifying as Bronze.
	if got := TierFor(neutralScore); got != TierBronze {
		t.Fatalf("TierFor(neutralScore) = %q, want %q", got, TierBronze)
	}
}
