package scoring

import (
	"testing"
	"time"

	"efficity_backend/internal/leads/repository"
)

func richLead() repository.Lead {
	return repository.Lead{
		FirstName:         strPtr("Sophie"),
		LastName:          strPtr("Martin"),
		Email:             strPtr("sophie.martin@example.fr"),
		Phone:             strPtr("+33612345678"),
		Budget:            floatPtr(900_000),
		City:              strPtr("Paris"),
		Source:            strPtr("referral"),
		Notes:             strPtr("Financement validé par la banque"),
		Age:               intPtr(38),
		EmailInteractions: 8,
		TotalInteractions: 12,
		ResponseTimeHours: floatPtr(1),
		LastInteractionAt: timePtr(testNow.Add(-24 * time.Hour)),
		CreatedAt:         testNow.Add(-3 * 24 * time.Hour),
	}
}

func coldLead() repository.Lead {
	return repository.Lead{
		FirstName:         strPtr("Jean"),
		Source:            strPtr("achat_fichier"),
		Age:               intPtr(19),
		ResponseTimeHours: floatPtr(60),
		CreatedAt:         testNow.Add(-170 * 24 * time.Hour),
	}
}

func TestHeuristicPredictRange(t *testing.T) {
	p := NewHeuristicPredictor(DefaultWeights())

	for _, lead := range []repository.Lead{richLead(), coldLead(), {FirstName: strPtr("X")}} {
		v, _ := ExtractFeatures(lead, testNow)
		score, reason := p.Predict(v)
		if reason != FallbackNone {
			t.Fatalf("unexpected fallback %q", reason)
		}
		if score < 0 || score > 100 {
			t.Errorf("score %v out of [0,100]", score)
		}
	}
}

func TestHeuristicOrdersLeadsSensibly(t *testing.T) {
	p := NewHeuristicPredictor(DefaultWeights())

	hot, _ := ExtractFeatures(richLead(), testNow)
	cold, _ := ExtractFeatures(coldLead(), testNow)

	hotScore, _ := p.Predict(hot)
	coldScore, _ := p.Predict(cold)

	if hotScore <= coldScore {
		t.Fatalf("engaged high-budget lead scored %v, below stale lead %v", hotScore, coldScore)
	}
	if hotScore < 80 {
		t.Errorf("strongly qualified lead scored %v, expected Gold or better", hotScore)
	}
	if coldScore >= 60 {
		t.Errorf("stale unqualified lead scored %v, expected below Silver", coldScore)
	}
}

func TestHeuristicDeterministic(t *testing.T) {
	p := NewHeuristicPredictor(DefaultWeights())
	v, _ := ExtractFeatures(richLead(), testNow)

	first, _ := p.Predict(v)
	for i := 0; i < 50; i++ {
		got, _ := p.Predict(v)
		if got != first {
			t.Fatalf("run %d: score %v differs from first run %v", i, got, first)
		}
	}
}

func TestSubScoresWithinRange(t *testing.T) {
	p := NewHeuristicPredictor(DefaultWeights())
	for _, lead := range []repository.Lead{richLead(), coldLead()} {
		v, _ := ExtractFeatures(lead, testNow)
		sub := p.SubScores(v)
		for name, s := range map[string]float64{
			"behavioral":    sub.Behavioral,
			"demographic":   sub.Demographic,
			"financial":     sub.Financial,
			"temporal":      sub.Temporal,
			"psychographic": sub.Psychographic,
		} {
			if s < 0 || s > 100 {
				t.Errorf("%s sub-score %v out of [0,100]", name, s)
			}
		}
	}
}

func TestClassifierUntrainedFallsBack(t *testing.T) {
	p := NewClassifierPredictor(NewModel())
	v, _ := ExtractFeatures(richLead(), testNow)

	score, reason := p.Predict(v)
	if reason != FallbackNoModel {
		t.Fatalf("reason = %q, want %q", reason, FallbackNoModel)
	}
	if score != neutralScore {
		t.Fatalf("score = %v, want neutral %v", score, neutralScore)
	}
}

func TestClassifierTrainedSeparatesOutcomes(t *testing.T) {
	model := NewModel()
	samples := trainingSamples(t, 60)
	if _, err := model.Train(samples); err != nil {
		t.Fatalf("train: %v", err)
	}

	p := NewClassifierPredictor(model)

	hot, _ := ExtractFeatures(richLead(), testNow)
	cold, _ := ExtractFeatures(coldLead(), testNow)

	hotScore, reason := p.Predict(hot)
	if reason != FallbackNone {
		t.Fatalf("unexpected fallback %q", reason)
	}
	coldScore, _ := p.Predict(cold)

	if hotScore <= coldScore {
		t.Fatalf("trained classifier: hot %v not above cold %v", hotScore, coldScore)
	}
}

func TestClassifierTrainedDeterministic(t *testing.T) {
	model := NewModel()
	if _, err := model.Train(trainingSamples(t, 60)); err != nil {
		t.Fatalf("train: %v", err)
	}
	p := NewClassifierPredictor(model)
	v, _ := ExtractFeatures(richLead(), testNow)

	first, _ := p.Predict(v)
	for i := 0; i < 20; i++ {
		got, _ := p.Predict(v)
		if got != first {
			t.Fatalf("run %d: score %v differs from %v", i, got, first)
		}
	}
}

// trainingSamples builds a balanced synthetic training set: won-style leads
// look like richLead, lost-style leads like coldLead, with deterministic
// variation in between.
func trainingSamples(t *testing.T, n int) []Sample {
	t.Helper()

	samples := make([]Sample, 0, n)
	for i := 0; i < n; i++ {
		label := i % tierCount

		lead := coldLead()
		lead.EmailInteractions = label * 2
		lead.TotalInteractions = label * 3
		lead.Budget = floatPtr(100_000 + float64(label)*350_000)
		lead.ResponseTimeHours = floatPtr(48 - float64(label)*11)
		lead.LastInteractionAt = timePtr(testNow.Add(-time.Duration(28-label*6) * 24 * time.Hour))
		if label >= 3 {
			lead.City = strPtr("Lyon")
			lead.Notes = strPtr("financement en cours")
		}

		v, _ := ExtractFeatures(lead, testNow)
		samples = append(samples, Sample{Features: v, Label: label})
	}
	return samples
}

func TestModelTrainMetrics(t *testing.T) {
	model := NewModel()
	metrics, err := model.Train(trainingSamples(t, 100))
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if metrics.Samples != 100 {
		t.Errorf("samples = %d, want 100", metrics.Samples)
	}
	if metrics.Accuracy < 0 || metrics.Accuracy > 1 {
		t.Errorf("accuracy %v out of [0,1]", metrics.Accuracy)
	}
	if metrics.MAE < 0 || metrics.MAE > 100 {
		t.Errorf("mae %v out of [0,100]", metrics.MAE)
	}
}

func TestModelTrainRejectsEmpty(t *testing.T) {
	if _, err := NewModel().Train(nil); err == nil {
		t.Fatal("expected error for empty training set")
	}
}

func TestLabelForStatus(t *testing.T) {
	tests := []struct {
		status string
		label  int
		ok     bool
	}{
		{"won", 4, true},
		{"visit_scheduled", 3, true},
		{"engaged", 2, true},
		{"cold", 1, true},
		{"lost", 0, true},
		{"new", 0, false},
		{"contacted", 0, false},
	}

	for _, tt := range tests {
		label, ok := LabelForStatus(tt.status)
		if ok != tt.ok || (ok && label != tt.label) {
			t.Errorf("LabelForStatus(%q) = (%d, %v), want (%d, %v)", tt.status, label, ok, tt.label, tt.ok)
		}
	}
}
