package scoring

// Weights distribute the composite score across the five sub-scores.
// They must sum to 1.0. The defaults are product tuning, not derived
// constants; override them through configuration to re-tune.
type Weights struct {
	Behavioral    float64
	Demographic   float64
	Financial     float64
	Temporal      float64
	Psychographic float64
}

// DefaultWeights returns the reference weight split.
func DefaultWeights() Weights {
	return Weights{
		Behavioral:    0.35,
		Demographic:   0.25,
		Financial:     0.20,
		Temporal:      0.15,
		Psychographic: 0.05,
	}
}

// SubScores holds the five per-dimension scores, each in [0,100].
type SubScores struct {
	Behavioral    float64
	Demographic   float64
	Financial     float64
	Temporal      float64
	Psychographic float64
}

// HeuristicPredictor computes the composite score as a weighted sum of
// deterministic sub-scores. It is always available (no trained model needed)
// and is the default strategy.
type HeuristicPredictor struct {
	weights Weights
}

// NewHeuristicPredictor creates the heuristic strategy with the given weights.
func NewHeuristicPredictor(weights Weights) *HeuristicPredictor {
	return &HeuristicPredictor{weights: weights}
}

// Predict returns the composite score in [0,100]. Inference is pure: same
// vector, same score, no randomness.
func (p *HeuristicPredictor) Predict(v FeatureVector) (float64, FallbackReason) {
	sub := p.SubScores(v)
	score := sub.Behavioral*p.weights.Behavioral +
		sub.Demographic*p.weights.Demographic +
		sub.Financial*p.weights.Financial +
		sub.Temporal*p.weights.Temporal +
		sub.Psychographic*p.weights.Psychographic
	return clip(score, 0, 100), FallbackNone
}

// SubScores computes the five dimension scores for a feature vector.
// Each dimension lands in [0,100] before weighting.
func (p *HeuristicPredictor) SubScores(v FeatureVector) SubScores {
	return SubScores{
		Behavioral:    scoreBehavioral(v),
		Demographic:   scoreDemographic(v),
		Financial:     scoreFinancial(v),
		Temporal:      scoreTemporal(v),
		Psychographic: scorePsychographic(v),
	}
}

// scoreBehavioral rewards engagement: email interactions, response speed and
// reachable channels. Interaction counts are uncapped at extraction and
// capped here.
func scoreBehavioral(v FeatureVector) float64 {
	score := 0.0

	interactions := v[featEmailInteractions]
	if interactions > 10 {
		interactions = 10
	}
	score += interactions * 5 // up to 50

	switch hours := v[featResponseTimeHours]; {
	case hours <= 1:
		score += 40
	case hours <= 4:
		score += 32
	case hours <= 12:
		score += 20
	case hours <= 24:
		score += 10
	case hours <= 48:
		score += 4
	}

	score += v[featContactChannels] * 5 // up to 10

	return clip(score, 0, 100)
}

// scoreDemographic combines the buyer-age band with location desirability.
func scoreDemographic(v FeatureVector) float64 {
	score := 0.0

	switch age := v[featAge]; {
	case age >= 28 && age <= 55:
		score += 40 // prime buying years
	case age >= 22 && age <= 65:
		score += 25
	default:
		score += 10
	}

	score += v[featCityDesirability] * 6 // up to 60

	return clip(score, 0, 100)
}

// scoreFinancial normalizes the declared budget over the clipped range and
// rewards an explicit financing mention.
func scoreFinancial(v FeatureVector) float64 {
	score := 0.0

	if budget := v[featBudget]; budget > 0 {
		score += (budget - minBudget) / (maxBudget - minBudget) * 80
	}
	if v[featFinancing] >= 1 {
		score += 20
	}

	return clip(score, 0, 100)
}

// scoreTemporal rewards recency: recent interactions and a fresh pipeline
// position convert best, with a seasonal modifier on top.
func scoreTemporal(v FeatureVector) float64 {
	score := 0.0

	switch days := v[featDaysSinceInteraction]; {
	case days <= 3:
		score += 40
	case days <= 7:
		score += 30
	case days <= 14:
		score += 18
	case days <= 30:
		score += 8
	}

	switch days := v[featDaysInPipeline]; {
	case days <= 7:
		score += 30
	case days <= 30:
		score += 20
	case days <= 90:
		score += 10
	}

	score += v[featSeasonal] * 30

	return clip(score, 0, 100)
}

// scorePsychographic is the softest dimension: intent markers in free text
// and the quality of the acquisition channel.
func scorePsychographic(v FeatureVector) float64 {
	score := 0.0

	if v[featFinancing] >= 1 {
		score += 40
	}
	score += v[featSourceQuality] * 6 // up to 60

	return clip(score, 0, 100)
}

// ClassifierPredictor converts the trained model's tier probabilities into a
// continuous score: score = sum(P(tier_i) * i * 25), which interpolates
// linearly between the tier boundaries 0, 25, 50, 75, 100.
type ClassifierPredictor struct {
	model *Model
}

// NewClassifierPredictor creates the classifier strategy over a shared model.
func NewClassifierPredictor(model *Model) *ClassifierPredictor {
	return &ClassifierPredictor{model: model}
}

// Predict returns the expectation score, or the neutral default when no
// trained snapshot is available. It never fails: scoring must not block
// lead ingestion.
func (p *ClassifierPredictor) Predict(v FeatureVector) (float64, FallbackReason) {
	snap := p.model.Snapshot()
	if snap == nil {
		return neutralScore, FallbackNoModel
	}

	probs := snap.Probabilities(v)
	score := 0.0
	for tier, prob := range probs {
		score += prob * float64(tier) * 25
	}
	return clip(score, 0, 100), FallbackNone
}

// Predictor maps a feature vector to a composite score in [0,100].
// Implementations must be deterministic and safe for concurrent use.
type Predictor interface {
	Predict(v FeatureVector) (float64, FallbackReason)
}

var (
	_ Predictor = (*HeuristicPredictor)(nil)
	_ Predictor = (*ClassifierPredictor)(nil)
)
