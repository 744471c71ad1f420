package scoring

import (
	"context"
	"encoding/json"
	"time"

	"efficity_backend/internal/events"
	"efficity_backend/internal/leads/repository"
	"efficity_backend/platform/config"
	"efficity_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// batchConcurrency bounds parallel lookups during batch scoring.
const batchConcurrency = 8

// Store is the narrow persistence port the scoring service needs. The full
// leads repository satisfies it.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	SaveScore(ctx context.Context, record *repository.ScoreRecord) error
	ListLabeled(ctx context.Context, limit int) ([]repository.Lead, error)
}

// Service runs the scoring pipeline: feature extraction, score prediction,
// threshold classification and insight generation. Score computation is pure
// and synchronous; persistence of results is best-effort and never affects
// the returned value.
type Service struct {
	store Store
	bus   events.Bus
	log   *logger.Logger

	heuristic     *HeuristicPredictor
	classifier    *ClassifierPredictor
	model         *Model
	useClassifier bool
	minSamples    int

	now func() time.Time
}

// New creates the scoring service with the configured weights and strategy.
func New(store Store, bus events.Bus, cfg config.ScoringConfig, log *logger.Logger) *Service {
	b, d, f, t, p := cfg.GetScoringWeights()
	weights := Weights{Behavioral: b, Demographic: d, Financial: f, Temporal: t, Psychographic: p}

	model := NewModel()
	minSamples := cfg.GetRetrainMinSamples()
	if minSamples < 1 {
		minSamples = 50
	}

	return &Service{
		store:         store,
		bus:           bus,
		log:           log,
		heuristic:     NewHeuristicPredictor(weights),
		classifier:    NewClassifierPredictor(model),
		model:         model,
		useClassifier: cfg.GetUseClassifier(),
		minSamples:    minSamples,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Score computes a full result for a lead. It is total: malformed or empty
// input resolves to the neutral fallback, never an error. The computation
// shares no mutable state between invocations except the read-only model
// snapshot, so concurrent calls are safe.
func (s *Service) Score(lead repository.Lead) Result {
	now := s.now()

	features, reason := ExtractFeatures(lead, now)
	if reason != FallbackNone {
		return s.fallbackResult(lead.ID, reason, now)
	}

	score, reason := s.predict(features)
	if reason == FallbackPredictorError {
		return s.fallbackResult(lead.ID, reason, now)
	}

	tier := TierFor(score)
	timing := TimingFor(score)
	intent := IntentFor(score)
	probability := score / 100

	signals := Signals(lead, features)
	sub := s.heuristic.SubScores(features)
	value := PredictedValue(lead, probability)
	low, high := ConfidenceInterval(value, probability)

	return Result{
		LeadID:             lead.ID,
		Score:              score,
		Tier:               tier,
		ClosingProbability: probability,
		PredictedValue:     value,
		ConfidenceLow:      low,
		ConfidenceHigh:     high,
		ContactTiming:      timing,
		LeadIntent:         intent,
		Signals:            signals,
		Actions:            ActionsForTier(tier),
		Insight:            Insight(lead, score, tier, signals),
		Urgency:            UrgencyFor(timing),
		QualityIndicators:  QualityIndicators(sub),
		PredictionFactors:  PredictionFactors(sub, s.heuristic.weights),
		Fallback:           reason,
		Version:            scoreVersion,
		GeneratedAt:        now,
	}
}

func (s *Service) predict(features FeatureVector) (float64, FallbackReason) {
	if s.useClassifier {
		return s.classifier.Predict(features)
	}
	return s.heuristic.Predict(features)
}

// fallbackResult is the documented neutral output: score 50, the tier the
// threshold table assigns to 50 (Bronze), and a generic insight. The
// pipeline resolves to this instead of surfacing an error, so scoring can
// never block ingestion or display.
func (s *Service) fallbackResult(leadID uuid.UUID, reason FallbackReason, now time.Time) Result {
	tier := TierFor(neutralScore)
	timing := TimingFor(neutralScore)
	value := fallbackTransactionValue
	low, high := ConfidenceInterval(value, neutralScore/100)

	factors := map[string]float64{
		"comportemental":  20,
		"demographique":   20,
		"financier":       20,
		"temporel":        20,
		"psychographique": 20,
	}

	return Result{
		LeadID:             leadID,
		Score:              neutralScore,
		Tier:               tier,
		ClosingProbability: neutralScore / 100,
		PredictedValue:     value,
		ConfidenceLow:      low,
		ConfidenceHigh:     high,
		ContactTiming:      timing,
		LeadIntent:         IntentFor(neutralScore),
		Signals:            []string{},
		Actions:            ActionsForTier(tier),
		Insight:            fallbackInsight,
		Urgency:            UrgencyFor(timing),
		QualityIndicators:  map[string]string{"donnees": "insuffisantes"},
		PredictionFactors:  factors,
		Fallback:           reason,
		Version:            scoreVersion,
		GeneratedAt:        now,
	}
}

// Evaluate scores a lead, persists the result and publishes LeadScored.
// Persistence is fire-and-forget: a storage failure is logged and the
// computed result is returned regardless.
func (s *Service) Evaluate(ctx context.Context, lead repository.Lead) Result {
	result := s.Score(lead)
	s.persist(ctx, result)

	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadScored{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			Score:     result.Score,
			Tier:      result.Tier,
		})
	}
	return result
}

func (s *Service) persist(ctx context.Context, result Result) {
	if s.store == nil {
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		if s.log != nil {
			s.log.Error("scoring result marshal failed", "leadId", result.LeadID, "error", err)
		}
		return
	}

	record := &repository.ScoreRecord{
		LeadID:      result.LeadID,
		Score:       result.Score,
		Tier:        result.Tier,
		Timing:      result.ContactTiming,
		Intent:      result.LeadIntent,
		ResultJSON:  payload,
		GeneratedAt: result.GeneratedAt,
	}
	if err := s.store.SaveScore(ctx, record); err != nil && s.log != nil {
		s.log.Error("scoring result persist failed", "leadId", result.LeadID, "error", err)
	}
}

// EvaluateBatch looks up and scores each lead ID concurrently. Lookups that
// fail are skipped silently: a batch of N IDs with one unknown ID yields
// N-1 results and no error.
func (s *Service) EvaluateBatch(ctx context.Context, ids []uuid.UUID) []Result {
	results := make([]Result, len(ids))
	found := make([]bool, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)

	for i, id := range ids {
		g.Go(func() error {
			lead, err := s.store.GetByID(gctx, id)
			if err != nil {
				if s.log != nil {
					s.log.Debug("batch scoring lookup skipped", "leadId", id, "error", err)
				}
				return nil
			}
			results[i] = s.Evaluate(gctx, lead)
			found[i] = true
			return nil
		})
	}
	// Workers only return nil; Wait is for completion, not errors.
	_ = g.Wait()

	out := make([]Result, 0, len(ids))
	for i := range results {
		if found[i] {
			out = append(out, results[i])
		}
	}
	return out
}

// Retrain rebuilds the classifier from labeled outcome leads. Below the
// minimum sample threshold it reports insufficient_data and leaves the
// active model untouched. On success the new snapshot replaces the old one
// atomically; in-flight inference keeps the snapshot it already holds.
func (s *Service) Retrain(leads []repository.Lead, minSamples int) RetrainResult {
	if minSamples <= 0 {
		minSamples = s.minSamples
	}

	samples := make([]Sample, 0, len(leads))
	now := s.now()
	for _, lead := range leads {
		label, ok := LabelForStatus(lead.Status)
		if !ok {
			continue
		}
		features, reason := ExtractFeatures(lead, now)
		if reason != FallbackNone {
			continue
		}
		samples = append(samples, Sample{Features: features, Label: label})
	}

	if len(samples) < minSamples {
		return RetrainResult{
			Status:   RetrainInsufficientData,
			Required: minSamples,
			Provided: len(samples),
		}
	}

	metrics, err := s.model.Train(samples)
	if err != nil {
		return RetrainResult{
			Status:   RetrainInsufficientData,
			Required: minSamples,
			Provided: len(samples),
		}
	}

	if s.log != nil {
		s.log.Info("scoring model retrained",
			"samples", metrics.Samples, "accuracy", metrics.Accuracy, "mae", metrics.MAE)
	}

	return RetrainResult{
		Status:   RetrainSuccess,
		Accuracy: metrics.Accuracy,
		MAE:      metrics.MAE,
		Samples:  metrics.Samples,
	}
}

// RetrainFromHistory pulls labeled leads from storage and retrains.
func (s *Service) RetrainFromHistory(ctx context.Context) (RetrainResult, error) {
	leads, err := s.store.ListLabeled(ctx, 5000)
	if err != nil {
		return RetrainResult{}, err
	}
	return s.Retrain(leads, 0), nil
}
