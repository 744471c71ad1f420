package scoring

import (
	"errors"
	"math"
	"sync/atomic"
)

// tierCount is the number of ordered outcome classes (0 = lowest .. 4 = highest).
const tierCount = 5

// Sample is one labeled training observation: a feature vector plus the tier
// index its outcome maps to.
type Sample struct {
	Features FeatureVector
	Label    int
}

// Metrics summarizes how a trained snapshot fits its training set.
type Metrics struct {
	Accuracy float64
	MAE      float64
	Samples  int
}

// Snapshot is an immutable trained classifier: per-tier feature centroids
// over standardized features. Once built it is never mutated, so concurrent
// reads need no locking.
type Snapshot struct {
	centroids [tierCount]FeatureVector
	present   [tierCount]bool
	mean      FeatureVector
	scale     FeatureVector
	samples   int
}

// Probabilities returns a probability vector over the five tiers via a
// softmax of negative centroid distances. Deterministic for a fixed
// snapshot and vector.
func (s *Snapshot) Probabilities(v FeatureVector) [tierCount]float64 {
	std := s.standardize(v)

	var weights [tierCount]float64
	sum := 0.0
	for tier := 0; tier < tierCount; tier++ {
		if !s.present[tier] {
			continue
		}
		w := math.Exp(-distance(std, s.standardize(s.centroids[tier])))
		weights[tier] = w
		sum += w
	}

	var probs [tierCount]float64
	if sum == 0 {
		// Degenerate snapshot: fall back to a uniform spread, which yields
		// the neutral expectation score of 50.
		for tier := range probs {
			probs[tier] = 1.0 / tierCount
		}
		return probs
	}
	for tier := range weights {
		probs[tier] = weights[tier] / sum
	}
	return probs
}

func (s *Snapshot) standardize(v FeatureVector) FeatureVector {
	var out FeatureVector
	for i := range v {
		out[i] = (v[i] - s.mean[i]) / s.scale[i]
	}
	return out
}

func distance(a, b FeatureVector) float64 {
	total := 0.0
	for i := range a {
		d := a[i] - b[i]
		total += d * d
	}
	return math.Sqrt(total)
}

// Model holds the active classifier snapshot. Inference reads the snapshot
// lock-free; Train builds a complete replacement and swaps the pointer
// atomically, so retraining never runs concurrently with inference against
// a half-built model.
type Model struct {
	snap atomic.Pointer[Snapshot]
}

// NewModel creates an untrained model. Snapshot() returns nil until the
// first successful Train.
func NewModel() *Model {
	return &Model{}
}

// Snapshot returns the active trained snapshot, or nil when untrained.
func (m *Model) Snapshot() *Snapshot {
	return m.snap.Load()
}

// Train builds a new snapshot from the samples and swaps it in. The
// previously active snapshot stays valid for readers that already hold it.
func (m *Model) Train(samples []Sample) (Metrics, error) {
	if len(samples) == 0 {
		return Metrics{}, errors.New("no training samples")
	}

	snap := buildSnapshot(samples)
	metrics := evaluate(snap, samples)
	m.snap.Store(snap)
	return metrics, nil
}

func buildSnapshot(samples []Sample) *Snapshot {
	snap := &Snapshot{samples: len(samples)}

	// Feature standardization keeps the distance metric from being dominated
	// by the budget scale.
	n := float64(len(samples))
	for _, s := range samples {
		for i, f := range s.Features {
			snap.mean[i] += f / n
		}
	}
	for _, s := range samples {
		for i, f := range s.Features {
			d := f - snap.mean[i]
			snap.scale[i] += d * d / n
		}
	}
	for i := range snap.scale {
		snap.scale[i] = math.Sqrt(snap.scale[i])
		if snap.scale[i] < 1e-9 {
			snap.scale[i] = 1
		}
	}

	var counts [tierCount]float64
	for _, s := range samples {
		label := s.Label
		if label < 0 || label >= tierCount {
			continue
		}
		counts[label]++
		for i, f := range s.Features {
			snap.centroids[label][i] += f
		}
	}
	for tier := 0; tier < tierCount; tier++ {
		if counts[tier] == 0 {
			continue
		}
		snap.present[tier] = true
		for i := range snap.centroids[tier] {
			snap.centroids[tier][i] /= counts[tier]
		}
	}

	return snap
}

// evaluate computes training-set accuracy (argmax class match) and the mean
// absolute error of the expectation score against the label's tier midpoint.
func evaluate(snap *Snapshot, samples []Sample) Metrics {
	correct := 0
	absErr := 0.0
	counted := 0

	for _, s := range samples {
		if s.Label < 0 || s.Label >= tierCount {
			continue
		}
		counted++

		probs := snap.Probabilities(s.Features)
		best, bestProb := 0, -1.0
		expected := 0.0
		for tier, prob := range probs {
			expected += prob * float64(tier) * 25
			if prob > bestProb {
				best, bestProb = tier, prob
			}
		}

		if best == s.Label {
			correct++
		}
		absErr += math.Abs(expected - float64(s.Label)*25)
	}

	if counted == 0 {
		return Metrics{}
	}
	return Metrics{
		Accuracy: float64(correct) / float64(counted),
		MAE:      absErr / float64(counted),
		Samples:  counted,
	}
}

// outcomeLabels maps a lead's terminal status to its training tier index.
var outcomeLabels = map[string]int{
	"won":             4,
	"visit_scheduled": 3,
	"engaged":         2,
	"cold":            1,
	"lost":            0,
}

// LabelForStatus returns the tier index for an outcome status, and whether
// the status is a usable label at all.
func LabelForStatus(status string) (int, bool) {
	label, ok := outcomeLabels[status]
	return label, ok
}
