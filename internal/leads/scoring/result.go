package scoring

import (
	"time"

	"github.com/google/uuid"
)

const (
	// scoreVersion tracks the scoring model for debugging and analysis.
	// Bump this when changing scoring logic significantly.
	scoreVersion = "2026-v1"

	// neutralScore is returned whenever the pipeline cannot produce a real
	// prediction (empty record, missing model). Scoring is total: callers
	// always get a usable result, never an error.
	neutralScore = 50.0
)

// FallbackReason says why a result carries the neutral fallback instead of a
// real prediction. Explicit reasons replace catch-all exception handling.
type FallbackReason string

const (
	FallbackNone           FallbackReason = ""
	FallbackEmptyLead      FallbackReason = "empty_lead"
	FallbackNoModel        FallbackReason = "no_model"
	FallbackPredictorError FallbackReason = "predictor_error"
)

// Action is one recommended next step for the agent.
type Action struct {
	ID          string `json:"id"`
	Priority    string `json:"priority"`
	Description string `json:"description"`
	Timing      string `json:"timing"`
	Reason      string `json:"reason"`
}

// Result is one immutable scoring outcome for a lead. A lead accumulates a
// history of results; only the latest is authoritative for display.
type Result struct {
	LeadID             uuid.UUID          `json:"leadId"`
	Score              float64            `json:"score"`
	Tier               string             `json:"tier"`
	ClosingProbability float64            `json:"closingProbability"`
	PredictedValue     float64            `json:"predictedValue"`
	ConfidenceLow      float64            `json:"confidenceLow"`
	ConfidenceHigh     float64            `json:"confidenceHigh"`
	ContactTiming      string             `json:"contactTiming"`
	LeadIntent         string             `json:"leadIntent"`
	Signals            []string           `json:"signals"`
	Actions            []Action           `json:"actions"`
	Insight            string             `json:"insight"`
	Urgency            float64            `json:"urgency"`
	QualityIndicators  map[string]string  `json:"qualityIndicators"`
	PredictionFactors  map[string]float64 `json:"predictionFactors"`
	Fallback           FallbackReason     `json:"fallback,omitempty"`
	Version            string             `json:"version"`
	GeneratedAt        time.Time          `json:"generatedAt"`
}

// RetrainStatus identifies the outcome of a retrain request.
type RetrainStatus string

const (
	RetrainSuccess          RetrainStatus = "success"
	RetrainInsufficientData RetrainStatus = "insufficient_data"
)

// RetrainResult reports either updated model metrics or the sample shortfall.
type RetrainResult struct {
	Status   RetrainStatus `json:"status"`
	Required int           `json:"required,omitempty"`
	Provided int           `json:"provided,omitempty"`
	Accuracy float64       `json:"accuracy,omitempty"`
	MAE      float64       `json:"mae,omitempty"`
	Samples  int           `json:"samples,omitempty"`
}
