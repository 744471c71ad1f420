package scoring

import (
	"fmt"
	"strings"

	"efficity_backend/internal/leads/repository"
)

// maxSignals caps the behavioral signal list.
const maxSignals = 5

// budgetSignalThreshold is the declared budget above which a budget signal
// is emitted.
const budgetSignalThreshold = 500_000.0

// Signals returns the behavioral signal strings for a lead, at most
// maxSignals, in fixed priority order: email engagement, response speed,
// contact frequency, budget threshold, premium location, financing keywords.
func Signals(lead repository.Lead, v FeatureVector) []string {
	signals := make([]string, 0, maxSignals)
	add := func(s string) {
		if len(signals) < maxSignals {
			signals = append(signals, s)
		}
	}

	if lead.EmailInteractions >= 3 {
		add(fmt.Sprintf("Engagement e-mail soutenu (%d interactions)", lead.EmailInteractions))
	}
	if v[featResponseTimeHours] <= 4 {
		add("Répond rapidement aux sollicitations")
	}
	if lead.TotalInteractions >= 5 {
		add(fmt.Sprintf("Contact fréquent (%d échanges)", lead.TotalInteractions))
	}
	if lead.Budget != nil && *lead.Budget >= budgetSignalThreshold {
		add(fmt.Sprintf("Budget confortable (%.0f €)", *lead.Budget))
	}
	if v[featCityDesirability] >= premiumCityThreshold && lead.City != nil {
		add(fmt.Sprintf("Secteur recherché (%s)", *lead.City))
	}
	if v[featFinancing] >= 1 {
		add("Financement évoqué dans les échanges")
	}

	return signals
}

// actionTemplates keys recommended actions by tier.
var actionTemplates = map[string][]Action{
	TierPlatinum: {
		{ID: "call_now", Priority: "critique", Description: "Appeler immédiatement", Timing: "dans l'heure", Reason: "lead à très fort potentiel, chaque heure compte"},
		{ID: "book_visit", Priority: "haute", Description: "Proposer une visite ou une estimation", Timing: "aujourd'hui", Reason: "convertir l'intérêt en rendez-vous concret"},
	},
	TierGold: {
		{ID: "call_today", Priority: "haute", Description: "Appeler dans la journée", Timing: "aujourd'hui", Reason: "lead chaud, la réactivité fait la différence"},
		{ID: "send_selection", Priority: "moyenne", Description: "Envoyer une sélection de biens ciblée", Timing: "sous 24h", Reason: "entretenir l'intérêt avec du concret"},
	},
	TierSilver: {
		{ID: "call_tomorrow", Priority: "moyenne", Description: "Planifier un appel de qualification", Timing: "sous 48h", Reason: "préciser le projet et le budget"},
		{ID: "enroll_nurture", Priority: "moyenne", Description: "Inscrire dans la séquence de nurturing", Timing: "cette semaine", Reason: "maintenir le lien sans pression commerciale"},
	},
	TierBronze: {
		{ID: "enroll_nurture", Priority: "basse", Description: "Inscrire dans la séquence de nurturing", Timing: "cette semaine", Reason: "faire mûrir le projet par l'e-mail"},
		{ID: "qualify_later", Priority: "basse", Description: "Requalifier après la prochaine interaction", Timing: "à la prochaine activité", Reason: "signal encore insuffisant pour un appel"},
	},
	TierProspect: {
		{ID: "newsletter", Priority: "basse", Description: "Ajouter à la newsletter mensuelle", Timing: "ce mois-ci", Reason: "garder une présence à moindre coût"},
	},
}

// ActionsForTier returns the recommended action records for a tier. The
// slices are copied so callers can annotate them freely.
func ActionsForTier(tier string) []Action {
	templates, ok := actionTemplates[tier]
	if !ok {
		templates = actionTemplates[TierProspect]
	}
	out := make([]Action, len(templates))
	copy(out, templates)
	return out
}

// Insight builds the one-line natural language summary shown to the agent.
func Insight(lead repository.Lead, score float64, tier string, signals []string) string {
	name := lead.FullName()
	if name == "" {
		name = "Ce contact"
	}

	base := fmt.Sprintf("%s obtient un score de %.0f/100 (niveau %s).", name, score, tier)
	if len(signals) == 0 {
		return base + " Pas encore de signal comportemental exploitable."
	}

	top := signals
	if len(top) > 2 {
		top = top[:2]
	}
	return base + " Points clés : " + strings.Join(top, " ; ") + "."
}

// fallbackInsight is the generic text carried by neutral fallback results.
const fallbackInsight = "Données insuffisantes pour une analyse fiable : score neutre attribué, à requalifier après le premier échange."

// urgencyByTiming maps the contact-timing label to a 0-1 urgency value.
var urgencyByTiming = map[string]float64{
	TimingImmediate: 1.0,
	TimingToday:     0.8,
	TimingTomorrow:  0.6,
	TimingThisWeek:  0.4,
	TimingNextWeek:  0.2,
}

// UrgencyFor returns the urgency score for a contact-timing label.
func UrgencyFor(timing string) float64 {
	if u, ok := urgencyByTiming[timing]; ok {
		return u
	}
	return 0.2
}

// QualityIndicators summarizes the main dimensions as qualitative labels.
func QualityIndicators(sub SubScores) map[string]string {
	return map[string]string{
		"engagement":   qualityLabel(sub.Behavioral),
		"budget":       qualityLabel(sub.Financial),
		"localisation": qualityLabel(sub.Demographic),
		"fraicheur":    qualityLabel(sub.Temporal),
	}
}

func qualityLabel(score float64) string {
	switch {
	case score >= 70:
		return "fort"
	case score >= 40:
		return "correct"
	default:
		return "faible"
	}
}

// PredictionFactors attributes the composite score across the weighted
// dimensions as percentages summing to ~100.
func PredictionFactors(sub SubScores, w Weights) map[string]float64 {
	contributions := map[string]float64{
		"comportemental":  sub.Behavioral * w.Behavioral,
		"demographique":   sub.Demographic * w.Demographic,
		"financier":       sub.Financial * w.Financial,
		"temporel":        sub.Temporal * w.Temporal,
		"psychographique": sub.Psychographic * w.Psychographic,
	}

	total := 0.0
	for _, c := range contributions {
		total += c
	}
	if total == 0 {
		// No contribution at all: attribute evenly.
		for k := range contributions {
			contributions[k] = 100.0 / float64(len(contributions))
		}
		return contributions
	}

	for k, c := range contributions {
		contributions[k] = roundOne(c / total * 100)
	}
	return contributions
}

func roundOne(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

// PredictedValue estimates the transaction value from the declared budget,
// modulated by the closing probability. Leads without a budget fall back to
// the book's typical transaction.
const fallbackTransactionValue = 250_000.0

func PredictedValue(lead repository.Lead, probability float64) float64 {
	if lead.Budget != nil && *lead.Budget > 0 {
		return clip(*lead.Budget, minBudget, maxBudget) * (0.9 + 0.2*probability)
	}
	return fallbackTransactionValue * (0.8 + 0.4*probability)
}

// ConfidenceInterval brackets the predicted value; the band narrows as the
// closing probability grows.
func ConfidenceInterval(value, probability float64) (low, high float64) {
	margin := value * 0.3 * (1 - probability)
	return value - margin, value + margin
}
