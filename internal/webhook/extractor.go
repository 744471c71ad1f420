package webhook

import (
	"regexp"
	"strconv"
	"strings"

	"efficity_backend/platform/sanitize"
)

// ExtractedFields holds the fields extracted from raw form data via
// best-effort label matching. Every field is optional: capture forms vary
// per campaign and we take whatever they give us.
type ExtractedFields struct {
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	City       string
	PostalCode string
	Budget     *float64
	Message    string
	Source     string
	Age        *int
}

// IsIncomplete returns true when the minimum (a name plus one contact
// channel) is missing. Incomplete submissions still become leads; they are
// flagged for manual follow-up instead of dropped.
func (e ExtractedFields) IsIncomplete() bool {
	hasName := e.FirstName != "" || e.LastName != ""
	hasContact := e.Phone != "" || e.Email != ""
	return !hasName || !hasContact
}

// ExtractFields performs best-effort field extraction from a flat string map
// of form data, using label matching across common French and English field
// names.
func ExtractFields(data map[string]string) ExtractedFields {
	var result ExtractedFields

	for key, value := range data {
		// Form data comes from public websites; strip any markup before it
		// reaches storage or an agent's screen.
		value = sanitize.Text(value)
		if value == "" {
			continue
		}
		k := strings.ToLower(strings.TrimSpace(key))

		switch {
		case matchesAny(k, firstNamePatterns):
			result.FirstName = value
		case matchesAny(k, lastNamePatterns):
			result.LastName = value
		case matchesAny(k, fullNamePatterns):
			parts := strings.SplitN(value, " ", 2)
			result.FirstName = parts[0]
			if len(parts) > 1 {
				result.LastName = parts[1]
			}
		case matchesAny(k, emailPatterns):
			if emailRegex.MatchString(value) {
				result.Email = value
			}
		case matchesAny(k, phonePatterns):
			result.Phone = value
		case matchesAny(k, cityPatterns):
			result.City = value
		case matchesAny(k, postalCodePatterns):
			if frenchZipRe.MatchString(value) {
				result.PostalCode = value
			}
		case matchesAny(k, budgetPatterns):
			if budget, ok := parseBudget(value); ok {
				result.Budget = &budget
			}
		case matchesAny(k, messagePatterns):
			result.Message = value
		case matchesAny(k, sourcePatterns):
			result.Source = value
		case matchesAny(k, agePatterns):
			if age, err := strconv.Atoi(value); err == nil && age >= 18 && age <= 120 {
				result.Age = &age
			}
		}
	}

	// A full name captured under a first-name label.
	if result.FirstName != "" && result.LastName == "" && strings.Contains(result.FirstName, " ") {
		parts := strings.SplitN(result.FirstName, " ", 2)
		result.FirstName = parts[0]
		result.LastName = parts[1]
	}

	return result
}

// Field label patterns (French + English).
var (
	firstNamePatterns  = []string{"first_name", "firstname", "first name", "prenom", "prénom", "fname"}
	lastNamePatterns   = []string{"last_name", "lastname", "last name", "nom", "nom_de_famille", "surname", "lname"}
	fullNamePatterns   = []string{"name", "full_name", "fullname", "nom_complet", "nom complet", "your_name"}
	emailPatterns      = []string{"email", "e-mail", "e_mail", "courriel", "adresse_email", "email_address", "mail"}
	phonePatterns      = []string{"phone", "telephone", "téléphone", "tel", "tél", "portable", "mobile", "numero", "numéro", "phone_number"}
	cityPatterns       = []string{"city", "ville", "commune", "localite", "localité", "secteur", "location"}
	postalCodePatterns = []string{"zip", "zipcode", "code_postal", "code postal", "codepostal", "cp", "postal_code", "postalcode"}
	budgetPatterns     = []string{"budget", "budget_max", "prix", "price", "montant", "enveloppe"}
	messagePatterns    = []string{"message", "commentaire", "commentaires", "projet", "description", "notes", "precisions", "précisions", "demande"}
	sourcePatterns     = []string{"source", "origine", "provenance", "canal", "utm_source"}
	agePatterns        = []string{"age", "âge"}
)

var (
	emailRegex  = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	frenchZipRe = regexp.MustCompile(`^\d{5}$`)
	budgetRe    = regexp.MustCompile(`[\d][\d\s.,]*`)
)

func matchesAny(label string, patterns []string) bool {
	// Strip spaces, dashes and underscores for fuzzy matching.
	normalized := labelNormalizer.Replace(label)
	for _, p := range patterns {
		if normalized == labelNormalizer.Replace(p) {
			return true
		}
	}
	return false
}

var labelNormalizer = strings.NewReplacer("-", "", "_", "", " ", "")

// parseBudget pulls a numeric amount out of free text like "450 000 €",
// "450.000", "450k" or "0,45 M". Thousands separators (space, dot) are
// stripped; a trailing k or M multiplies.
func parseBudget(value string) (float64, bool) {
	lower := strings.ToLower(strings.TrimSpace(value))

	multiplier := 1.0
	switch {
	case strings.Contains(lower, "m€") || strings.HasSuffix(lower, "m"):
		multiplier = 1_000_000
	case strings.Contains(lower, "k€") || strings.HasSuffix(lower, "k"):
		multiplier = 1_000
	}

	match := budgetRe.FindString(lower)
	if match == "" {
		return 0, false
	}

	cleaned := strings.NewReplacer(" ", "", " ", "").Replace(match)
	if multiplier == 1.0 {
		// "450.000" and "450,000" are thousand separators; "0,45" is a decimal.
		if sep := strings.LastIndexAny(cleaned, ".,"); sep >= 0 && len(cleaned)-sep-1 == 3 {
			cleaned = strings.NewReplacer(".", "", ",", "").Replace(cleaned)
		}
	}
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || amount <= 0 {
		return 0, false
	}
	return amount * multiplier, true
}
