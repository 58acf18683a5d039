package sanitize

import "math"

// Fixed per-field confidence weights. They sum to exactly 1.0; the score is a
// deterministic function of which validated fields are present.
var confidenceWeights = []struct {
	weight  float64
	present func(EnrichedCompanyData) bool
}{
	{0.25, func(d EnrichedCompanyData) bool { return d.Description != "" }},
	{0.15, func(d EnrichedCompanyData) bool { return d.Industry != "" }},
	{0.15, func(d EnrichedCompanyData) bool { return d.Headquarters != "" }},
	{0.10, func(d EnrichedCompanyData) bool { return d.CompanySize != "" }},
	{0.10, func(d EnrichedCompanyData) bool { return d.FoundedYear != 0 }},
	{0.10, func(d EnrichedCompanyData) bool { return len(d.KeyPeople) > 0 }},
	{0.05, func(d EnrichedCompanyData) bool { return d.ProductSummary != "" }},
	{0.03, func(d EnrichedCompanyData) bool { return d.Pricing != "" }},
	{0.02, func(d EnrichedCompanyData) bool { return len(d.TechStack) > 0 }},
	{0.05, func(d EnrichedCompanyData) bool { return !d.SocialLinks.Empty() }},
}

// Confidence sums the weights of present fields, rounded to two decimals.
func Confidence(data EnrichedCompanyData) float64 {
	score := 0.0
	for _, w := range confidenceWeights {
		if w.present(data) {
			score += w.weight
		}
	}
	return math.Round(score*100) / 100
}
