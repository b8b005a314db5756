package trust

import "whorl/internal/visitors"

// ShouldTrust decides whether a match survives the crowd-blending gate.
// Hardware-grade layers always pass. A fuzzy match is suspect only once the
// visitor has accumulated enough history that IP diversity should have shown
// up, so it passes while the history is short or the score corroborates it.
func ShouldTrust(result Result, matchType visitors.MatchType) bool {
	if matchType != visitors.MatchFuzzy {
		return true
	}
	return result.VisitCount <= 5 || result.Score >= 0.2
}

// ConfidenceBoost returns the additive confidence bonus earned by the
// visitor's history. Weaker match types benefit most from corroboration.
func ConfidenceBoost(result Result, matchType visitors.MatchType) float64 {
	coefficient := 0.0
	switch matchType {
	case visitors.MatchExact:
		coefficient = 0.05
	case visitors.MatchStable:
		coefficient = 0.10
	case visitors.MatchGPU:
		coefficient = 0.08
	case visitors.MatchFuzzyStable:
		coefficient = 0.15
	case visitors.MatchFuzzy:
		coefficient = 0.20
	}
	return coefficient * result.Score
}
