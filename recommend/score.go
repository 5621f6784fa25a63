package recommend

import (
	"github.com/SiddhiSinghal/elective-recommender/catalog"
	"github.com/SiddhiSinghal/elective-recommender/profile"
)

// Combined-score weights. Strength is weighted higher than market demand:
// demonstrated aptitude is a more reliable signal than an external market
// indicator.
const (
	StrengthWeight = 0.6
	MarketWeight   = 0.4
)

// StrengthScore measures how well a student's skill profile aligns with a
// subject's required skills, on a 0-10 scale.
//
// Comparison is restricted to the subject's required labels. A label missing
// from the profile contributes zero — no evidence, not negative evidence. A
// subject whose every required skill is absent scores 0: a legitimate
// "no alignment" signal, not an error.
func StrengthScore(p profile.SkillProfile, subject catalog.Subject) float64 {
	var weighted, totalWeight float64
	for label, weight := range subject.RequiredSkills {
		totalWeight += weight
		if strength, ok := p.Strength(label); ok {
			weighted += strength * weight
		}
	}
	if totalWeight == 0 {
		return 0
	}
	return weighted / totalWeight * 10.0
}

// CombinedScore merges strength and market scores (both 0-10) into the
// ranking metric.
func CombinedScore(strength, market float64) float64 {
	return StrengthWeight*strength + MarketWeight*market
}
