package agent

import (
	"fmt"
	"strings"

	"github.com/Blynx-ai/blynx-backend/internal/model"
)

// Composite weights. Red flags contribute as a penalty: the component
// value is 100 minus the overall risk score.
const (
	weightAccuracy = 0.30
	weightImpact   = 0.25
	weightLanguage = 0.20
	weightRedFlags = 0.25
)

type scoreComponent struct {
	name   string
	weight float64
	value  float64
	ok     bool
}

// ComputeScore combines evaluator and analysis outputs into the final
// composite score. Degraded inputs (error payloads or payloads missing
// their score field) are excluded and the remaining weights are
// renormalized, so one failed evaluator lowers confidence rather than
// zeroing the score. When every weighted component is degraded the
// score is 0 with grade F.
func ComputeScore(analysis, evaluations map[string]model.Payload) model.Score {
	components := []scoreComponent{
		component("accuracy", weightAccuracy, evaluations["accuracy"], "overall_accuracy_score", false),
		component("impact", weightImpact, evaluations["impact"], "overall_impact_score", false),
		component("language", weightLanguage, evaluations["language"], "overall_language_score", false),
		component("red_flags", weightRedFlags, analysis["red_flags"], "overall_risk_score", true),
	}

	var score model.Score
	score.Accuracy = components[0].value
	score.Impact = components[1].value
	score.Language = components[2].value
	score.RedFlagPenalty = 100 - components[3].value

	// Brand and reputation are reported alongside the composite but do
	// not carry weight in it.
	if v, ok := scoreField(evaluations["brand"], "overall_brand_score"); ok {
		score.Brand = v
	}
	if v, ok := scoreField(evaluations["reputation"], "overall_reputation_score"); ok {
		score.Reputation = v
	}

	var weighted, totalWeight float64
	var parts []string
	for _, c := range components {
		if !c.ok {
			parts = append(parts, fmt.Sprintf("%s: unavailable", c.name))
			continue
		}
		weighted += c.weight * c.value
		totalWeight += c.weight
		parts = append(parts, fmt.Sprintf("%s: %.1f (weight %.0f%%)", c.name, c.value, c.weight*100))
	}

	if totalWeight == 0 {
		score.Final = 0
		score.Grade = "F"
		score.Breakdown = "all weighted components unavailable"
		return score
	}

	score.Final = clampScore(weighted / totalWeight)
	score.Grade = gradeFor(score.Final)
	score.Breakdown = strings.Join(parts, "; ")
	return score
}

func component(name string, weight float64, p model.Payload, field string, invert bool) scoreComponent {
	v, ok := scoreField(p, field)
	if ok && invert {
		v = 100 - v
	}
	return scoreComponent{name: name, weight: weight, value: clampScore(v), ok: ok}
}

func scoreField(p model.Payload, field string) (float64, bool) {
	if p == nil || p.IsError() {
		return 0, false
	}
	v, ok := p.Number(field)
	if !ok {
		return 0, false
	}
	return clampScore(v), true
}

func clampScore(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

func gradeFor(final float64) string {
	switch {
	case final >= 95:
		return "A+"
	case final >= 85:
		return "A"
	case final >= 80:
		return "B+"
	case final >= 70:
		return "B"
	case final >= 65:
		return "C+"
	case final >= 55:
		return "C"
	case final >= 45:
		return "D"
	default:
		return "F"
	}
}
