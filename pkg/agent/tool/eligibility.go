package tool

import (
	"fmt"

	"github.com/ensura-lab/ensura/pkg/domain/model"
	"github.com/ensura-lab/ensura/pkg/domain/types"
)

type eligibilityChecker struct {
	cfg Config
}

func (t *eligibilityChecker) Name() types.ToolName {
	return types.ToolEligibilityChecker
}

func (t *eligibilityChecker) Triggers(query string, intent types.Intent) bool {
	return containsAny(query, t.cfg.Eligibility.Keywords) || intent == types.IntentEligibility
}

func (t *eligibilityChecker) Invoke(query string) model.ToolInvocation {
	inv := model.ToolInvocation{Tool: t.Name()}
	cfg := t.cfg.Eligibility

	age, hasAge := extractAge(query)
	if hasAge && (age < cfg.MinAge || age > cfg.MaxAge) {
		inv.FailureNote = fmt.Sprintf("applicants must be between %d and %d years old", cfg.MinAge, cfg.MaxAge)
		return inv
	}

	smoker := mentionsSmoker(query)
	highRisk := extractConditions(query, cfg.HighRiskConditions)
	moderateRisk := extractConditions(query, cfg.ModerateRiskConditions)

	risk := 2*len(highRisk) + len(moderateRisk)
	if smoker {
		risk++
	}

	rating := "good"
	likelyApproved := true
	switch {
	case risk >= 3:
		rating = "challenging"
		likelyApproved = false
	case risk >= 1:
		rating = "moderate"
	}

	var issues []string
	issues = append(issues, highRisk...)
	issues = append(issues, moderateRisk...)
	if smoker {
		issues = append(issues, "tobacco use")
	}

	result := map[string]any{
		"eligibility":     rating,
		"likely_approved": likelyApproved,
		"risk_factors":    issues,
		"recommendation":  recommendationFor(rating),
	}
	if hasAge {
		result["age"] = age
	}

	inv.Result = result
	return inv
}

func recommendationFor(rating string) string {
	switch rating {
	case "challenging":
		return "a medical exam will likely be required; consider guaranteed issue or simplified issue products"
	case "moderate":
		return "standard underwriting applies; rates may be adjusted for the noted factors"
	default:
		return "you appear to qualify for standard or preferred rates"
	}
}
