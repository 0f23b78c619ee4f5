package tool

import (
	"github.com/ensura-lab/ensura/pkg/domain/model"
	"github.com/ensura-lab/ensura/pkg/domain/types"
)

type policyComparator struct {
	cfg Config
}

func (t *policyComparator) Name() types.ToolName {
	return types.ToolPolicyComparator
}

// Triggers matches on comparison keywords only. Intent alone does not select
// the comparator since most policy type questions are not comparisons.
func (t *policyComparator) Triggers(query string, _ types.Intent) bool {
	return containsAny(query, t.cfg.Comparison.Keywords)
}

func (t *policyComparator) Invoke(query string) model.ToolInvocation {
	inv := model.ToolInvocation{Tool: t.Name()}

	names := extractPolicyTypes(query, t.cfg.Comparison.Policies)
	switch len(names) {
	case 0:
		// Nothing explicit to compare, so fall back to the two most
		// commonly contrasted types.
		names = []string{"term", "whole"}
	case 1:
		// One side named; contrast it with term, or whole if term itself
		// is the named side.
		other := "term"
		if names[0] == "term" {
			other = "whole"
		}
		names = append(names, other)
	}

	comparison := make(map[string]any, len(names))
	for _, name := range names {
		profile := t.cfg.Comparison.Policies[name]
		comparison[name] = map[string]any{
			"premiums":    profile.Premiums,
			"duration":    profile.Duration,
			"cash_value":  profile.CashValue,
			"flexibility": profile.Flexibility,
			"best_for":    profile.BestFor,
		}
	}

	inv.Result = map[string]any{
		"policy_types": names,
		"comparison":   comparison,
	}
	return inv
}
