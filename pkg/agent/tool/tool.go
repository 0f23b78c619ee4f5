package tool

import (
	"strings"

	"github.com/ensura-lab/ensura/pkg/domain/model"
	"github.com/ensura-lab/ensura/pkg/domain/types"
)

// Tool is one deterministic calculation tool. The set of tools is closed:
// adding one means adding a type implementing this interface plus its
// trigger predicate and input schema.
type Tool interface {
	Name() types.ToolName

	// Triggers reports whether this tool applies to the turn. Predicates are
	// an OR of keyword presence in the query and an intent match, evaluated
	// uniformly across the tool set.
	Triggers(query string, intent types.Intent) bool

	// Invoke parses the tool's input from the query, validates it against
	// the declared ranges and executes the computation. Validation failures
	// produce an invocation carrying a clarification note, not an error:
	// the turn continues.
	Invoke(query string) model.ToolInvocation
}

// New builds the full closed tool set from the given configuration
func New(cfg Config) []Tool {
	return []Tool{
		&premiumCalculator{cfg: cfg},
		&eligibilityChecker{cfg: cfg},
		&policyComparator{cfg: cfg},
	}
}

// Route returns the tools whose trigger conditions match the turn. Multiple
// tools may be selected; a query matching no condition selects none.
func Route(tools []Tool, query string, intent types.Intent) []Tool {
	q := strings.ToLower(query)

	var selected []Tool
	for _, t := range tools {
		if t.Triggers(q, intent) {
			selected = append(selected, t)
		}
	}
	return selected
}

func containsAny(query string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(query, kw) {
			return true
		}
	}
	return false
}
