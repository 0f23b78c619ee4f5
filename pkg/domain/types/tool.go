package types

import "fmt"

// ToolName identifies a deterministic calculation tool
type ToolName string

const (
	ToolPremiumCalculator  ToolName = "premium_calculator"
	ToolEligibilityChecker ToolName = "eligibility_checker"
	ToolPolicyComparator   ToolName = "policy_comparator"
)

// AllToolNames returns all valid tool names
func AllToolNames() []ToolName {
	return []ToolName{
		ToolPremiumCalculator,
		ToolEligibilityChecker,
		ToolPolicyComparator,
	}
}

// IsValid checks if the tool name is valid
func (t ToolName) IsValid() bool {
	switch t {
	case ToolPremiumCalculator,
		ToolEligibilityChecker,
		ToolPolicyComparator:
		return true
	default:
		return false
	}
}

// String returns the string representation of the tool name
func (t ToolName) String() string {
	return string(t)
}

// ParseToolName parses a string into a ToolName
func ParseToolName(s string) (ToolName, error) {
	name := ToolName(s)
	if !name.IsValid() {
		return "", fmt.Errorf("invalid tool name: %s", s)
	}
	return name, nil
}
