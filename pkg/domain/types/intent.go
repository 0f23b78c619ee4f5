package types

import "fmt"

// Intent represents the classified purpose of a user query
type Intent string

const (
	IntentPolicyTypes Intent = "POLICY_TYPES"
	IntentEligibility Intent = "ELIGIBILITY"
	IntentPremiums    Intent = "PREMIUMS"
	IntentClaims      Intent = "CLAIMS"
	IntentCoverage    Intent = "COVERAGE"
	IntentGeneral     Intent = "GENERAL"
)

// AllIntents returns all valid intents
func AllIntents() []Intent {
	return []Intent{
		IntentPolicyTypes,
		IntentEligibility,
		IntentPremiums,
		IntentClaims,
		IntentCoverage,
		IntentGeneral,
	}
}

// IsValid checks if the intent is valid
func (i Intent) IsValid() bool {
	switch i {
	case IntentPolicyTypes,
		IntentEligibility,
		IntentPremiums,
		IntentClaims,
		IntentCoverage,
		IntentGeneral:
		return true
	default:
		return false
	}
}

// String returns the string representation of the intent
func (i Intent) String() string {
	return string(i)
}

// ParseIntent parses a string into an Intent
func ParseIntent(s string) (Intent, error) {
	intent := Intent(s)
	if !intent.IsValid() {
		return "", fmt.Errorf("invalid intent: %s", s)
	}
	return intent, nil
}
