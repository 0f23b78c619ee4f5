package tool

import (
	"fmt"
	"math"
	"strconv"

	"github.com/ensura-lab/ensura/pkg/domain/model"
	"github.com/ensura-lab/ensura/pkg/domain/types"
)

type premiumCalculator struct {
	cfg Config
}

type premiumInput struct {
	Age       int
	Coverage  float64
	TermYears int
	Smoker    bool
}

func (t *premiumCalculator) Name() types.ToolName {
	return types.ToolPremiumCalculator
}

func (t *premiumCalculator) Triggers(query string, intent types.Intent) bool {
	return containsAny(query, t.cfg.Premium.Keywords) || intent == types.IntentPremiums
}

func (t *premiumCalculator) Invoke(query string) model.ToolInvocation {
	inv := model.ToolInvocation{Tool: t.Name()}

	in, note := t.parse(query)
	if note != "" {
		inv.FailureNote = note
		return inv
	}

	inv.Result = t.compute(in)
	return inv
}

// parse fills missing fields from the configured defaults and rejects values
// outside the rating table's ranges with a clarification note.
func (t *premiumCalculator) parse(query string) (premiumInput, string) {
	cfg := t.cfg.Premium

	in := premiumInput{
		Age:       cfg.Defaults.Age,
		Coverage:  cfg.Defaults.Coverage,
		TermYears: cfg.Defaults.TermYears,
		Smoker:    mentionsSmoker(query),
	}
	if age, ok := extractAge(query); ok {
		in.Age = age
	}
	if cov, ok := extractCoverage(query); ok {
		in.Coverage = cov
	}
	if term, ok := extractTermYears(query); ok {
		in.TermYears = term
	}

	if in.Age < cfg.Limits.MinAge || in.Age > cfg.Limits.MaxAge {
		return in, fmt.Sprintf("age must be between %d and %d to calculate a premium", cfg.Limits.MinAge, cfg.Limits.MaxAge)
	}
	if in.Coverage < cfg.Limits.MinCoverage || in.Coverage > cfg.Limits.MaxCoverage {
		return in, fmt.Sprintf("coverage must be between $%.0f and $%.0f", cfg.Limits.MinCoverage, cfg.Limits.MaxCoverage)
	}
	return in, ""
}

func (t *premiumCalculator) compute(in premiumInput) map[string]any {
	cfg := t.cfg.Premium

	ageFactor := 1.0
	for _, band := range cfg.AgeBands {
		if in.Age >= band.MinAge && in.Age <= band.MaxAge {
			ageFactor = band.Factor
			break
		}
	}

	termFactor := nearestTermFactor(cfg.TermFactors, in.TermYears)

	monthly := in.Coverage / 1000 * cfg.BaseRatePer1000 * ageFactor * termFactor
	if in.Smoker {
		monthly *= cfg.SmokerFactor
	}
	monthly = math.Round(monthly*100) / 100

	return map[string]any{
		"age":             in.Age,
		"coverage":        in.Coverage,
		"term_years":      in.TermYears,
		"smoker":          in.Smoker,
		"monthly_premium": monthly,
		"annual_premium":  math.Round(monthly*12*100) / 100,
		"total_term_cost": math.Round(monthly*12*float64(in.TermYears)*100) / 100,
	}
}

// nearestTermFactor picks the factor for the closest configured term length.
func nearestTermFactor(factors map[string]float64, term int) float64 {
	best, bestDist := 1.0, math.MaxInt
	for key, factor := range factors {
		years, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		dist := years - term
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist || (dist == bestDist && factor < best) {
			best, bestDist = factor, dist
		}
	}
	return best
}
