package tool

// Config carries the rating tables, validation ranges and trigger keywords
// for the deterministic tool set. Zero values are filled from defaults so a
// partial TOML override only changes what it names.
type Config struct {
	Premium     PremiumConfig     `toml:"premium"`
	Eligibility EligibilityConfig `toml:"eligibility"`
	Comparison  ComparisonConfig  `toml:"comparison"`
}

// PremiumConfig is the rating table for the premium calculator.
type PremiumConfig struct {
	Keywords []string `toml:"keywords"`

	// BaseRatePer1000 is the monthly base rate per $1000 of coverage.
	BaseRatePer1000 float64 `toml:"base_rate_per_1000"`

	SmokerFactor float64             `toml:"smoker_factor"`
	AgeBands     []AgeBandFactor     `toml:"age_bands"`
	TermFactors  map[string]float64  `toml:"term_factors"`
	Defaults     PremiumDefaults     `toml:"defaults"`
	Limits       PremiumLimits       `toml:"limits"`
}

type AgeBandFactor struct {
	MinAge int     `toml:"min_age"`
	MaxAge int     `toml:"max_age"`
	Factor float64 `toml:"factor"`
}

type PremiumDefaults struct {
	Age       int     `toml:"age"`
	Coverage  float64 `toml:"coverage"`
	TermYears int     `toml:"term_years"`
}

type PremiumLimits struct {
	MinAge      int     `toml:"min_age"`
	MaxAge      int     `toml:"max_age"`
	MinCoverage float64 `toml:"min_coverage"`
	MaxCoverage float64 `toml:"max_coverage"`
}

// EligibilityConfig drives the eligibility checker's rule evaluation.
type EligibilityConfig struct {
	Keywords []string `toml:"keywords"`

	MinAge int `toml:"min_age"`
	MaxAge int `toml:"max_age"`

	// HighRiskConditions add two risk points each; ModerateRiskConditions
	// add one. Smoking adds one. Three or more points means challenging.
	HighRiskConditions     []string `toml:"high_risk_conditions"`
	ModerateRiskConditions []string `toml:"moderate_risk_conditions"`
}

// ComparisonConfig holds the static policy comparison matrix.
type ComparisonConfig struct {
	Keywords []string `toml:"keywords"`

	Policies map[string]PolicyProfile `toml:"policies"`
}

type PolicyProfile struct {
	Premiums    string `toml:"premiums"`
	Duration    string `toml:"duration"`
	CashValue   string `toml:"cash_value"`
	Flexibility string `toml:"flexibility"`
	BestFor     string `toml:"best_for"`
}

// DefaultConfig returns the built-in rating tables and keyword lists.
func DefaultConfig() Config {
	return Config{
		Premium: PremiumConfig{
			Keywords:        []string{"calculate", "estimate", "cost", "price", "premium", "how much"},
			BaseRatePer1000: 0.12,
			SmokerFactor:    2.0,
			AgeBands: []AgeBandFactor{
				{MinAge: 18, MaxAge: 29, Factor: 0.9},
				{MinAge: 30, MaxAge: 39, Factor: 1.0},
				{MinAge: 40, MaxAge: 49, Factor: 1.5},
				{MinAge: 50, MaxAge: 59, Factor: 2.2},
				{MinAge: 60, MaxAge: 75, Factor: 3.5},
			},
			TermFactors: map[string]float64{
				"10": 0.95,
				"15": 1.0,
				"20": 1.1,
				"25": 1.2,
				"30": 1.3,
			},
			Defaults: PremiumDefaults{
				Age:       35,
				Coverage:  500000,
				TermYears: 20,
			},
			Limits: PremiumLimits{
				MinAge:      18,
				MaxAge:      75,
				MinCoverage: 25000,
				MaxCoverage: 10000000,
			},
		},
		Eligibility: EligibilityConfig{
			Keywords: []string{"eligible", "qualify", "can i get", "approved", "health"},
			MinAge:   18,
			MaxAge:   75,
			HighRiskConditions: []string{
				"cancer", "heart disease", "stroke", "kidney disease",
			},
			ModerateRiskConditions: []string{
				"diabetes", "high blood pressure", "hypertension", "asthma", "high cholesterol",
			},
		},
		Comparison: ComparisonConfig{
			Keywords: []string{"compare", "difference", "versus", "vs", "better"},
			Policies: map[string]PolicyProfile{
				"term": {
					Premiums:    "lowest, fixed for the term",
					Duration:    "10 to 30 years",
					CashValue:   "none",
					Flexibility: "low, coverage ends at term expiry",
					BestFor:     "income replacement during working years",
				},
				"whole": {
					Premiums:    "high, level for life",
					Duration:    "lifetime",
					CashValue:   "guaranteed, grows at a fixed rate",
					Flexibility: "low, fixed premium and benefit",
					BestFor:     "permanent coverage with forced savings",
				},
				"universal": {
					Premiums:    "moderate to high, adjustable",
					Duration:    "lifetime while funded",
					CashValue:   "interest bearing, rate may vary",
					Flexibility: "high, premiums and benefit adjustable",
					BestFor:     "permanent coverage with payment flexibility",
				},
				"variable": {
					Premiums:    "high, adjustable",
					Duration:    "lifetime while funded",
					CashValue:   "invested in subaccounts, market risk",
					Flexibility: "high, investment choices included",
					BestFor:     "growth potential with insurance protection",
				},
			},
		},
	}
}
