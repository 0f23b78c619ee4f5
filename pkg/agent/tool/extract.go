package tool

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	agePattern      = regexp.MustCompile(`(?i)\b(\d{1,3})[\s-]*(?:years?[\s-]*old|yo\b|year[\s-]*old)`)
	agePlainPattern = regexp.MustCompile(`(?i)\bage\D{0,4}(\d{1,3})`)
	termPattern     = regexp.MustCompile(`(?i)\b(\d{1,2})[\s-]*year(?:s)?[\s-]*(?:term|policy|plan)`)
	amountPattern   = regexp.MustCompile(`(?i)\$?\s*([\d,]+(?:\.\d+)?)\s*(k|thousand|m|million)?\b`)
)

// extractAge finds an age in the query, preferring explicit forms such as
// "35 years old" or "age 35" over bare numbers.
func extractAge(query string) (int, bool) {
	for _, re := range []*regexp.Regexp{agePattern, agePlainPattern} {
		if m := re.FindStringSubmatch(query); m != nil {
			if v, err := strconv.Atoi(m[1]); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}

// extractCoverage finds a coverage amount. Suffixes k and m scale the value,
// so "$500k" and "500,000" both read as 500000. Small bare numbers are
// ignored since those are ages or terms, not coverage.
func extractCoverage(query string) (float64, bool) {
	for _, m := range amountPattern.FindAllStringSubmatch(query, -1) {
		raw := strings.ReplaceAll(m[1], ",", "")
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		switch strings.ToLower(m[2]) {
		case "k", "thousand":
			v *= 1000
		case "m", "million":
			v *= 1000000
		}
		if v >= 1000 {
			return v, true
		}
	}
	return 0, false
}

// extractTermYears finds a policy term such as "20-year term".
func extractTermYears(query string) (int, bool) {
	if m := termPattern.FindStringSubmatch(query); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			return v, true
		}
	}
	return 0, false
}

func mentionsSmoker(query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(q, "non-smoker") || strings.Contains(q, "nonsmoker") || strings.Contains(q, "non smoker") {
		return false
	}
	return strings.Contains(q, "smoker") || strings.Contains(q, "smoking") || strings.Contains(q, "i smoke")
}

// extractPolicyTypes returns the policy type names mentioned in the query,
// in mention order, deduplicated.
func extractPolicyTypes(query string, known map[string]PolicyProfile) []string {
	q := strings.ToLower(query)

	type hit struct {
		name string
		pos  int
	}
	var hits []hit
	for name := range known {
		if pos := strings.Index(q, name); pos >= 0 {
			hits = append(hits, hit{name: name, pos: pos})
		}
	}
	for i := range hits {
		for j := i + 1; j < len(hits); j++ {
			if hits[j].pos < hits[i].pos {
				hits[i], hits[j] = hits[j], hits[i]
			}
		}
	}

	names := make([]string, 0, len(hits))
	for _, h := range hits {
		names = append(names, h.name)
	}
	return names
}

// extractConditions returns the health conditions from the configured lists
// that the query mentions.
func extractConditions(query string, lists ...[]string) []string {
	q := strings.ToLower(query)

	var found []string
	for _, list := range lists {
		for _, cond := range list {
			if strings.Contains(q, cond) {
				found = append(found, cond)
			}
		}
	}
	return found
}
