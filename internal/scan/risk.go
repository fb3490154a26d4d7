package scan

import (
	"strings"

	"github.com/vulnsight/vulnsight/api/schemas"
)

// Aggregate reduces a normalized finding set to a single risk score and
// qualitative level. Pure and total: recomputing over the same findings
// always yields the same pair, and an unparseable severity simply does not
// count.
func Aggregate(findings []schemas.NormalizedFinding) (int, schemas.RiskLevel) {
	highCount := 0
	for _, f := range findings {
		switch strings.ToLower(f.Severity) {
		case "critical", "high":
			highCount++
		}
	}

	score := highCount * 10
	if score > 100 {
		score = 100
	}

	var level schemas.RiskLevel
	switch {
	case highCount >= 3:
		level = schemas.RiskHigh
	case highCount == 0:
		level = schemas.RiskLow
	default:
		level = schemas.RiskMedium
	}
	return score, level
}
