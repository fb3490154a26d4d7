package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vulnsight/vulnsight/api/schemas"
)

func findingsWithSeverities(severities ...string) []schemas.NormalizedFinding {
	out := make([]schemas.NormalizedFinding, len(severities))
	for i, s := range severities {
		out[i] = schemas.NormalizedFinding{ID: "p", Severity: s}
	}
	return out
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name       string
		severities []string
		wantScore  int
		wantLevel  schemas.RiskLevel
	}{
		{"no findings", nil, 0, schemas.RiskLow},
		{"only low and medium", []string{"LOW", "MEDIUM", "Unknown"}, 0, schemas.RiskLow},
		{"one high", []string{"HIGH", "LOW"}, 10, schemas.RiskMedium},
		{"two high", []string{"HIGH", "HIGH"}, 20, schemas.RiskMedium},
		{"three high crosses the level threshold", []string{"HIGH", "HIGH", "HIGH"}, 30, schemas.RiskHigh},
		{"critical counts like high", []string{"Critical", "HIGH"}, 20, schemas.RiskMedium},
		{"mixed case severities", []string{"high", "High", "CRITICAL"}, 30, schemas.RiskHigh},
		{"score is capped at 100", []string{
			"HIGH", "HIGH", "HIGH", "HIGH", "HIGH", "HIGH",
			"HIGH", "HIGH", "HIGH", "HIGH", "HIGH", "HIGH",
		}, 100, schemas.RiskHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, level := Aggregate(findingsWithSeverities(tt.severities...))
			assert.Equal(t, tt.wantScore, score)
			assert.Equal(t, tt.wantLevel, level)
		})
	}
}

func TestAggregateDeterminism(t *testing.T) {
	findings := findingsWithSeverities("HIGH", "MEDIUM", "Critical", "LOW")
	score1, level1 := Aggregate(findings)
	score2, level2 := Aggregate(findings)

	assert.Equal(t, score1, score2)
	assert.Equal(t, level1, level2)
}
