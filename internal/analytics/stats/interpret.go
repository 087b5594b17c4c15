package stats

import (
	"fmt"
	"math"
	"strings"
)

// InterpretPValue renders a p-value as a significance band.
func InterpretPValue(p float64) string {
	switch {
	case p < 0.001:
		return "Highly significant (p < 0.001)"
	case p < 0.01:
		return "Very significant (p < 0.01)"
	case p < Alpha:
		return "Significant (p < 0.05)"
	default:
		return "Not significant (p >= 0.05)"
	}
}

// CorrelationStrength names the magnitude band of a correlation coefficient.
func CorrelationStrength(r float64) string {
	a := math.Abs(r)
	switch {
	case a < 0.1:
		return "negligible"
	case a < 0.3:
		return "weak"
	case a < 0.5:
		return "moderate"
	case a < 0.7:
		return "strong"
	default:
		return "very strong"
	}
}

// InterpretCorrelation describes strength, direction and significance.
func InterpretCorrelation(r, p float64) string {
	strength := CorrelationStrength(r)
	direction := "negative"
	if r > 0 {
		direction = "positive"
	}
	significance := "not significant"
	if p < Alpha {
		significance = "significant"
	}
	return fmt.Sprintf("%s%s %s correlation (%s)", strings.ToUpper(strength[:1]), strength[1:], direction, significance)
}
