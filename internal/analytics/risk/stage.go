package risk

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/oncostat/oncostat/internal/analytics/stats"
)

var stagePattern = regexp.MustCompile(`^[cC]?[tT](?:([0-4])([a-cA-C])?|([iI][sS]))$`)

// Stage is a parsed clinical T stage such as T2c. Carcinoma in situ (Tis)
// has Category 0 and Sub "is".
type Stage struct {
	Category int
	Sub      string
}

// ParseStage parses a clinical T stage ("T1c", "cT3a", "t2", "Tis").
// Whitespace is ignored.
func ParseStage(s string) (Stage, error) {
	m := stagePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Stage{}, stats.InvalidParameterf("unrecognised clinical stage %q (want T0-T4 with optional a-c, or Tis)", s)
	}
	if m[3] != "" {
		return Stage{Sub: "is"}, nil
	}
	cat, _ := strconv.Atoi(m[1])
	return Stage{Category: cat, Sub: strings.ToLower(m[2])}, nil
}

func (s Stage) String() string {
	if s.Sub == "is" {
		return "Tis"
	}
	return "T" + strconv.Itoa(s.Category) + s.Sub
}

// Ordinal is the numeric T category used as a clustering feature.
func (s Stage) Ordinal() float64 {
	return float64(s.Category)
}
