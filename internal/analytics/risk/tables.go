package risk

import (
	"fmt"
	"strings"

	"github.com/oncostat/oncostat/internal/analytics/stats"
)

// Category is a three-level risk or complexity band.
type Category string

const (
	Low          Category = "Low"
	Intermediate Category = "Intermediate"
	High         Category = "High"
)

// Thresholds maps a score to a Category: scores below IntermediateFrom are
// Low, scores from HighFrom upwards are High.
type Thresholds struct {
	IntermediateFrom float64 `yaml:"intermediate_from" json:"intermediate_from"`
	HighFrom         float64 `yaml:"high_from" json:"high_from"`
}

func (t Thresholds) Categorize(score float64) Category {
	switch {
	case score >= t.HighFrom:
		return High
	case score >= t.IntermediateFrom:
		return Intermediate
	default:
		return Low
	}
}

// Band is one step of a points lookup. A value falls in the band when it is
// below Below, or at most AtMost. The last band of a table carries neither
// bound and catches everything above.
type Band struct {
	Below  *float64 `yaml:"below,omitempty" json:"below,omitempty"`
	AtMost *float64 `yaml:"at_most,omitempty" json:"at_most,omitempty"`
	Points int      `yaml:"points" json:"points"`
	Label  string   `yaml:"label" json:"label"`
}

func (b Band) contains(v float64) bool {
	switch {
	case b.Below != nil:
		return v < *b.Below
	case b.AtMost != nil:
		return v <= *b.AtMost
	}
	return true
}

func (b Band) bound() (float64, bool) {
	switch {
	case b.Below != nil:
		return *b.Below, true
	case b.AtMost != nil:
		return *b.AtMost, true
	}
	return 0, false
}

// Bands is an ascending points table.
type Bands []Band

// Lookup returns the first band containing v.
func (bs Bands) Lookup(v float64) Band {
	for _, b := range bs {
		if b.contains(v) {
			return b
		}
	}
	return bs[len(bs)-1]
}

// MaxPoints is the largest award in the table.
func (bs Bands) MaxPoints() int {
	m := 0
	for _, b := range bs {
		if b.Points > m {
			m = b.Points
		}
	}
	return m
}

func (bs Bands) validate(name string) error {
	if len(bs) == 0 {
		return fmt.Errorf("%s: at least one band is required", name)
	}
	var prev float64
	for i, b := range bs {
		if b.Below != nil && b.AtMost != nil {
			return fmt.Errorf("%s[%d]: below and at_most are mutually exclusive", name, i)
		}
		if b.Points < 0 {
			return fmt.Errorf("%s[%d]: points must be non-negative", name, i)
		}
		bound, ok := b.bound()
		last := i == len(bs)-1
		switch {
		case last && ok:
			return fmt.Errorf("%s: final band must be open (no below/at_most)", name)
		case !last && !ok:
			return fmt.Errorf("%s[%d]: only the final band may be open", name, i)
		case ok && i > 0 && bound <= prev:
			return fmt.Errorf("%s[%d]: bounds must be strictly ascending", name, i)
		}
		prev = bound
	}
	return nil
}

// StageRule awards points to any stage starting with one of Prefixes.
type StageRule struct {
	Prefixes []string `yaml:"prefixes" json:"prefixes"`
	Points   int      `yaml:"points" json:"points"`
	Label    string   `yaml:"label" json:"label"`
}

// StageTable is evaluated first-match; unmatched stages score 0 and are
// described by Otherwise.
type StageTable struct {
	Rules     []StageRule `yaml:"rules" json:"rules"`
	Otherwise string      `yaml:"otherwise" json:"otherwise"`
}

func (st StageTable) Lookup(s Stage) (int, string) {
	canon := s.String()
	for _, r := range st.Rules {
		for _, p := range r.Prefixes {
			if strings.HasPrefix(canon, p) {
				return r.Points, r.Label
			}
		}
	}
	return 0, st.Otherwise
}

func (st StageTable) MaxPoints() int {
	m := 0
	for _, r := range st.Rules {
		if r.Points > m {
			m = r.Points
		}
	}
	return m
}

func (st StageTable) validate(name string) error {
	for i, r := range st.Rules {
		if len(r.Prefixes) == 0 {
			return fmt.Errorf("%s.rules[%d]: at least one prefix is required", name, i)
		}
		for _, p := range r.Prefixes {
			if !strings.HasPrefix(p, "T") {
				return fmt.Errorf("%s.rules[%d]: prefix %q is not a T stage", name, i, p)
			}
		}
		if r.Points < 0 {
			return fmt.Errorf("%s.rules[%d]: points must be non-negative", name, i)
		}
	}
	return nil
}

// PatternRule matches a Gleason pattern whose grades are at most Primary and
// Secondary, or exactly equal to them when Exact is set.
type PatternRule struct {
	Primary   int    `yaml:"primary" json:"primary"`
	Secondary int    `yaml:"secondary" json:"secondary"`
	Exact     bool   `yaml:"exact,omitempty" json:"exact,omitempty"`
	Points    int    `yaml:"points" json:"points"`
	Label     string `yaml:"label" json:"label"`
}

// GleasonTable is evaluated first-match with Otherwise as the fallback.
type GleasonTable struct {
	Rules     []PatternRule `yaml:"rules" json:"rules"`
	Otherwise PatternRule   `yaml:"otherwise" json:"otherwise"`
}

func (gt GleasonTable) Lookup(primary, secondary int) PatternRule {
	for _, r := range gt.Rules {
		if r.matches(primary, secondary) {
			return r
		}
	}
	return gt.Otherwise
}

func (r PatternRule) matches(primary, secondary int) bool {
	if r.Exact {
		return primary == r.Primary && secondary == r.Secondary
	}
	return primary <= r.Primary && secondary <= r.Secondary
}

func (gt GleasonTable) MaxPoints() int {
	m := gt.Otherwise.Points
	for _, r := range gt.Rules {
		if r.Points > m {
			m = r.Points
		}
	}
	return m
}

// Outlook is the published prognosis attached to a CAPRA category.
type Outlook struct {
	FiveYearRecurrenceFree string `yaml:"five_year_recurrence_free" json:"five_year_recurrence_free"`
	TenYearMortality       string `yaml:"ten_year_mortality" json:"ten_year_prostate_cancer_mortality"`
}

type CAPRATable struct {
	Age           Bands                `yaml:"age" json:"age"`
	PSA           Bands                `yaml:"psa" json:"psa"`
	Gleason       GleasonTable         `yaml:"gleason" json:"gleason"`
	Stage         StageTable           `yaml:"stage" json:"stage"`
	PositiveCores Bands                `yaml:"percent_positive_cores" json:"percent_positive_cores"`
	Outlook       map[Category]Outlook `yaml:"outlook" json:"outlook"`
}

// MaxScore is the best attainable CAPRA total.
func (c CAPRATable) MaxScore() int {
	return c.Age.MaxPoints() + c.PSA.MaxPoints() + c.Gleason.MaxPoints() + c.Stage.MaxPoints() + c.PositiveCores.MaxPoints()
}

type RuleTable struct {
	PSA            Bands      `yaml:"psa" json:"psa"`
	Gleason        Bands      `yaml:"gleason" json:"gleason"`
	Stage          StageTable `yaml:"stage" json:"stage"`
	BaseConfidence float64    `yaml:"base_confidence" json:"base_confidence"`
	ConfidenceStep float64    `yaml:"confidence_step" json:"confidence_step"`
	MaxConfidence  float64    `yaml:"max_confidence" json:"max_confidence"`
}

type DifficultyTable struct {
	Age             Bands               `yaml:"age" json:"age"`
	BMI             Bands               `yaml:"bmi" json:"bmi"`
	ProstateVolume  Bands               `yaml:"prostate_volume" json:"prostate_volume"`
	PriorSurgery    Band                `yaml:"prior_pelvic_surgery" json:"prior_pelvic_surgery"`
	Gleason         Bands               `yaml:"gleason" json:"gleason"`
	Stage           StageTable          `yaml:"stage" json:"stage"`
	PSA             Bands               `yaml:"psa" json:"psa"`
	Recommendations map[Category]string `yaml:"recommendations" json:"recommendations"`
}

// MaxRaw is the largest unscaled total, used to map raw points onto 0-10.
func (d DifficultyTable) MaxRaw() int {
	return d.Age.MaxPoints() + d.BMI.MaxPoints() + d.ProstateVolume.MaxPoints() + d.PriorSurgery.Points +
		d.Gleason.MaxPoints() + d.Stage.MaxPoints() + d.PSA.MaxPoints()
}

// Tables holds every weight used by risk scoring.
type Tables struct {
	Categories Thresholds      `yaml:"categories" json:"categories"`
	CAPRA      CAPRATable      `yaml:"capra" json:"capra"`
	Rules      RuleTable       `yaml:"rule_based" json:"rule_based"`
	Difficulty DifficultyTable `yaml:"surgical_difficulty" json:"surgical_difficulty"`
}

var categories = []Category{Low, Intermediate, High}

// Validate checks that every table is well formed.
func (t *Tables) Validate() error {
	c := t.Categories
	if c.IntermediateFrom <= 0 || c.HighFrom <= c.IntermediateFrom || c.HighFrom > 10 {
		return fmt.Errorf("categories: need 0 < intermediate_from < high_from <= 10")
	}

	checks := []struct {
		name  string
		bands Bands
	}{
		{"capra.age", t.CAPRA.Age},
		{"capra.psa", t.CAPRA.PSA},
		{"capra.percent_positive_cores", t.CAPRA.PositiveCores},
		{"rule_based.psa", t.Rules.PSA},
		{"rule_based.gleason", t.Rules.Gleason},
		{"surgical_difficulty.age", t.Difficulty.Age},
		{"surgical_difficulty.bmi", t.Difficulty.BMI},
		{"surgical_difficulty.prostate_volume", t.Difficulty.ProstateVolume},
		{"surgical_difficulty.gleason", t.Difficulty.Gleason},
		{"surgical_difficulty.psa", t.Difficulty.PSA},
	}
	for _, ch := range checks {
		if err := ch.bands.validate(ch.name); err != nil {
			return err
		}
	}
	for name, st := range map[string]StageTable{
		"capra.stage":               t.CAPRA.Stage,
		"rule_based.stage":          t.Rules.Stage,
		"surgical_difficulty.stage": t.Difficulty.Stage,
	} {
		if err := st.validate(name); err != nil {
			return err
		}
	}

	if len(t.CAPRA.Gleason.Rules) == 0 {
		return fmt.Errorf("capra.gleason: at least one rule is required")
	}
	if t.CAPRA.MaxScore() > 10 {
		return fmt.Errorf("capra: attainable score %d exceeds 10", t.CAPRA.MaxScore())
	}
	if t.Difficulty.MaxRaw() == 0 {
		return fmt.Errorf("surgical_difficulty: no factor awards points")
	}
	for _, cat := range categories {
		if _, ok := t.CAPRA.Outlook[cat]; !ok {
			return fmt.Errorf("capra.outlook: missing %s", cat)
		}
		if t.Difficulty.Recommendations[cat] == "" {
			return fmt.Errorf("surgical_difficulty.recommendations: missing %s", cat)
		}
	}

	r := t.Rules
	if r.BaseConfidence < 0 || r.ConfidenceStep < 0 || r.MaxConfidence < r.BaseConfidence || r.MaxConfidence > 100 {
		return fmt.Errorf("rule_based: need 0 <= base_confidence <= max_confidence <= 100 and confidence_step >= 0")
	}
	return nil
}

func required(name string) error {
	return stats.InvalidParameterf("%s is required", name)
}
