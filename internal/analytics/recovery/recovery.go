// Package recovery predicts post-prostatectomy recovery milestones.
package recovery

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/oncostat/oncostat/internal/analytics/stats"
)

// Modifier is an additive offset to the milestone estimates. In a threshold
// list it applies to values at or above From.
type Modifier struct {
	From            float64 `yaml:"from,omitempty" json:"from,omitempty"`
	Label           string  `yaml:"label" json:"label"`
	ContinenceWeeks float64 `yaml:"continence_weeks" json:"continence_weeks"`
	PotencyMonths   float64 `yaml:"potency_months" json:"potency_months"`
}

// Thresholds is ordered by descending From; the first match applies.
type Thresholds []Modifier

func (ts Thresholds) match(v float64) (Modifier, bool) {
	for _, m := range ts {
		if v >= m.From {
			return m, true
		}
	}
	return Modifier{}, false
}

// Table holds the base timeline and every adjustment.
type Table struct {
	ContinenceBaseWeeks float64             `yaml:"continence_base_weeks" json:"continence_base_weeks"`
	PotencyBaseMonths   float64             `yaml:"potency_base_months" json:"potency_base_months"`
	NadirWeeks          float64             `yaml:"psa_nadir_weeks" json:"psa_nadir_weeks"`
	NadirTarget         float64             `yaml:"psa_nadir_target" json:"psa_nadir_target"`
	Age                 Thresholds          `yaml:"age" json:"age"`
	BMI                 Thresholds          `yaml:"bmi" json:"bmi"`
	Comorbidities       map[string]Modifier `yaml:"comorbidities" json:"comorbidities"`
	CIWidth             float64             `yaml:"ci_relative_width" json:"ci_relative_width"`
}

// Validate checks the table for usable values.
func (t *Table) Validate() error {
	if t.ContinenceBaseWeeks <= 0 || t.PotencyBaseMonths <= 0 || t.NadirWeeks <= 0 {
		return fmt.Errorf("recovery: base timelines must be positive")
	}
	if t.NadirTarget <= 0 {
		return fmt.Errorf("recovery: psa_nadir_target must be positive")
	}
	if t.CIWidth <= 0 || t.CIWidth > 1 {
		return fmt.Errorf("recovery: ci_relative_width must be in (0, 1]")
	}
	for name, ts := range map[string]Thresholds{"age": t.Age, "bmi": t.BMI} {
		for i := 1; i < len(ts); i++ {
			if ts[i].From >= ts[i-1].From {
				return fmt.Errorf("recovery.%s: thresholds must be in descending order of from", name)
			}
		}
	}
	for name := range t.Comorbidities {
		if name != normalize(name) {
			return fmt.Errorf("recovery.comorbidities: key %q must be lower_snake_case", name)
		}
	}
	return nil
}

// Input is the patient record for a recovery prediction.
type Input struct {
	Age           *float64 `json:"age"`
	NerveSparing  *bool    `json:"nerve_sparing"`
	BMI           *float64 `json:"bmi,omitempty"`
	Comorbidities []string `json:"comorbidities,omitempty"`
}

type Interval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Estimate is a point prediction with a symmetric relative interval.
type Estimate struct {
	PredictedValue     float64  `json:"predicted_value"`
	ConfidenceInterval Interval `json:"confidence_interval"`
	Unit               string   `json:"unit"`
	Interpretation     string   `json:"interpretation"`
}

type NadirEstimate struct {
	Estimate
	TargetValue float64 `json:"target_value"`
	TargetUnit  string  `json:"target_unit"`
}

type Prediction struct {
	Continence        Estimate      `json:"continence"`
	Potency           *Estimate     `json:"potency"`
	PotencyApplicable bool          `json:"potency_applicable"`
	PotencyNote       string        `json:"potency_note,omitempty"`
	PSANadir          NadirEstimate `json:"psa_nadir"`
	Adjustments       []string      `json:"adjustments"`
}

// Predict adjusts the base milestones for age, BMI and comorbidities. Potency
// is only predicted after a nerve-sparing procedure; otherwise Potency is nil
// and PotencyApplicable is false.
func Predict(t *Table, in Input) (*Prediction, error) {
	if in.Age == nil {
		return nil, stats.InvalidParameterf("age is required")
	}
	if in.NerveSparing == nil {
		return nil, stats.InvalidParameterf("nerve_sparing is required")
	}
	if math.IsNaN(*in.Age) || *in.Age < 0 {
		return nil, stats.InvalidParameterf("age must be a non-negative number")
	}

	continence := t.ContinenceBaseWeeks
	potency := t.PotencyBaseMonths
	adjustments := []string{}
	apply := func(m Modifier) {
		continence += m.ContinenceWeeks
		potency += m.PotencyMonths
		adjustments = append(adjustments, m.Label)
	}

	if m, ok := t.Age.match(*in.Age); ok {
		apply(m)
	}
	if in.BMI != nil {
		if m, ok := t.BMI.match(*in.BMI); ok {
			apply(m)
		}
	}

	seen := make(map[string]bool, len(in.Comorbidities))
	names := make([]string, 0, len(in.Comorbidities))
	for _, c := range in.Comorbidities {
		key := normalize(c)
		if _, ok := t.Comorbidities[key]; !ok {
			return nil, stats.InvalidParameterf("unknown comorbidity %q (known: %s)", c, strings.Join(t.known(), ", "))
		}
		if !seen[key] {
			seen[key] = true
			names = append(names, key)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		apply(t.Comorbidities[name])
	}

	p := &Prediction{
		Continence:  t.estimate(continence, "weeks"),
		Adjustments: adjustments,
		PSANadir: NadirEstimate{
			Estimate:    t.estimate(t.NadirWeeks, "weeks"),
			TargetValue: t.NadirTarget,
			TargetUnit:  "ng/mL",
		},
	}
	ci := p.Continence.ConfidenceInterval
	p.Continence.Interpretation = fmt.Sprintf("Expected pad-free continence: %.0f weeks (CI %.1f-%.1f weeks)", continence, ci.Low, ci.High)
	p.PSANadir.Interpretation = fmt.Sprintf("Undetectable PSA (< %g ng/mL) expected by %.0f weeks post-op", t.NadirTarget, t.NadirWeeks)

	if *in.NerveSparing {
		e := t.estimate(potency, "months")
		e.Interpretation = fmt.Sprintf("Expected return of erectile function: %.0f months (CI %.1f-%.1f months)",
			potency, e.ConfidenceInterval.Low, e.ConfidenceInterval.High)
		p.Potency = &e
		p.PotencyApplicable = true
	} else {
		p.PotencyNote = "Not applicable: non nerve-sparing approach"
	}
	return p, nil
}

func (t *Table) estimate(v float64, unit string) Estimate {
	return Estimate{
		PredictedValue: v,
		ConfidenceInterval: Interval{
			Low:  v * (1 - t.CIWidth),
			High: v * (1 + t.CIWidth),
		},
		Unit: unit,
	}
}

func (t *Table) known() []string {
	names := make([]string, 0, len(t.Comorbidities))
	for k := range t.Comorbidities {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}
