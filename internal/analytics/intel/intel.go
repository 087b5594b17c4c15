// Package intel composes PSA kinetics, risk scoring and recovery prediction
// into a single Surgical Intelligence report.
package intel

import (
	"fmt"

	"github.com/oncostat/oncostat/internal/analytics/psa"
	"github.com/oncostat/oncostat/internal/analytics/recovery"
	"github.com/oncostat/oncostat/internal/analytics/risk"
	"github.com/oncostat/oncostat/internal/analytics/stats"
	"github.com/oncostat/oncostat/internal/clinicaltables"
)

// Input is the full pre-operative record. PSA defaults to the most recent
// value of PSAHistory when omitted.
type Input struct {
	Age                  *float64    `json:"age"`
	PSA                  *float64    `json:"psa,omitempty"`
	GleasonPrimary       *int        `json:"gleason_primary,omitempty"`
	GleasonSecondary     *int        `json:"gleason_secondary,omitempty"`
	GleasonScore         *int        `json:"gleason_score,omitempty"`
	ClinicalStage        string      `json:"clinical_stage"`
	PercentPositiveCores *float64    `json:"percent_positive_cores,omitempty"`
	BMI                  *float64    `json:"bmi,omitempty"`
	ProstateVolume       *float64    `json:"prostate_volume,omitempty"`
	PriorPelvicSurgery   *bool       `json:"prior_pelvic_surgery,omitempty"`
	NerveSparing         *bool       `json:"nerve_sparing"`
	Comorbidities        []string    `json:"comorbidities,omitempty"`
	PSAHistory           *psa.Series `json:"psa_history,omitempty"`
}

// Section carries either a component result or the reason it could not be
// computed.
type Section[T any] struct {
	Result *T             `json:"result,omitempty"`
	Error  *stats.Problem `json:"error,omitempty"`
}

func section[T any](v *T, err error) Section[T] {
	if err != nil {
		return Section[T]{Error: problem(err)}
	}
	return Section[T]{Result: v}
}

func problem(err error) *stats.Problem {
	if p := stats.AsProblem(err); p != nil {
		return p
	}
	return &stats.Problem{Error: stats.KindInvalidParameter, Message: err.Error()}
}

type Report struct {
	PSAKinetics        Section[psa.Kinetics]          `json:"psa_kinetics"`
	CAPRA              Section[risk.CAPRAResult]      `json:"capra"`
	SurgicalDifficulty Section[risk.DifficultyResult] `json:"surgical_difficulty"`
	Recovery           Section[recovery.Prediction]   `json:"recovery"`
	KeyFindings        []string                       `json:"key_findings"`
}

// Build runs every component against in. Sections fail independently: a
// component error is recorded in its section and the rest of the report is
// still produced.
func Build(t *clinicaltables.Tables, in Input) *Report {
	current := in.PSA
	if current == nil && in.PSAHistory != nil && len(in.PSAHistory.Values) > 0 {
		last := in.PSAHistory.Values[len(in.PSAHistory.Values)-1]
		current = &last
	}

	r := &Report{}
	if in.PSAHistory == nil {
		r.PSAKinetics = Section[psa.Kinetics]{Error: problem(stats.Insufficientf("no PSA history supplied"))}
	} else {
		r.PSAKinetics = section(psa.Analyze(*in.PSAHistory))
	}

	r.CAPRA = section(risk.CAPRA(&t.Risk, risk.CAPRAInput{
		Age:                  in.Age,
		PSA:                  current,
		GleasonPrimary:       in.GleasonPrimary,
		GleasonSecondary:     in.GleasonSecondary,
		GleasonScore:         in.GleasonScore,
		ClinicalStage:        in.ClinicalStage,
		PercentPositiveCores: in.PercentPositiveCores,
	}))

	gleason := in.GleasonScore
	if gleason == nil && in.GleasonPrimary != nil && in.GleasonSecondary != nil {
		sum := *in.GleasonPrimary + *in.GleasonSecondary
		gleason = &sum
	}
	r.SurgicalDifficulty = section(risk.SurgicalDifficulty(&t.Risk, risk.DifficultyInput{
		Age:                in.Age,
		BMI:                in.BMI,
		ProstateVolume:     in.ProstateVolume,
		PriorPelvicSurgery: in.PriorPelvicSurgery,
		GleasonScore:       gleason,
		ClinicalStage:      in.ClinicalStage,
		PSA:                current,
	}))

	r.Recovery = section(recovery.Predict(&t.Recovery, recovery.Input{
		Age:           in.Age,
		NerveSparing:  in.NerveSparing,
		BMI:           in.BMI,
		Comorbidities: in.Comorbidities,
	}))

	r.KeyFindings = findings(r)
	return r
}

func findings(r *Report) []string {
	out := []string{}
	if c := r.CAPRA.Result; c != nil {
		out = append(out, fmt.Sprintf("CAPRA score %g/%g (%s risk)", c.Score, c.MaxScore, c.Category))
	}
	if k := r.PSAKinetics.Result; k != nil {
		if v := k.Velocity; v != nil && v.Category != psa.VelocityStable {
			out = append(out, fmt.Sprintf("PSA velocity %.2f ng/mL/year (%s)", v.Velocity, v.Category))
		}
		if d := k.DoublingTime; d != nil && d.RiskLevel != psa.RiskLow {
			out = append(out, fmt.Sprintf("PSA doubling time %.1f months (%s risk)", d.Months, d.RiskLevel))
		}
	}
	if d := r.SurgicalDifficulty.Result; d != nil {
		out = append(out, fmt.Sprintf("Surgical difficulty %.1f/10 (%s): %s", d.Score, d.Category, d.Recommendation))
	}
	if p := r.Recovery.Result; p != nil {
		out = append(out, fmt.Sprintf("Expected continence recovery at %.0f weeks", p.Continence.PredictedValue))
		if !p.PotencyApplicable {
			out = append(out, "Potency recovery not predicted: non nerve-sparing approach")
		}
	}
	return out
}
