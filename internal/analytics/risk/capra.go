package risk

import (
	"fmt"
	"math"

	"github.com/oncostat/oncostat/internal/analytics/stats"
)

// CAPRAInput is the clinical record scored by CAPRA. The Gleason pattern is
// given either as primary and secondary grades or as a total score.
type CAPRAInput struct {
	Age                  *float64 `json:"age"`
	PSA                  *float64 `json:"psa"`
	GleasonPrimary       *int     `json:"gleason_primary,omitempty"`
	GleasonSecondary     *int     `json:"gleason_secondary,omitempty"`
	GleasonScore         *int     `json:"gleason_score,omitempty"`
	ClinicalStage        string   `json:"clinical_stage"`
	PercentPositiveCores *float64 `json:"percent_positive_cores,omitempty"`
}

// ScoreResult is a points-based score with its explanation.
type ScoreResult struct {
	Score               float64  `json:"score"`
	MaxScore            float64  `json:"max_score"`
	Category            Category `json:"category"`
	ContributingFactors []string `json:"contributing_factors"`
	Components          []string `json:"components"`
}

func (r *ScoreResult) add(points int, label string) {
	line := fmt.Sprintf("%s: +%d", label, points)
	r.Components = append(r.Components, line)
	if points != 0 {
		r.ContributingFactors = append(r.ContributingFactors, line)
	}
	r.Score += float64(points)
}

type CAPRAResult struct {
	ScoreResult
	GleasonPattern string   `json:"gleason_pattern"`
	Outlook        Outlook  `json:"outlook"`
	Unavailable    []string `json:"unavailable_factors,omitempty"`
}

// Gleason resolves the primary and secondary grades of in. A bare total is
// mapped to its most common pattern: 6 or less to 3+3, 7 to 3+4, 8 or more
// to 4+4.
func (in CAPRAInput) Gleason() (primary, secondary int, err error) {
	switch {
	case in.GleasonPrimary != nil && in.GleasonSecondary != nil:
		primary, secondary = *in.GleasonPrimary, *in.GleasonSecondary
		if primary < 1 || primary > 5 || secondary < 1 || secondary > 5 {
			return 0, 0, stats.InvalidParameterf("gleason grades must be between 1 and 5 (got %d+%d)", primary, secondary)
		}
		if in.GleasonScore != nil && *in.GleasonScore != primary+secondary {
			return 0, 0, stats.InvalidParameterf("gleason_score %d disagrees with pattern %d+%d", *in.GleasonScore, primary, secondary)
		}
		return primary, secondary, nil
	case in.GleasonPrimary != nil || in.GleasonSecondary != nil:
		return 0, 0, stats.InvalidParameterf("gleason_primary and gleason_secondary must be given together")
	case in.GleasonScore != nil:
		return PatternFromScore(*in.GleasonScore)
	}
	return 0, 0, required("gleason pattern (gleason_primary/gleason_secondary or gleason_score)")
}

// PatternFromScore maps a Gleason total onto a representative pattern.
func PatternFromScore(score int) (primary, secondary int, err error) {
	switch {
	case score < 2 || score > 10:
		return 0, 0, stats.InvalidParameterf("gleason_score must be between 2 and 10 (got %d)", score)
	case score <= 6:
		return 3, 3, nil
	case score == 7:
		return 3, 4, nil
	default:
		return 4, 4, nil
	}
}

// CAPRA computes the UCSF-CAPRA score. A missing percent-positive-cores
// value scores 0 and is listed as unavailable.
func CAPRA(t *Tables, in CAPRAInput) (*CAPRAResult, error) {
	if in.Age == nil {
		return nil, required("age")
	}
	if in.PSA == nil {
		return nil, required("psa")
	}
	if in.ClinicalStage == "" {
		return nil, required("clinical_stage")
	}
	primary, secondary, err := in.Gleason()
	if err != nil {
		return nil, err
	}
	stage, err := ParseStage(in.ClinicalStage)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(*in.Age) || math.IsNaN(*in.PSA) {
		return nil, stats.InvalidParameterf("age and psa must be numbers")
	}

	tbl := t.CAPRA
	res := &CAPRAResult{
		ScoreResult:    ScoreResult{MaxScore: float64(tbl.MaxScore()), ContributingFactors: []string{}},
		GleasonPattern: fmt.Sprintf("%d+%d", primary, secondary),
	}

	b := tbl.Age.Lookup(*in.Age)
	res.add(b.Points, b.Label)
	b = tbl.PSA.Lookup(*in.PSA)
	res.add(b.Points, b.Label)
	g := tbl.Gleason.Lookup(primary, secondary)
	res.add(g.Points, g.Label)
	pts, label := tbl.Stage.Lookup(stage)
	res.add(pts, label)
	if in.PercentPositiveCores != nil {
		b = tbl.PositiveCores.Lookup(*in.PercentPositiveCores)
		res.add(b.Points, b.Label)
	} else {
		res.Unavailable = append(res.Unavailable, "percent_positive_cores")
	}

	res.Score = math.Max(0, math.Min(10, res.Score))
	res.Category = t.Categories.Categorize(res.Score)
	res.Outlook = tbl.Outlook[res.Category]
	return res, nil
}
