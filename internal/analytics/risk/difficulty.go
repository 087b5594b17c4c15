package risk

import (
	"math"

	"github.com/oncostat/oncostat/internal/analytics/stats"
)

// DifficultyInput is the pre-operative record scored by the Surgical
// Difficulty Index. Stage, Gleason score and PSA are required; the rest are
// scored when present.
type DifficultyInput struct {
	Age                *float64 `json:"age,omitempty"`
	BMI                *float64 `json:"bmi,omitempty"`
	ProstateVolume     *float64 `json:"prostate_volume,omitempty"`
	PriorPelvicSurgery *bool    `json:"prior_pelvic_surgery,omitempty"`
	GleasonScore       *int     `json:"gleason_score"`
	ClinicalStage      string   `json:"clinical_stage"`
	PSA                *float64 `json:"psa"`
}

type DifficultyResult struct {
	ScoreResult
	RawScore       int      `json:"raw_score"`
	MaxRawScore    int      `json:"max_raw_score"`
	Recommendation string   `json:"recommendation"`
	MissingFactors []string `json:"missing_factors"`
}

// SurgicalDifficulty scores in and scales the raw points onto 0-10, rounded
// to one decimal.
func SurgicalDifficulty(t *Tables, in DifficultyInput) (*DifficultyResult, error) {
	if in.ClinicalStage == "" {
		return nil, required("clinical_stage")
	}
	if in.GleasonScore == nil {
		return nil, required("gleason_score")
	}
	if in.PSA == nil {
		return nil, required("psa")
	}
	stage, err := ParseStage(in.ClinicalStage)
	if err != nil {
		return nil, err
	}
	if g := *in.GleasonScore; g < 2 || g > 10 {
		return nil, stats.InvalidParameterf("gleason_score must be between 2 and 10 (got %d)", g)
	}

	tbl := t.Difficulty
	res := &DifficultyResult{
		ScoreResult:    ScoreResult{MaxScore: 10, ContributingFactors: []string{}},
		MaxRawScore:    tbl.MaxRaw(),
		MissingFactors: []string{},
	}
	optional := func(name string, v *float64, bands Bands) {
		if v == nil {
			res.MissingFactors = append(res.MissingFactors, name)
			return
		}
		b := bands.Lookup(*v)
		res.add(b.Points, b.Label)
	}

	optional("age", in.Age, tbl.Age)
	optional("bmi", in.BMI, tbl.BMI)
	optional("prostate_volume", in.ProstateVolume, tbl.ProstateVolume)
	switch {
	case in.PriorPelvicSurgery == nil:
		res.MissingFactors = append(res.MissingFactors, "prior_pelvic_surgery")
	case *in.PriorPelvicSurgery:
		res.add(tbl.PriorSurgery.Points, tbl.PriorSurgery.Label)
	}
	b := tbl.Gleason.Lookup(float64(*in.GleasonScore))
	res.add(b.Points, b.Label)
	pts, label := tbl.Stage.Lookup(stage)
	res.add(pts, label)
	b = tbl.PSA.Lookup(*in.PSA)
	res.add(b.Points, b.Label)

	res.RawScore = int(res.Score)
	scaled := float64(res.RawScore) / float64(res.MaxRawScore) * 10
	res.Score = math.Max(0, math.Min(10, math.Round(scaled*10)/10))
	res.Category = t.Categories.Categorize(res.Score)
	res.Recommendation = tbl.Recommendations[res.Category]
	return res, nil
}
