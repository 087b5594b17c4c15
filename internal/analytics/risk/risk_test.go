package risk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncostat/oncostat/internal/analytics/risk"
	"github.com/oncostat/oncostat/internal/analytics/stats"
	"github.com/oncostat/oncostat/internal/clinicaltables"
)

func f64(v float64) *float64 { return &v }
func intp(v int) *int        { return &v }
func boolp(v bool) *bool     { return &v }

func tables() *risk.Tables { return &clinicaltables.Default().Risk }

func TestParseStage(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ord  float64
	}{
		{"T1c", "T1c", 1},
		{"cT3a", "T3a", 3},
		{"t2", "T2", 2},
		{" T4 ", "T4", 4},
		{"Tis", "Tis", 0},
	}
	for _, tt := range tests {
		s, err := risk.ParseStage(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, s.String())
		assert.Equal(t, tt.ord, s.Ordinal())
	}

	s, err := risk.ParseStage("cTIS")
	require.NoError(t, err)
	assert.Equal(t, "Tis", s.String())

	for _, bad := range []string{"", "T5", "stage 2", "T2d", "N1", "T1is", "Ti"} {
		_, err := risk.ParseStage(bad)
		assert.ErrorIs(t, err, stats.ErrInvalidParameter, bad)
	}
}

func TestThresholds_Boundaries(t *testing.T) {
	th := tables().Categories
	assert.Equal(t, risk.Low, th.Categorize(0))
	assert.Equal(t, risk.Low, th.Categorize(2))
	assert.Equal(t, risk.Intermediate, th.Categorize(3))
	assert.Equal(t, risk.Intermediate, th.Categorize(5))
	assert.Equal(t, risk.High, th.Categorize(6))
	assert.Equal(t, risk.High, th.Categorize(10))
}

func TestCAPRA(t *testing.T) {
	res, err := risk.CAPRA(tables(), risk.CAPRAInput{
		Age:                  f64(65),
		PSA:                  f64(8),
		GleasonPrimary:       intp(3),
		GleasonSecondary:     intp(4),
		ClinicalStage:        "T2a",
		PercentPositiveCores: f64(40),
	})
	require.NoError(t, err)

	assert.Equal(t, 4.0, res.Score)
	assert.Equal(t, 10.0, res.MaxScore)
	assert.Equal(t, risk.Intermediate, res.Category)
	assert.Equal(t, "3+4", res.GleasonPattern)
	assert.Equal(t, []string{
		"Age >=50: +1",
		"PSA 6-10: +1",
		"Gleason 3+4: +1",
		">=34% positive cores: +1",
	}, res.ContributingFactors)
	assert.Len(t, res.Components, 5)
	assert.Equal(t, "20-50%", res.Outlook.FiveYearRecurrenceFree)
	assert.Empty(t, res.Unavailable)
}

func TestCAPRA_Categories(t *testing.T) {
	low, err := risk.CAPRA(tables(), risk.CAPRAInput{
		Age: f64(62), PSA: f64(5), GleasonScore: intp(6), ClinicalStage: "T1c",
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, low.Score)
	assert.Equal(t, risk.Low, low.Category)
	assert.Equal(t, []string{"percent_positive_cores"}, low.Unavailable)

	high, err := risk.CAPRA(tables(), risk.CAPRAInput{
		Age: f64(70), PSA: f64(25), GleasonScore: intp(9), ClinicalStage: "T3a",
	})
	require.NoError(t, err)
	assert.Equal(t, "4+4", high.GleasonPattern)
	assert.Equal(t, 8.0, high.Score)
	assert.Equal(t, risk.High, high.Category)

	top, err := risk.CAPRA(tables(), risk.CAPRAInput{
		Age: f64(70), PSA: f64(45), GleasonPrimary: intp(5), GleasonSecondary: intp(4),
		ClinicalStage: "T4", PercentPositiveCores: f64(80),
	})
	require.NoError(t, err)
	assert.Equal(t, 10.0, top.Score)
}

func TestCAPRA_GleasonPatterns(t *testing.T) {
	tests := []struct {
		p, s int
		want float64
	}{
		{3, 3, 0}, {2, 3, 0}, {3, 4, 1}, {4, 3, 2}, {4, 4, 3}, {3, 5, 3}, {2, 4, 3}, {4, 2, 3},
	}
	for _, tt := range tests {
		res, err := risk.CAPRA(tables(), risk.CAPRAInput{
			Age: f64(40), PSA: f64(1), GleasonPrimary: intp(tt.p), GleasonSecondary: intp(tt.s), ClinicalStage: "T1",
		})
		require.NoError(t, err)
		assert.Equal(t, tt.want, res.Score, "%d+%d", tt.p, tt.s)
	}
}

func TestCAPRA_Errors(t *testing.T) {
	base := func() risk.CAPRAInput {
		return risk.CAPRAInput{Age: f64(60), PSA: f64(5), GleasonScore: intp(7), ClinicalStage: "T2"}
	}
	tests := []struct {
		name   string
		mutate func(*risk.CAPRAInput)
	}{
		{"missing age", func(in *risk.CAPRAInput) { in.Age = nil }},
		{"missing psa", func(in *risk.CAPRAInput) { in.PSA = nil }},
		{"missing stage", func(in *risk.CAPRAInput) { in.ClinicalStage = "" }},
		{"missing gleason", func(in *risk.CAPRAInput) { in.GleasonScore = nil }},
		{"half pattern", func(in *risk.CAPRAInput) { in.GleasonPrimary = intp(3) }},
		{"disagreeing total", func(in *risk.CAPRAInput) {
			in.GleasonPrimary, in.GleasonSecondary = intp(4), intp(4)
		}},
		{"bad stage", func(in *risk.CAPRAInput) { in.ClinicalStage = "stage two" }},
		{"bad total", func(in *risk.CAPRAInput) { in.GleasonScore = intp(12) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base()
			tt.mutate(&in)
			_, err := risk.CAPRA(tables(), in)
			assert.ErrorIs(t, err, stats.ErrInvalidParameter)
		})
	}
}

func TestPredictRisk(t *testing.T) {
	set, err := risk.PredictRisk(tables(), []risk.FeatureVector{
		{PSALevel: f64(5), GleasonScore: f64(6), ClinicalStage: "T1c"},
		{PSALevel: f64(25), GleasonScore: f64(9), ClinicalStage: "T3a"},
		{PSALevel: f64(12), GleasonScore: f64(6)},
		{PSALevel: f64(4), GleasonScore: f64(7)},
	})
	require.NoError(t, err)

	assert.Equal(t, risk.ModelRuleBased, set.ModelType)
	assert.Equal(t, 4, set.TotalPredictions)

	assert.Equal(t, risk.Prediction{RiskScore: 1, PredictedCategory: risk.Low, Confidence: 65}, set.Predictions[0])
	assert.Equal(t, risk.Prediction{RiskScore: 8, PredictedCategory: risk.High, Confidence: 95}, set.Predictions[1])
	// 10 < PSA <= 20 scores 2: the Low/Intermediate boundary sits between 2 and 3
	assert.Equal(t, risk.Low, set.Predictions[2].PredictedCategory)
	assert.Equal(t, 2, set.Predictions[2].RiskScore)
	// PSA exactly 4 scores nothing; Gleason 7 scores 2
	assert.Equal(t, 2, set.Predictions[3].RiskScore)
}

func TestPredictRisk_PSABandEdges(t *testing.T) {
	cases := map[float64]int{4: 0, 4.01: 1, 10: 1, 10.5: 2, 20: 2, 20.1: 3}
	for psa, want := range cases {
		set, err := risk.PredictRisk(tables(), []risk.FeatureVector{{PSALevel: f64(psa), GleasonScore: f64(6)}})
		require.NoError(t, err)
		assert.Equal(t, want, set.Predictions[0].RiskScore, "psa %g", psa)
	}
}

func TestPredictRisk_Errors(t *testing.T) {
	_, err := risk.PredictRisk(tables(), nil)
	assert.ErrorIs(t, err, stats.ErrInsufficientData)

	_, err = risk.PredictRisk(tables(), []risk.FeatureVector{{GleasonScore: f64(6)}})
	assert.ErrorIs(t, err, stats.ErrInvalidParameter)

	_, err = risk.PredictRisk(tables(), []risk.FeatureVector{{PSALevel: f64(3)}})
	assert.ErrorIs(t, err, stats.ErrInvalidParameter)

	_, err = risk.PredictRisk(tables(), []risk.FeatureVector{{PSALevel: f64(3), GleasonScore: f64(6), ClinicalStage: "X"}})
	assert.ErrorIs(t, err, stats.ErrInvalidParameter)
}

func TestSurgicalDifficulty(t *testing.T) {
	res, err := risk.SurgicalDifficulty(tables(), risk.DifficultyInput{
		Age:                f64(70),
		BMI:                f64(32),
		ProstateVolume:     f64(60),
		PriorPelvicSurgery: boolp(true),
		GleasonScore:       intp(7),
		ClinicalStage:      "T2c",
		PSA:                f64(12),
	})
	require.NoError(t, err)

	assert.Equal(t, 7, res.RawScore)
	assert.Equal(t, 13, res.MaxRawScore)
	assert.Equal(t, 5.4, res.Score)
	assert.Equal(t, risk.Intermediate, res.Category)
	assert.NotEmpty(t, res.Recommendation)
	assert.Len(t, res.ContributingFactors, 7)
	assert.Empty(t, res.MissingFactors)
}

func TestSurgicalDifficulty_Extremes(t *testing.T) {
	bottom, err := risk.SurgicalDifficulty(tables(), risk.DifficultyInput{
		GleasonScore: intp(6), ClinicalStage: "T1c", PSA: f64(5),
	})
	require.NoError(t, err)
	assert.Zero(t, bottom.Score)
	assert.Equal(t, risk.Low, bottom.Category)
	assert.Equal(t, []string{"age", "bmi", "prostate_volume", "prior_pelvic_surgery"}, bottom.MissingFactors)
	assert.Empty(t, bottom.ContributingFactors)

	top, err := risk.SurgicalDifficulty(tables(), risk.DifficultyInput{
		Age: f64(80), BMI: f64(40), ProstateVolume: f64(90), PriorPelvicSurgery: boolp(true),
		GleasonScore: intp(9), ClinicalStage: "T3b", PSA: f64(25),
	})
	require.NoError(t, err)
	assert.Equal(t, 10.0, top.Score)
	assert.Equal(t, risk.High, top.Category)
}

func TestSurgicalDifficulty_Errors(t *testing.T) {
	_, err := risk.SurgicalDifficulty(tables(), risk.DifficultyInput{ClinicalStage: "T2", PSA: f64(5)})
	assert.ErrorIs(t, err, stats.ErrInvalidParameter)

	_, err = risk.SurgicalDifficulty(tables(), risk.DifficultyInput{GleasonScore: intp(1), ClinicalStage: "T2", PSA: f64(5)})
	assert.ErrorIs(t, err, stats.ErrInvalidParameter)
}
