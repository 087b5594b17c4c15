package cluster

import (
	"github.com/oncostat/oncostat/internal/analytics/risk"
	"github.com/oncostat/oncostat/internal/analytics/stats"
)

// FeatureMatrix turns patient feature vectors into clustering samples.
// psa_level, gleason_score and age are required. The clinical stage ordinal
// is added as a fourth feature only when every vector carries a stage.
func FeatureMatrix(features []risk.FeatureVector) ([][]float64, []string, error) {
	names := []string{"psa_level", "gleason_score", "age"}
	withStage := len(features) > 0
	for i, f := range features {
		switch {
		case f.PSALevel == nil:
			return nil, nil, stats.InvalidParameterf("features[%d]: psa_level is required", i)
		case f.GleasonScore == nil:
			return nil, nil, stats.InvalidParameterf("features[%d]: gleason_score is required", i)
		case f.Age == nil:
			return nil, nil, stats.InvalidParameterf("features[%d]: age is required", i)
		}
		if f.ClinicalStage == "" {
			withStage = false
		}
	}
	if withStage {
		names = append(names, "clinical_stage")
	}

	samples := make([][]float64, len(features))
	for i, f := range features {
		row := []float64{*f.PSALevel, *f.GleasonScore, *f.Age}
		if withStage {
			st, err := risk.ParseStage(f.ClinicalStage)
			if err != nil {
				return nil, nil, stats.InvalidParameterf("features[%d]: %s", i, err.Error())
			}
			row = append(row, st.Ordinal())
		}
		samples[i] = row
	}
	return samples, names, nil
}
