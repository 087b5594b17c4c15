package risk

import (
	"math"

	"github.com/oncostat/oncostat/internal/analytics/stats"
)

// ModelRuleBased names the fixed-weight predictor.
const ModelRuleBased = "rule_based"

// FeatureVector is one patient's scoring input. Unknown fields are rejected
// at decode time; PSALevel and GleasonScore are required for risk
// prediction and PSALevel, GleasonScore and Age for clustering.
type FeatureVector struct {
	PSALevel      *float64 `json:"psa_level"`
	GleasonScore  *float64 `json:"gleason_score"`
	Age           *float64 `json:"age,omitempty"`
	ClinicalStage string   `json:"clinical_stage,omitempty"`
}

type Prediction struct {
	RiskScore         int      `json:"risk_score"`
	PredictedCategory Category `json:"predicted_category"`
	Confidence        float64  `json:"confidence"`
}

type PredictionSet struct {
	ModelType        string       `json:"model_type"`
	Predictions      []Prediction `json:"predictions"`
	TotalPredictions int          `json:"total_predictions"`
}

// PredictRisk scores each feature vector with the rule table.
func PredictRisk(t *Tables, features []FeatureVector) (*PredictionSet, error) {
	if len(features) == 0 {
		return nil, stats.Insufficientf("risk prediction needs at least 1 feature vector")
	}
	out := &PredictionSet{
		ModelType:   ModelRuleBased,
		Predictions: make([]Prediction, 0, len(features)),
	}
	for i, f := range features {
		p, err := predictOne(t, f)
		if err != nil {
			return nil, stats.InvalidParameterf("features[%d]: %s", i, err.Error())
		}
		out.Predictions = append(out.Predictions, p)
	}
	out.TotalPredictions = len(out.Predictions)
	return out, nil
}

func predictOne(t *Tables, f FeatureVector) (Prediction, error) {
	if f.PSALevel == nil {
		return Prediction{}, required("psa_level")
	}
	if f.GleasonScore == nil {
		return Prediction{}, required("gleason_score")
	}
	rt := t.Rules
	score := rt.PSA.Lookup(*f.PSALevel).Points + rt.Gleason.Lookup(*f.GleasonScore).Points
	if f.ClinicalStage != "" {
		stage, err := ParseStage(f.ClinicalStage)
		if err != nil {
			return Prediction{}, err
		}
		pts, _ := rt.Stage.Lookup(stage)
		score += pts
	}
	return Prediction{
		RiskScore:         score,
		PredictedCategory: t.Categories.Categorize(float64(score)),
		Confidence:        math.Min(rt.MaxConfidence, rt.BaseConfidence+rt.ConfidenceStep*float64(score)),
	}, nil
}
