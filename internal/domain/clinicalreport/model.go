package clinicalreport

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oncostat/oncostat/internal/analytics/intel"
	"github.com/oncostat/oncostat/internal/analytics/psa"
	"github.com/oncostat/oncostat/internal/analytics/recovery"
	"github.com/oncostat/oncostat/internal/analytics/risk"
)

var ErrPatientNotFound = errors.New("patient not found")

// PatientProfile is the pre-operative record stored for a patient.
type PatientProfile struct {
	ID            int64
	MRN           string
	Age           *int
	PSALevel      *float64
	GleasonScore  *int
	ClinicalStage string
	CustomFields  string
}

// CustomFields are the optional clinical attributes kept in the patient's
// free-form JSON column. Keys not listed here are ignored.
type CustomFields struct {
	GleasonPrimary     *int     `json:"gleason_primary"`
	GleasonSecondary   *int     `json:"gleason_secondary"`
	CoresPositive      *float64 `json:"cores_positive"`
	CoresTotal         *float64 `json:"cores_total"`
	BMI                *float64 `json:"bmi"`
	ProstateVolume     *float64 `json:"prostate_volume"`
	PriorPelvicSurgery *bool    `json:"prior_pelvic_surgery"`
	NerveSparing       *bool    `json:"nerve_sparing"`
	Comorbidities      []string `json:"comorbidities"`
}

func parseCustomFields(raw string) (CustomFields, error) {
	var cf CustomFields
	if strings.TrimSpace(raw) == "" {
		return cf, nil
	}
	if err := json.Unmarshal([]byte(raw), &cf); err != nil {
		return CustomFields{}, fmt.Errorf("decode custom_fields: %w", err)
	}
	return cf, nil
}

// PercentPositiveCores is nil unless both core counts are known.
func (cf CustomFields) PercentPositiveCores() *float64 {
	if cf.CoresPositive == nil || cf.CoresTotal == nil || *cf.CoresTotal <= 0 {
		return nil
	}
	pct := *cf.CoresPositive / *cf.CoresTotal * 100
	return &pct
}

// LabValue is one PSA draw.
type LabValue struct {
	Date  time.Time
	Value float64
}

// DatedSeries is a PSA history with the draw dates it was derived from.
type DatedSeries struct {
	Series psa.Series
	Dates  []string
}

type header struct {
	ReportID    uuid.UUID `json:"report_id"`
	GeneratedAt time.Time `json:"generated_at"`
	PatientID   *int64    `json:"patient_id,omitempty"`
}

type SurgicalIntelligenceReport struct {
	header
	*intel.Report
}

type PSAAnalysis struct {
	header
	PSACount   int           `json:"psa_count"`
	PSAValues  []float64     `json:"psa_values"`
	PSADates   []string      `json:"psa_dates"`
	TimePoints []float64     `json:"time_points_years"`
	Kinetics   *psa.Kinetics `json:"kinetics"`
}

type RiskAssessment struct {
	header
	CAPRA              intel.Section[risk.CAPRAResult]      `json:"capra"`
	SurgicalDifficulty intel.Section[risk.DifficultyResult] `json:"surgical_difficulty"`
	InputData          intel.Input                          `json:"input_data"`
}

type RecoveryReport struct {
	header
	NerveSparingPlanned bool                 `json:"nerve_sparing_planned"`
	Predictions         *recovery.Prediction `json:"predictions"`
}
