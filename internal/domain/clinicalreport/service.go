package clinicalreport

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/oncostat/oncostat/internal/analytics/intel"
	"github.com/oncostat/oncostat/internal/analytics/psa"
	"github.com/oncostat/oncostat/internal/analytics/recovery"
	"github.com/oncostat/oncostat/internal/analytics/risk"
	"github.com/oncostat/oncostat/internal/clinicaltables"
	"github.com/oncostat/oncostat/internal/platform/compute"
)

const daysPerYear = 365.25

// Service builds clinical reports from explicit records or, when a
// repository is configured, from stored patients.
type Service struct {
	patients PatientRepository
	tables   *clinicaltables.Store
	runner   *compute.Runner
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService accepts a nil repository; patient reports are then unavailable.
func NewService(patients PatientRepository, tables *clinicaltables.Store, runner *compute.Runner, logger zerolog.Logger) *Service {
	return &Service{
		patients: patients,
		tables:   tables,
		runner:   runner,
		logger:   logger,
		now:      time.Now,
	}
}

// HasPatients reports whether patient-backed reports can be served.
func (s *Service) HasPatients() bool {
	return s.patients != nil
}

func (s *Service) header(patientID *int64) header {
	return header{ReportID: uuid.New(), GeneratedAt: s.now().UTC(), PatientID: patientID}
}

func (s *Service) PSAKinetics(series psa.Series) (*psa.Kinetics, error) {
	return compute.Do(s.runner, "psa_kinetics", series, func() (*psa.Kinetics, error) {
		return psa.Analyze(series)
	})
}

func (s *Service) CAPRA(in risk.CAPRAInput) (*risk.CAPRAResult, error) {
	t := s.tables.Get()
	return compute.Do(s.runner, "capra", compute.Versioned(t.Digest, in), func() (*risk.CAPRAResult, error) {
		return risk.CAPRA(&t.Risk, in)
	})
}

func (s *Service) SurgicalDifficulty(in risk.DifficultyInput) (*risk.DifficultyResult, error) {
	t := s.tables.Get()
	return compute.Do(s.runner, "surgical_difficulty", compute.Versioned(t.Digest, in), func() (*risk.DifficultyResult, error) {
		return risk.SurgicalDifficulty(&t.Risk, in)
	})
}

func (s *Service) Recovery(in recovery.Input) (*recovery.Prediction, error) {
	t := s.tables.Get()
	return compute.Do(s.runner, "recovery", compute.Versioned(t.Digest, in), func() (*recovery.Prediction, error) {
		return recovery.Predict(&t.Recovery, in)
	})
}

// SurgicalIntelligence composes every component for an explicit record.
func (s *Service) SurgicalIntelligence(in intel.Input) *SurgicalIntelligenceReport {
	t := s.tables.Get()
	rep, _ := compute.Do(s.runner, "surgical_intelligence", compute.Versioned(t.Digest, in), func() (*intel.Report, error) {
		return intel.Build(t, in), nil
	})
	return &SurgicalIntelligenceReport{header: s.header(nil), Report: rep}
}

// PatientSurgicalIntelligence builds the composed report for a stored
// patient. nerveSparing overrides the value kept in the profile.
func (s *Service) PatientSurgicalIntelligence(ctx context.Context, id int64, nerveSparing *bool) (*SurgicalIntelligenceReport, error) {
	in, err := s.patientInput(ctx, id, nerveSparing)
	if err != nil {
		return nil, err
	}
	return &SurgicalIntelligenceReport{header: s.header(&id), Report: intel.Build(s.tables.Get(), in)}, nil
}

// PatientPSAAnalysis runs PSA kinetics over the stored PSA history.
func (s *Service) PatientPSAAnalysis(ctx context.Context, id int64) (*PSAAnalysis, error) {
	if _, err := s.profile(ctx, id); err != nil {
		return nil, err
	}
	hist, err := s.history(ctx, id)
	if err != nil {
		return nil, err
	}
	k, err := psa.Analyze(hist.Series)
	if err != nil {
		return nil, err
	}
	return &PSAAnalysis{
		header:     s.header(&id),
		PSACount:   len(hist.Series.Values),
		PSAValues:  hist.Series.Values,
		PSADates:   hist.Dates,
		TimePoints: hist.Series.Times,
		Kinetics:   k,
	}, nil
}

// PatientRiskAssessment returns the CAPRA and surgical difficulty sections.
func (s *Service) PatientRiskAssessment(ctx context.Context, id int64) (*RiskAssessment, error) {
	in, err := s.patientInput(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	rep := intel.Build(s.tables.Get(), in)
	in.PSAHistory = nil
	return &RiskAssessment{
		header:             s.header(&id),
		CAPRA:              rep.CAPRA,
		SurgicalDifficulty: rep.SurgicalDifficulty,
		InputData:          in,
	}, nil
}

// PatientRecovery predicts the recovery timeline for a stored patient.
// nerveSparing overrides the profile; a nerve-sparing approach is assumed
// when neither says otherwise.
func (s *Service) PatientRecovery(ctx context.Context, id int64, nerveSparing *bool) (*RecoveryReport, error) {
	p, err := s.profile(ctx, id)
	if err != nil {
		return nil, err
	}
	cf := s.customFields(p)
	planned := resolveNerveSparing(nerveSparing, cf.NerveSparing)
	pred, err := s.Recovery(recovery.Input{
		Age:           intToFloat(p.Age),
		NerveSparing:  &planned,
		BMI:           cf.BMI,
		Comorbidities: cf.Comorbidities,
	})
	if err != nil {
		return nil, err
	}
	return &RecoveryReport{header: s.header(&id), NerveSparingPlanned: planned, Predictions: pred}, nil
}

func (s *Service) profile(ctx context.Context, id int64) (*PatientProfile, error) {
	if s.patients == nil {
		return nil, ErrPatientNotFound
	}
	return s.patients.GetProfile(ctx, id)
}

func (s *Service) history(ctx context.Context, id int64) (*DatedSeries, error) {
	labs, err := s.patients.ListPSAResults(ctx, id)
	if err != nil {
		return nil, err
	}
	return BuildSeries(labs), nil
}

// A malformed custom_fields column degrades to an empty set.
func (s *Service) customFields(p *PatientProfile) CustomFields {
	cf, err := parseCustomFields(p.CustomFields)
	if err != nil {
		s.logger.Warn().Err(err).Msg("ignoring malformed patient custom fields")
	}
	return cf
}

func (s *Service) patientInput(ctx context.Context, id int64, nerveSparing *bool) (intel.Input, error) {
	p, err := s.profile(ctx, id)
	if err != nil {
		return intel.Input{}, err
	}
	hist, err := s.history(ctx, id)
	if err != nil {
		return intel.Input{}, err
	}
	cf := s.customFields(p)
	planned := resolveNerveSparing(nerveSparing, cf.NerveSparing)

	in := intel.Input{
		Age:                  intToFloat(p.Age),
		PSA:                  p.PSALevel,
		GleasonPrimary:       cf.GleasonPrimary,
		GleasonSecondary:     cf.GleasonSecondary,
		GleasonScore:         p.GleasonScore,
		ClinicalStage:        p.ClinicalStage,
		PercentPositiveCores: cf.PercentPositiveCores(),
		BMI:                  cf.BMI,
		ProstateVolume:       cf.ProstateVolume,
		PriorPelvicSurgery:   cf.PriorPelvicSurgery,
		NerveSparing:         &planned,
		Comorbidities:        cf.Comorbidities,
	}
	if len(hist.Series.Values) > 0 {
		in.PSAHistory = &hist.Series
	}
	return in, nil
}

func resolveNerveSparing(requested, stored *bool) bool {
	switch {
	case requested != nil:
		return *requested
	case stored != nil:
		return *stored
	}
	return true
}

// BuildSeries converts dated PSA draws into a series measured in years
// since the first draw. Draws on the same calendar day are averaged.
func BuildSeries(labs []LabValue) *DatedSeries {
	out := &DatedSeries{Series: psa.Series{TimeUnit: psa.UnitYears}}
	if len(labs) == 0 {
		return out
	}
	labs = append([]LabValue(nil), labs...)
	sort.SliceStable(labs, func(i, j int) bool { return labs[i].Date.Before(labs[j].Date) })

	type day struct {
		date  time.Time
		sum   float64
		count int
	}
	var days []*day
	index := map[string]*day{}
	for _, l := range labs {
		d := l.Date.UTC()
		key := d.Format(time.DateOnly)
		if cur, ok := index[key]; ok {
			cur.sum += l.Value
			cur.count++
			continue
		}
		cur := &day{date: time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), sum: l.Value, count: 1}
		index[key] = cur
		days = append(days, cur)
	}

	first := days[0].date
	for _, d := range days {
		years := d.date.Sub(first).Hours() / 24 / daysPerYear
		out.Series.Times = append(out.Series.Times, years)
		out.Series.Values = append(out.Series.Values, d.sum/float64(d.count))
		out.Dates = append(out.Dates, d.date.Format(time.DateOnly))
	}
	return out
}

func intToFloat(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}

// ParseNerveSparing reads the optional nerve_sparing query flag.
func ParseNerveSparing(raw string) (*bool, error) {
	switch raw {
	case "":
		return nil, nil
	case "true", "1", "yes":
		v := true
		return &v, nil
	case "false", "0", "no":
		v := false
		return &v, nil
	}
	return nil, fmt.Errorf("nerve_sparing must be true or false")
}
