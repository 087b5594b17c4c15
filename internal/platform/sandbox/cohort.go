// Package sandbox generates a reproducible synthetic prostate cancer cohort
// and loads it into a patient database for demos and local development.
package sandbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/oncostat/oncostat/internal/platform/db"
)

// SeedConfig controls the size and shape of the generated cohort.
type SeedConfig struct {
	PatientCount int
	// PSADraws is the maximum number of PSA draws per patient; each patient
	// gets between 1 and PSADraws.
	PSADraws int
	Seed     int64
	// End is the date of the most recent possible draw.
	End time.Time
}

func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		PatientCount: 50,
		PSADraws:     6,
		Seed:         42,
		End:          time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	}
}

// ---------------------------------------------------------------------------
// Synthetic records
// ---------------------------------------------------------------------------

type CustomFields struct {
	GleasonPrimary     int      `json:"gleason_primary"`
	GleasonSecondary   int      `json:"gleason_secondary"`
	CoresPositive      int      `json:"cores_positive"`
	CoresTotal         int      `json:"cores_total"`
	BMI                float64  `json:"bmi"`
	ProstateVolume     float64  `json:"prostate_volume"`
	PriorPelvicSurgery bool     `json:"prior_pelvic_surgery"`
	NerveSparing       bool     `json:"nerve_sparing"`
	Comorbidities      []string `json:"comorbidities,omitempty"`
}

type PSADraw struct {
	Date  time.Time
	Value float64
}

type SyntheticPatient struct {
	MRN           string
	Age           int
	GleasonScore  int
	ClinicalStage string
	PSALevel      float64
	Custom        CustomFields
	PSAHistory    []PSADraw
}

var (
	stages        = []string{"T1c", "T1c", "T2a", "T2b", "T2c", "T3a", "T3b"}
	comorbidities = []string{"diabetes", "cardiovascular_disease", "smoking", "prior_radiation"}
	// grade patterns weighted toward Gleason 7
	patterns = [][2]int{{3, 3}, {3, 4}, {3, 4}, {4, 3}, {4, 3}, {4, 4}, {4, 5}}
)

// DataGenerator draws synthetic patients from a seeded source.
type DataGenerator struct {
	rng     *rand.Rand
	counter int
}

// NewDataGenerator returns a generator seeded for reproducibility. If seed is
// 0 a time-based seed is chosen.
func NewDataGenerator(seed int64) *DataGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DataGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *DataGenerator) between(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// GeneratePatient returns one patient with up to draws PSA values ending on
// or before end.
func (g *DataGenerator) GeneratePatient(draws int, end time.Time) SyntheticPatient {
	g.counter++
	pattern := patterns[g.rng.Intn(len(patterns))]
	stage := stages[g.rng.Intn(len(stages))]

	p := SyntheticPatient{
		MRN:           fmt.Sprintf("SYN-%05d", g.counter),
		Age:           45 + g.rng.Intn(34),
		GleasonScore:  pattern[0] + pattern[1],
		ClinicalStage: stage,
		Custom: CustomFields{
			GleasonPrimary:     pattern[0],
			GleasonSecondary:   pattern[1],
			CoresTotal:         12,
			BMI:                round(g.between(21, 38), 1),
			ProstateVolume:     round(g.between(25, 95), 0),
			PriorPelvicSurgery: g.rng.Float64() < 0.1,
			NerveSparing:       stage[:2] != "T3",
		},
	}
	p.Custom.CoresPositive = 1 + g.rng.Intn(p.Custom.CoresTotal)
	for _, c := range comorbidities {
		if g.rng.Float64() < 0.15 {
			p.Custom.Comorbidities = append(p.Custom.Comorbidities, c)
		}
	}

	p.PSAHistory = g.psaHistory(1+g.rng.Intn(max(draws, 1)), end)
	p.PSALevel = p.PSAHistory[len(p.PSAHistory)-1].Value
	return p
}

// psaHistory draws n values growing exponentially at a per-patient rate,
// spaced four to eight months apart.
func (g *DataGenerator) psaHistory(n int, end time.Time) []PSADraw {
	baseline := g.between(2, 12)
	rate := g.between(-0.1, 0.7) // per year

	gaps := make([]int, n)
	total := 0
	for i := 1; i < n; i++ {
		gaps[i] = 120 + g.rng.Intn(121)
		total += gaps[i]
	}
	day := end.AddDate(0, 0, -total)

	out := make([]PSADraw, n)
	elapsed := 0
	for i := range out {
		elapsed += gaps[i]
		years := float64(elapsed) / 365.25
		noise := g.between(0.95, 1.05)
		out[i] = PSADraw{
			Date:  day.AddDate(0, 0, elapsed),
			Value: round(baseline*math.Exp(rate*years)*noise, 2),
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Seeder
// ---------------------------------------------------------------------------

type SeedResult struct {
	Patients   int           `json:"patients"`
	LabResults int           `json:"lab_results"`
	Duration   time.Duration `json:"duration"`
}

type Seeder struct {
	generator *DataGenerator
	config    SeedConfig
}

func NewSeeder(config SeedConfig) *Seeder {
	if config.End.IsZero() {
		config.End = time.Now().UTC().Truncate(24 * time.Hour)
	}
	return &Seeder{generator: NewDataGenerator(config.Seed), config: config}
}

// Generate returns the configured number of patients.
func (s *Seeder) Generate() []SyntheticPatient {
	out := make([]SyntheticPatient, s.config.PatientCount)
	for i := range out {
		out[i] = s.generator.GeneratePatient(s.config.PSADraws, s.config.End)
	}
	return out
}

// Load generates the cohort and inserts it in a single transaction.
func (s *Seeder) Load(ctx context.Context, conn *sql.DB, driver db.Driver) (*SeedResult, error) {
	start := time.Now()
	patients := s.Generate()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	ph := placeholders(driver)
	insertPatient := fmt.Sprintf(`INSERT INTO patients (mrn, age, gleason_score, psa_level, clinical_stage, custom_fields)
		VALUES (%s, %s, %s, %s, %s, %s) RETURNING id`, ph(1), ph(2), ph(3), ph(4), ph(5), ph(6))
	insertLab := fmt.Sprintf(`INSERT INTO lab_results (patient_id, test_date, test_type, test_value, test_unit, reference_range)
		VALUES (%s, %s, 'PSA', %s, 'ng/mL', '0-4')`, ph(1), ph(2), ph(3))

	res := &SeedResult{}
	for _, p := range patients {
		custom, err := json.Marshal(p.Custom)
		if err != nil {
			return nil, fmt.Errorf("encode custom fields: %w", err)
		}
		var id int64
		err = tx.QueryRowContext(ctx, insertPatient,
			p.MRN, p.Age, p.GleasonScore, p.PSALevel, p.ClinicalStage, string(custom)).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("insert patient %s: %w", p.MRN, err)
		}
		res.Patients++

		for _, d := range p.PSAHistory {
			if _, err := tx.ExecContext(ctx, insertLab, id, dateArg(driver, d.Date), d.Value); err != nil {
				return nil, fmt.Errorf("insert psa result for %s: %w", p.MRN, err)
			}
			res.LabResults++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit seed transaction: %w", err)
	}
	res.Duration = time.Since(start)
	return res, nil
}

func placeholders(driver db.Driver) func(int) string {
	if driver == db.Postgres {
		return func(n int) string { return "$" + strconv.Itoa(n) }
	}
	return func(int) string { return "?" }
}

// SQLite keeps dates as text.
func dateArg(driver db.Driver, t time.Time) any {
	if driver == db.SQLite {
		return t.Format(time.DateOnly)
	}
	return t
}
