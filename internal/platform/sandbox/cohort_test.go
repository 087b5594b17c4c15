package sandbox

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncostat/oncostat/internal/domain/clinicalreport"
	"github.com/oncostat/oncostat/internal/platform/db"
)

func TestDataGenerator_Deterministic(t *testing.T) {
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	a := NewDataGenerator(7).GeneratePatient(5, end)
	b := NewDataGenerator(7).GeneratePatient(5, end)
	assert.Equal(t, a, b)
}

func TestDataGenerator_PatientShape(t *testing.T) {
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	g := NewDataGenerator(3)
	for i := 0; i < 200; i++ {
		p := g.GeneratePatient(6, end)

		assert.GreaterOrEqual(t, p.Age, 45)
		assert.Less(t, p.Age, 79)
		assert.Equal(t, p.Custom.GleasonPrimary+p.Custom.GleasonSecondary, p.GleasonScore)
		assert.LessOrEqual(t, p.Custom.CoresPositive, p.Custom.CoresTotal)
		require.NotEmpty(t, p.PSAHistory)
		assert.LessOrEqual(t, len(p.PSAHistory), 6)
		assert.True(t, p.PSAHistory[len(p.PSAHistory)-1].Date.Equal(end))
		assert.Equal(t, p.PSAHistory[len(p.PSAHistory)-1].Value, p.PSALevel)
		for j := 1; j < len(p.PSAHistory); j++ {
			assert.True(t, p.PSAHistory[j].Date.After(p.PSAHistory[j-1].Date))
		}
		if p.ClinicalStage[:2] == "T3" {
			assert.False(t, p.Custom.NerveSparing)
		}
	}
	assert.Equal(t, "SYN-00201", g.GeneratePatient(1, end).MRN)
}

func TestSeeder_LoadSQLite(t *testing.T) {
	ctx := context.Background()
	conn, err := db.OpenSQLite(ctx, filepath.Join(t.TempDir(), "cohort.db"), 1)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	m, err := db.NewMigrator(conn, db.SQLite)
	require.NoError(t, err)
	_, err = m.Up(ctx)
	require.NoError(t, err)

	cfg := DefaultSeedConfig()
	cfg.PatientCount = 10
	res, err := NewSeeder(cfg).Load(ctx, conn, db.SQLite)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Patients)
	assert.GreaterOrEqual(t, res.LabResults, 10)

	expected := NewSeeder(cfg).Generate()[0]
	repo := clinicalreport.NewPatientRepoSQLite(conn)
	profile, err := repo.GetProfile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, expected.MRN, profile.MRN)
	require.NotNil(t, profile.GleasonScore)
	assert.Equal(t, expected.GleasonScore, *profile.GleasonScore)

	var custom CustomFields
	require.NoError(t, json.Unmarshal([]byte(profile.CustomFields), &custom))
	assert.Equal(t, expected.Custom, custom)

	labs, err := repo.ListPSAResults(ctx, 1)
	require.NoError(t, err)
	require.Len(t, labs, len(expected.PSAHistory))
	for i, d := range expected.PSAHistory {
		assert.True(t, d.Date.Equal(labs[i].Date), "draw %d date", i)
		assert.Equal(t, d.Value, labs[i].Value)
	}
}
