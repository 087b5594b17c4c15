package clinicalreport

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/oncostat/oncostat/internal/platform/db"
)

func newSQLiteRepo(t *testing.T) (PatientRepository, *sql.DB) {
	t.Helper()
	ctx := context.Background()
	conn, err := db.OpenSQLite(ctx, filepath.Join(t.TempDir(), "patients.db"), 1)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	m, err := db.NewMigrator(conn, db.SQLite)
	if err != nil {
		t.Fatalf("NewMigrator: %v", err)
	}
	if _, err := m.Up(ctx); err != nil {
		t.Fatalf("Up: %v", err)
	}
	return NewPatientRepoSQLite(conn), conn
}

func exec(t *testing.T, conn *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := conn.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func TestPatientRepoSQLite_GetProfile(t *testing.T) {
	repo, conn := newSQLiteRepo(t)
	exec(t, conn, `INSERT INTO patients (id, mrn, age, gleason_score, psa_level, clinical_stage, custom_fields)
		VALUES (1, 'MRN-0001', 66, 7, 8.5, 'T2b', '{"bmi":31}')`)
	exec(t, conn, `INSERT INTO patients (id, mrn) VALUES (2, 'MRN-0002')`)

	p, err := repo.GetProfile(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if p.MRN != "MRN-0001" || p.Age == nil || *p.Age != 66 || p.PSALevel == nil || *p.PSALevel != 8.5 {
		t.Errorf("unexpected profile %+v", p)
	}
	if p.ClinicalStage != "T2b" || p.CustomFields != `{"bmi":31}` {
		t.Errorf("unexpected text columns %q %q", p.ClinicalStage, p.CustomFields)
	}

	sparse, err := repo.GetProfile(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if sparse.Age != nil || sparse.GleasonScore != nil || sparse.PSALevel != nil || sparse.CustomFields != "" {
		t.Errorf("expected null columns to stay unset, got %+v", sparse)
	}

	if _, err := repo.GetProfile(context.Background(), 42); !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestPatientRepoSQLite_ListPSAResults(t *testing.T) {
	repo, conn := newSQLiteRepo(t)
	exec(t, conn, `INSERT INTO patients (id, mrn) VALUES (1, 'MRN-0001')`)
	rows := []struct {
		date, kind string
		value      any
	}{
		{"2024-01-01", "PSA", 6.0},
		{"2023-01-01", "psa", 4.0},
		{"2023-06-01", "Testosterone", 410.0},
		{"2023-07-02", "PSA", nil},
		{"2024-07-01 09:30:00", "PSA", 8.5},
	}
	for _, r := range rows {
		exec(t, conn, `INSERT INTO lab_results (patient_id, test_date, test_type, test_value) VALUES (1, ?, ?, ?)`,
			r.date, r.kind, r.value)
	}

	labs, err := repo.ListPSAResults(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListPSAResults: %v", err)
	}
	want := []float64{4.0, 6.0, 8.5}
	if len(labs) != len(want) {
		t.Fatalf("expected %d PSA draws, got %+v", len(want), labs)
	}
	for i, v := range want {
		if labs[i].Value != v {
			t.Errorf("draw %d: expected %v, got %v", i, v, labs[i].Value)
		}
	}
	if labs[2].Date.Hour() != 9 {
		t.Errorf("expected timestamp to keep its time of day, got %v", labs[2].Date)
	}

	none, err := repo.ListPSAResults(context.Background(), 2)
	if err != nil || len(none) != 0 {
		t.Errorf("expected no draws for an unknown patient, got %v %v", none, err)
	}
}

func TestSQLiteDate(t *testing.T) {
	if _, err := sqliteDate([]byte("2024-02-29")); err != nil {
		t.Errorf("unexpected error for byte date: %v", err)
	}
	if _, err := sqliteDate("29/02/2024"); err == nil {
		t.Error("expected error for unknown layout")
	}
	if _, err := sqliteDate(int64(0)); err == nil {
		t.Error("expected error for unsupported type")
	}
}
