package clinicalreport

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type patientRepoSQLite struct{ db *sql.DB }

func NewPatientRepoSQLite(db *sql.DB) PatientRepository {
	return &patientRepoSQLite{db: db}
}

func (r *patientRepoSQLite) GetProfile(ctx context.Context, id int64) (*PatientProfile, error) {
	var p PatientProfile
	var age, gleason sql.NullInt64
	var level sql.NullFloat64
	var stage, custom sql.NullString
	err := r.db.QueryRowContext(ctx, profileQuery+`?`, id).
		Scan(&p.ID, &p.MRN, &age, &level, &gleason, &stage, &custom)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get patient profile: %w", err)
	}
	if age.Valid {
		v := int(age.Int64)
		p.Age = &v
	}
	if level.Valid {
		p.PSALevel = &level.Float64
	}
	if gleason.Valid {
		v := int(gleason.Int64)
		p.GleasonScore = &v
	}
	p.ClinicalStage = stage.String
	p.CustomFields = custom.String
	return &p, nil
}

func (r *patientRepoSQLite) ListPSAResults(ctx context.Context, patientID int64) ([]LabValue, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(psaQuery, "?"), patientID)
	if err != nil {
		return nil, fmt.Errorf("list psa results: %w", err)
	}
	defer rows.Close()

	var out []LabValue
	for rows.Next() {
		var raw any
		var v LabValue
		if err := rows.Scan(&raw, &v.Value); err != nil {
			return nil, fmt.Errorf("scan psa result: %w", err)
		}
		if v.Date, err = sqliteDate(raw); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate psa results: %w", err)
	}
	return out, nil
}

var dateLayouts = []string{time.DateOnly, time.DateTime, time.RFC3339}

// SQLite stores dates as text unless the driver recognises the column type.
func sqliteDate(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
	case []byte:
		return sqliteDate(string(v))
	}
	return time.Time{}, fmt.Errorf("unrecognised test_date %v", raw)
}
