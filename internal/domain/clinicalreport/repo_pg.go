package clinicalreport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) GetProfile(ctx context.Context, id int64) (*PatientProfile, error) {
	var p PatientProfile
	var stage, custom *string
	err := r.pool.QueryRow(ctx, profileQuery+`$1`, id).
		Scan(&p.ID, &p.MRN, &p.Age, &p.PSALevel, &p.GleasonScore, &stage, &custom)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get patient profile: %w", err)
	}
	if stage != nil {
		p.ClinicalStage = *stage
	}
	if custom != nil {
		p.CustomFields = *custom
	}
	return &p, nil
}

func (r *patientRepoPG) ListPSAResults(ctx context.Context, patientID int64) ([]LabValue, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(psaQuery, "$1"), patientID)
	if err != nil {
		return nil, fmt.Errorf("list psa results: %w", err)
	}
	defer rows.Close()

	var out []LabValue
	for rows.Next() {
		var v LabValue
		var d time.Time
		if err := rows.Scan(&d, &v.Value); err != nil {
			return nil, fmt.Errorf("scan psa result: %w", err)
		}
		v.Date = d
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate psa results: %w", err)
	}
	return out, nil
}
