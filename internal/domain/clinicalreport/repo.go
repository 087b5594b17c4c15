package clinicalreport

import "context"

// PatientRepository reads patient profiles and PSA history. Implementations
// return ErrPatientNotFound for unknown ids.
type PatientRepository interface {
	GetProfile(ctx context.Context, id int64) (*PatientProfile, error)
	// ListPSAResults returns PSA draws ordered by date.
	ListPSAResults(ctx context.Context, patientID int64) ([]LabValue, error)
}

const profileQuery = `SELECT id, mrn, age, psa_level, gleason_score, clinical_stage, custom_fields
	FROM patients WHERE id = `

const psaQuery = `SELECT test_date, test_value FROM lab_results
	WHERE patient_id = %s AND UPPER(test_type) = 'PSA' AND test_value IS NOT NULL
	ORDER BY test_date`
