package submission

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new submission in the in_progress state.
	Create(ctx context.Context, s *Submission) error

	// GetByID retrieves a submission by primary key. Returns
	// ErrSubmissionNotFound if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*Submission, error)

	// Claim atomically assigns the doctor and marks the submission done.
	// The update is conditional on "doctor_id IS NULL AND state =
	// 'in_progress'" at commit time, so two doctors racing for the same
	// submission cannot both win; the loser gets ErrAlreadyClaimed.
	Claim(ctx context.Context, id, doctorID uuid.UUID) (*Submission, error)

	// SetPrescription stores the object key on the submission and marks it
	// done. Guarded by doctor_id = doctorID so a stale caller cannot
	// overwrite another doctor's submission.
	SetPrescription(ctx context.Context, id, doctorID uuid.UUID, key string) error

	// ClearPrescription removes the object key, leaving the state
	// untouched. Guarded by doctor_id = doctorID.
	ClearPrescription(ctx context.Context, id, doctorID uuid.UUID) error

	// List returns a paginated, filtered list of submissions.
	List(ctx context.Context, q *ListSubmissionsQuery) (*PagedSubmissions, error)

	// HasPatientSubmissionWithDoctor reports whether the patient has any
	// submission assigned to the given doctor.
	HasPatientSubmissionWithDoctor(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error)
}
