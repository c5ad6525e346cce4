package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pablosanchi/consultation-backend/internal/domain/submission"
)

type SubmissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func (r *SubmissionRepository) Create(ctx context.Context, s *submission.Submission) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("inserting submission: %w", err)
	}
	return nil
}

func (r *SubmissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*submission.Submission, error) {
	var s submission.Submission
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, submission.ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("querying submission: %w", err)
	}
	return &s, nil
}

// Claim assigns the doctor and marks the submission done with a single
// conditional UPDATE. The WHERE clause re-checks "still unclaimed and
// in progress" at commit time, so of two racing doctors exactly one
// update matches a row; the other sees zero rows affected.
func (r *SubmissionRepository) Claim(ctx context.Context, id, doctorID uuid.UUID) (*submission.Submission, error) {
	res := r.db.WithContext(ctx).
		Model(&submission.Submission{}).
		Where("id = ? AND doctor_id IS NULL AND state = ?", id, submission.StateInProgress).
		Updates(map[string]any{
			"doctor_id": doctorID,
			"state":     submission.StateDone,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("claiming submission: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Either the row is gone or somebody else got there first.
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, submission.ErrAlreadyClaimed
	}

	return r.GetByID(ctx, id)
}

func (r *SubmissionRepository) SetPrescription(ctx context.Context, id, doctorID uuid.UUID, key string) error {
	res := r.db.WithContext(ctx).
		Model(&submission.Submission{}).
		Where("id = ? AND doctor_id = ?", id, doctorID).
		Updates(map[string]any{
			"prescriptions": key,
			"state":         submission.StateDone,
		})
	if res.Error != nil {
		return fmt.Errorf("setting prescription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return submission.ErrSubmissionNotFound
	}
	return nil
}

func (r *SubmissionRepository) ClearPrescription(ctx context.Context, id, doctorID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&submission.Submission{}).
		Where("id = ? AND doctor_id = ?", id, doctorID).
		Update("prescriptions", nil)
	if res.Error != nil {
		return fmt.Errorf("clearing prescription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return submission.ErrSubmissionNotFound
	}
	return nil
}

func (r *SubmissionRepository) List(ctx context.Context, q *submission.ListSubmissionsQuery) (*submission.PagedSubmissions, error) {
	tx := r.db.WithContext(ctx).Model(&submission.Submission{})

	if q.PatientID != nil {
		tx = tx.Where("patient_id = ?", *q.PatientID)
	}
	if q.DoctorID != nil {
		tx = tx.Where("doctor_id = ?", *q.DoctorID)
	}
	if q.Unclaimed {
		tx = tx.Where("doctor_id IS NULL")
	}
	if q.State != nil {
		tx = tx.Where("state = ?", *q.State)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting submissions: %w", err)
	}

	var subs []*submission.Submission
	err := tx.
		Order("created_at DESC").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}

	totalPages := int(total) / q.PageSize
	if int(total)%q.PageSize > 0 {
		totalPages++
	}

	return &submission.PagedSubmissions{
		Submissions: subs,
		TotalCount:  total,
		Page:        q.Page,
		PageSize:    q.PageSize,
		TotalPages:  totalPages,
	}, nil
}

func (r *SubmissionRepository) HasPatientSubmissionWithDoctor(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&submission.Submission{}).
		Where("patient_id = ? AND doctor_id = ?", patientID, doctorID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("counting patient-doctor submissions: %w", err)
	}
	return count > 0, nil
}
