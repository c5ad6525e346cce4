package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pablosanchi/consultation-backend/internal/domain"
	"github.com/pablosanchi/consultation-backend/internal/domain/submission"
)

// ObjectStore is the external storage collaborator holding prescription
// files. Keys are opaque, collision-resistant identifiers.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	TemporaryURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type SubmissionService struct {
	repo       submission.Repository
	userRepo   UserRepository
	store      ObjectStore
	outboxRepo OutboxRepository
	presignTTL time.Duration
	log        *zap.Logger
}

func NewSubmissionService(
	repo submission.Repository,
	userRepo UserRepository,
	store ObjectStore,
	outboxRepo OutboxRepository,
	presignTTL time.Duration,
	log *zap.Logger,
) *SubmissionService {
	return &SubmissionService{
		repo:       repo,
		userRepo:   userRepo,
		store:      store,
		outboxRepo: outboxRepo,
		presignTTL: presignTTL,
		log:        log,
	}
}

// Create opens a new in-progress submission owned by the acting patient.
// The owner is taken from the actor, never from the payload.
func (s *SubmissionService) Create(ctx context.Context, actor domain.Actor, cmd *submission.CreateSubmissionCommand) (*submission.Submission, error) {
	if !actor.IsPatient {
		return nil, ErrForbidden
	}

	fields := map[string]string{}
	if cmd.Title == "" {
		fields["title"] = "title is required"
	}
	if cmd.Symptoms == "" {
		fields["symptoms"] = "symptoms is required"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	sub := &submission.Submission{
		PatientID: actor.ID,
		State:     submission.StateInProgress,
		Title:     cmd.Title,
		Symptoms:  cmd.Symptoms,
		OtherInfo: cmd.OtherInfo,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("creating submission: %w", err)
	}

	return sub, nil
}

// Get returns a single submission. Visible to its patient, its assigned
// doctor, and to any doctor while still unclaimed.
func (s *SubmissionService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*submission.Submission, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch {
	case actor.ID == sub.PatientID:
	case sub.IsClaimedBy(actor.ID):
	case actor.IsDoctor && sub.DoctorID == nil:
	default:
		return nil, ErrForbidden
	}

	return sub, nil
}

// List returns the actor's view of the submission table: patients see
// their own submissions, doctors see their assigned ones, or the unclaimed
// pool when q.Unclaimed is set.
func (s *SubmissionService) List(ctx context.Context, actor domain.Actor, q *submission.ListSubmissionsQuery) (*submission.PagedSubmissions, error) {
	switch {
	case q.Unclaimed:
		if !actor.IsDoctor {
			return nil, ErrForbidden
		}
		q.DoctorID = nil
		q.PatientID = nil
	case actor.IsPatient:
		q.PatientID = &actor.ID
		q.DoctorID = nil
	case actor.IsDoctor:
		q.DoctorID = &actor.ID
		q.PatientID = nil
	default:
		return nil, ErrForbidden
	}

	if q.PageSize <= 0 || q.PageSize > 100 {
		q.PageSize = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}

	return s.repo.List(ctx, q)
}

// Complete claims the submission for the acting doctor and marks it done.
// A repeat call by the same doctor is a no-op success; any other caller is
// denied. The claim itself is a conditional update in the repository, so a
// concurrent double-claim loses at commit time, not at read time.
func (s *SubmissionService) Complete(ctx context.Context, actor domain.Actor, id uuid.UUID) (*submission.Submission, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if sub.IsClaimedBy(actor.ID) && sub.State == submission.StateDone {
		return sub, nil
	}
	if !submission.CanComplete(actor, sub) {
		return nil, ErrForbidden
	}

	claimed, err := s.repo.Claim(ctx, id, actor.ID)
	if err != nil {
		if errors.Is(err, submission.ErrAlreadyClaimed) {
			// Lost the race after our read. Re-check for the idempotent
			// same-doctor case before denying.
			if cur, gerr := s.repo.GetByID(ctx, id); gerr == nil && cur.IsClaimedBy(actor.ID) {
				return cur, nil
			}
			return nil, ErrForbidden
		}
		return nil, fmt.Errorf("claiming submission: %w", err)
	}

	s.log.Info("submission completed",
		zap.String("submission_id", id.String()),
		zap.String("doctor_id", actor.ID.String()),
	)

	return claimed, nil
}

// AttachPrescription stores the file under a fresh uuid key and records
// that key on the submission. The object is written before the record is
// updated; if the record update fails, the orphaned object is removed so
// storage and database never disagree about which file is current.
func (s *SubmissionService) AttachPrescription(ctx context.Context, actor domain.Actor, id uuid.UUID, data []byte, contentType string) (string, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if !submission.CanUploadPrescription(actor, sub) {
		return "", ErrForbidden
	}
	if len(data) == 0 {
		return "", &ValidationError{Fields: map[string]string{"prescriptions": "prescription file is required"}}
	}

	key := uuid.NewString()
	if err := s.store.Put(ctx, key, data, contentType); err != nil {
		return "", fmt.Errorf("%w: put %s: %v", ErrStorageFailure, key, err)
	}

	if err := s.repo.SetPrescription(ctx, sub.ID, actor.ID, key); err != nil {
		if derr := s.store.Delete(ctx, key); derr != nil {
			s.log.Error("removing orphaned prescription object",
				zap.String("key", key), zap.Error(derr))
		}
		return "", fmt.Errorf("recording prescription: %w", err)
	}

	// Replacing an earlier upload leaves its object behind; best effort.
	if sub.HasPrescription() {
		if derr := s.store.Delete(ctx, *sub.Prescription); derr != nil {
			s.log.Warn("deleting replaced prescription object",
				zap.String("key", *sub.Prescription), zap.Error(derr))
		}
	}

	s.enqueueEvent(ctx, domain.EventPrescriptionUploaded, map[string]any{
		"submission_id": sub.ID.String(),
		"patient_id":    sub.PatientID.String(),
		"doctor_id":     actor.ID.String(),
		"prescription":  key,
	})

	return key, nil
}

// PrescriptionURL issues a time-limited signed URL for the attached file.
func (s *SubmissionService) PrescriptionURL(ctx context.Context, actor domain.Actor, id uuid.UUID) (string, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if !submission.CanViewPrescription(actor, sub) {
		return "", ErrForbidden
	}
	if !sub.HasPrescription() {
		return "", submission.ErrPrescriptionNotFound
	}

	url, err := s.store.TemporaryURL(ctx, *sub.Prescription, s.presignTTL)
	if err != nil {
		return "", fmt.Errorf("%w: presign %s: %v", ErrStorageFailure, *sub.Prescription, err)
	}
	return url, nil
}

// DeletePrescription removes the stored object and clears the record. The
// object is deleted first: if the delete fails, the record keeps pointing
// at the file that still exists.
func (s *SubmissionService) DeletePrescription(ctx context.Context, actor domain.Actor, id uuid.UUID) (string, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if !submission.CanDeletePrescription(actor, sub) {
		return "", ErrForbidden
	}

	key := *sub.Prescription
	if err := s.store.Delete(ctx, key); err != nil {
		return "", fmt.Errorf("%w: delete %s: %v", ErrStorageFailure, key, err)
	}

	if err := s.repo.ClearPrescription(ctx, sub.ID, actor.ID); err != nil {
		return "", fmt.Errorf("clearing prescription: %w", err)
	}

	return key, nil
}

// DoctorInformation returns a doctor's profile to the doctor themselves or
// to a patient matched with them through at least one submission.
func (s *SubmissionService) DoctorInformation(ctx context.Context, actor domain.Actor, doctorID uuid.UUID) (*domain.DoctorInformation, error) {
	matched := false
	if actor.ID != doctorID {
		var err error
		matched, err = s.repo.HasPatientSubmissionWithDoctor(ctx, actor.ID, doctorID)
		if err != nil {
			return nil, fmt.Errorf("checking doctor match: %w", err)
		}
	}
	if !submission.CanViewDoctorInformation(actor, doctorID, matched) {
		return nil, ErrForbidden
	}

	return s.userRepo.GetDoctorInformation(ctx, doctorID)
}

func (s *SubmissionService) enqueueEvent(ctx context.Context, eventType domain.EventType, payload map[string]any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("marshaling outbox payload", zap.Error(err))
		return
	}
	if err := s.outboxRepo.Enqueue(ctx, &domain.OutboxEvent{Type: eventType, Payload: raw}); err != nil {
		s.log.Error("enqueueing outbox event", zap.String("type", string(eventType)), zap.Error(err))
	}
}
