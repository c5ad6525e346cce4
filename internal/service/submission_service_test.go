package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pablosanchi/consultation-backend/internal/domain"
	"github.com/pablosanchi/consultation-backend/internal/domain/submission"
)

type submissionFixture struct {
	svc    *SubmissionService
	repo   *fakeSubmissionRepo
	users  *fakeUserRepo
	store  *mockObjectStore
	outbox *mockOutbox
}

func newSubmissionFixture() *submissionFixture {
	repo := newFakeSubmissionRepo()
	users := newFakeUserRepo()
	store := newMockObjectStore()
	outbox := &mockOutbox{}
	svc := NewSubmissionService(repo, users, store, outbox, 7*24*time.Hour, zap.NewNop())
	return &submissionFixture{svc: svc, repo: repo, users: users, store: store, outbox: outbox}
}

func (f *submissionFixture) createSubmission(t *testing.T, patient domain.Actor) *submission.Submission {
	t.Helper()
	sub, err := f.svc.Create(context.Background(), patient, &submission.CreateSubmissionCommand{
		Title:    "persistent headaches",
		Symptoms: "headache for two weeks, worse in the morning",
	})
	require.NoError(t, err)
	return sub
}

func patientActor() domain.Actor {
	return domain.Actor{ID: uuid.New(), IsPatient: true}
}

func doctorActor() domain.Actor {
	return domain.Actor{ID: uuid.New(), IsDoctor: true}
}

func TestCreateSubmission(t *testing.T) {
	f := newSubmissionFixture()
	patient := patientActor()

	sub := f.createSubmission(t, patient)
	assert.Equal(t, patient.ID, sub.PatientID)
	assert.Equal(t, submission.StateInProgress, sub.State)
	assert.Nil(t, sub.DoctorID)

	_, err := f.svc.Create(context.Background(), doctorActor(), &submission.CreateSubmissionCommand{
		Title: "x", Symptoms: "y",
	})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Create(context.Background(), patient, &submission.CreateSubmissionCommand{})
	var validErr *ValidationError
	require.ErrorAs(t, err, &validErr)
	assert.Contains(t, validErr.Fields, "title")
	assert.Contains(t, validErr.Fields, "symptoms")
}

func TestCompleteSubmission(t *testing.T) {
	f := newSubmissionFixture()
	patient := patientActor()
	doctorA := doctorActor()
	doctorB := doctorActor()

	sub := f.createSubmission(t, patient)

	claimed, err := f.svc.Complete(context.Background(), doctorA, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, submission.StateDone, claimed.State)
	require.NotNil(t, claimed.DoctorID)
	assert.Equal(t, doctorA.ID, *claimed.DoctorID)

	// Repeat call by the same doctor is a no-op success.
	again, err := f.svc.Complete(context.Background(), doctorA, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, doctorA.ID, *again.DoctorID)

	// A different doctor is denied and the row is untouched.
	_, err = f.svc.Complete(context.Background(), doctorB, sub.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	cur, err := f.repo.GetByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, doctorA.ID, *cur.DoctorID)

	// Patients cannot complete anything.
	other := f.createSubmission(t, patient)
	_, err = f.svc.Complete(context.Background(), patient, other.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCompleteSubmission_NotFound(t *testing.T) {
	f := newSubmissionFixture()
	_, err := f.svc.Complete(context.Background(), doctorActor(), uuid.New())
	assert.ErrorIs(t, err, submission.ErrSubmissionNotFound)
}

func TestAttachPrescription(t *testing.T) {
	f := newSubmissionFixture()
	patient := patientActor()
	doctor := doctorActor()
	sub := f.createSubmission(t, patient)

	// Upload requires a prior claim.
	_, err := f.svc.AttachPrescription(context.Background(), doctor, sub.ID, []byte("rx"), "application/pdf")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Complete(context.Background(), doctor, sub.ID)
	require.NoError(t, err)

	key, err := f.svc.AttachPrescription(context.Background(), doctor, sub.ID, []byte("rx"), "application/pdf")
	require.NoError(t, err)
	assert.NotEmpty(t, key)
	assert.True(t, f.store.has(key))

	cur, err := f.repo.GetByID(context.Background(), sub.ID)
	require.NoError(t, err)
	require.NotNil(t, cur.Prescription)
	assert.Equal(t, key, *cur.Prescription)
	assert.Equal(t, submission.StateDone, cur.State)

	// Exactly one upload notification.
	events := f.outbox.ofType(domain.EventPrescriptionUploaded)
	require.Len(t, events, 1)

	// A replacement upload removes the previous object.
	key2, err := f.svc.AttachPrescription(context.Background(), doctor, sub.ID, []byte("rx2"), "application/pdf")
	require.NoError(t, err)
	assert.NotEqual(t, key, key2)
	assert.False(t, f.store.has(key))
	assert.True(t, f.store.has(key2))
}

func TestAttachPrescription_StorageWriteFails(t *testing.T) {
	f := newSubmissionFixture()
	patient := patientActor()
	doctor := doctorActor()
	sub := f.createSubmission(t, patient)
	_, err := f.svc.Complete(context.Background(), doctor, sub.ID)
	require.NoError(t, err)

	f.store.putErr = errors.New("bucket unavailable")
	_, err = f.svc.AttachPrescription(context.Background(), doctor, sub.ID, []byte("rx"), "")
	assert.ErrorIs(t, err, ErrStorageFailure)

	// The record must not reference a file that was never stored.
	cur, err := f.repo.GetByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Nil(t, cur.Prescription)
	assert.Empty(t, f.outbox.ofType(domain.EventPrescriptionUploaded))
}

func TestAttachPrescription_RecordUpdateFails(t *testing.T) {
	f := newSubmissionFixture()
	patient := patientActor()
	doctor := doctorActor()
	sub := f.createSubmission(t, patient)
	_, err := f.svc.Complete(context.Background(), doctor, sub.ID)
	require.NoError(t, err)

	f.repo.failSetPrescription = errors.New("connection reset")
	_, err = f.svc.AttachPrescription(context.Background(), doctor, sub.ID, []byte("rx"), "")
	require.Error(t, err)

	// The orphaned object is compensated away and no event is emitted.
	assert.Len(t, f.store.deleted, 1)
	assert.Empty(t, f.store.objects)
	assert.Empty(t, f.outbox.ofType(domain.EventPrescriptionUploaded))
}

func TestPrescriptionURL(t *testing.T) {
	f := newSubmissionFixture()
	patient := patientActor()
	doctor := doctorActor()
	stranger := doctorActor()
	sub := f.createSubmission(t, patient)

	// Nobody can view while in progress, the owner included.
	for _, actor := range []domain.Actor{patient, doctor, stranger} {
		_, err := f.svc.PrescriptionURL(context.Background(), actor, sub.ID)
		assert.ErrorIs(t, err, ErrForbidden)
	}

	_, err := f.svc.Complete(context.Background(), doctor, sub.ID)
	require.NoError(t, err)

	// Done but nothing attached yet.
	_, err = f.svc.PrescriptionURL(context.Background(), patient, sub.ID)
	assert.ErrorIs(t, err, submission.ErrPrescriptionNotFound)

	key, err := f.svc.AttachPrescription(context.Background(), doctor, sub.ID, []byte("rx"), "")
	require.NoError(t, err)

	for _, actor := range []domain.Actor{patient, doctor} {
		url, err := f.svc.PrescriptionURL(context.Background(), actor, sub.ID)
		require.NoError(t, err)
		assert.Contains(t, url, key)
	}

	_, err = f.svc.PrescriptionURL(context.Background(), stranger, sub.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeletePrescription(t *testing.T) {
	f := newSubmissionFixture()
	patient := patientActor()
	doctor := doctorActor()
	otherDoctor := doctorActor()
	sub := f.createSubmission(t, patient)
	_, err := f.svc.Complete(context.Background(), doctor, sub.ID)
	require.NoError(t, err)

	// Nothing attached: denied for every actor.
	for _, actor := range []domain.Actor{patient, doctor, otherDoctor} {
		_, err := f.svc.DeletePrescription(context.Background(), actor, sub.ID)
		assert.ErrorIs(t, err, ErrForbidden)
	}

	key, err := f.svc.AttachPrescription(context.Background(), doctor, sub.ID, []byte("rx"), "")
	require.NoError(t, err)

	_, err = f.svc.DeletePrescription(context.Background(), otherDoctor, sub.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	deleted, err := f.svc.DeletePrescription(context.Background(), doctor, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, key, deleted)
	assert.False(t, f.store.has(key))

	cur, err := f.repo.GetByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Nil(t, cur.Prescription)
	// Clearing the prescription does not leave the done state.
	assert.Equal(t, submission.StateDone, cur.State)
}

func TestDeletePrescription_ObjectDeleteFails(t *testing.T) {
	f := newSubmissionFixture()
	patient := patientActor()
	doctor := doctorActor()
	sub := f.createSubmission(t, patient)
	_, err := f.svc.Complete(context.Background(), doctor, sub.ID)
	require.NoError(t, err)
	key, err := f.svc.AttachPrescription(context.Background(), doctor, sub.ID, []byte("rx"), "")
	require.NoError(t, err)

	f.store.deleteErr = errors.New("storage down")
	_, err = f.svc.DeletePrescription(context.Background(), doctor, sub.ID)
	assert.ErrorIs(t, err, ErrStorageFailure)

	// The record still points at the object that still exists.
	cur, err := f.repo.GetByID(context.Background(), sub.ID)
	require.NoError(t, err)
	require.NotNil(t, cur.Prescription)
	assert.Equal(t, key, *cur.Prescription)
}

func TestDoctorInformation(t *testing.T) {
	f := newSubmissionFixture()
	patient := patientActor()
	doctor := doctorActor()
	stranger := patientActor()

	f.users.users[doctor.ID] = &domain.User{
		ID:       doctor.ID,
		IsDoctor: true,
		DoctorInformation: &domain.DoctorInformation{
			UserID:     doctor.ID,
			Grade:      3,
			Speciality: "Cardiology",
		},
	}

	// The doctor can read their own profile.
	info, err := f.svc.DoctorInformation(context.Background(), doctor, doctor.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cardiology", info.Speciality)

	// An unmatched patient is denied.
	_, err = f.svc.DoctorInformation(context.Background(), stranger, doctor.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	// Once matched through a submission, the patient may view the profile.
	sub := f.createSubmission(t, patient)
	_, err = f.svc.Complete(context.Background(), doctor, sub.ID)
	require.NoError(t, err)

	info, err = f.svc.DoctorInformation(context.Background(), patient, doctor.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, info.Grade)
}

func TestListSubmissions(t *testing.T) {
	f := newSubmissionFixture()
	patientA := patientActor()
	patientB := patientActor()
	doctor := doctorActor()

	subA := f.createSubmission(t, patientA)
	f.createSubmission(t, patientB)

	// Patients see only their own.
	page, err := f.svc.List(context.Background(), patientA, &submission.ListSubmissionsQuery{})
	require.NoError(t, err)
	require.Len(t, page.Submissions, 1)
	assert.Equal(t, subA.ID, page.Submissions[0].ID)

	// Doctors browse the unclaimed pool.
	page, err = f.svc.List(context.Background(), doctor, &submission.ListSubmissionsQuery{Unclaimed: true})
	require.NoError(t, err)
	assert.Len(t, page.Submissions, 2)

	// Patients do not.
	_, err = f.svc.List(context.Background(), patientA, &submission.ListSubmissionsQuery{Unclaimed: true})
	assert.ErrorIs(t, err, ErrForbidden)

	// After claiming, the doctor's own list has exactly that submission.
	_, err = f.svc.Complete(context.Background(), doctor, subA.ID)
	require.NoError(t, err)
	page, err = f.svc.List(context.Background(), doctor, &submission.ListSubmissionsQuery{})
	require.NoError(t, err)
	require.Len(t, page.Submissions, 1)
	assert.Equal(t, subA.ID, page.Submissions[0].ID)
}

// End-to-end flow over the service layer: create, claim, losing claim,
// upload, retrieval by both parties, denial for an unrelated doctor.
func TestSubmissionLifecycle(t *testing.T) {
	f := newSubmissionFixture()
	patient := patientActor()
	doctorA := doctorActor()
	doctorB := doctorActor()
	doctorC := doctorActor()

	sub := f.createSubmission(t, patient)
	assert.Equal(t, submission.StateInProgress, sub.State)

	claimed, err := f.svc.Complete(context.Background(), doctorA, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, submission.StateDone, claimed.State)
	assert.Equal(t, doctorA.ID, *claimed.DoctorID)

	_, err = f.svc.Complete(context.Background(), doctorB, sub.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	cur, _ := f.repo.GetByID(context.Background(), sub.ID)
	assert.Equal(t, doctorA.ID, *cur.DoctorID)

	key, err := f.svc.AttachPrescription(context.Background(), doctorA, sub.ID, []byte("amoxicillin 500mg"), "application/pdf")
	require.NoError(t, err)
	require.Len(t, f.outbox.ofType(domain.EventPrescriptionUploaded), 1)

	for _, actor := range []domain.Actor{patient, doctorA} {
		url, err := f.svc.PrescriptionURL(context.Background(), actor, sub.ID)
		require.NoError(t, err)
		assert.Contains(t, url, key)
	}

	_, err = f.svc.PrescriptionURL(context.Background(), doctorC, sub.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}
